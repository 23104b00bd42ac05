package ledger

import (
	"fmt"
	"strings"
)

// Signer identifies the account submitting registrations. The key is a hex
// private key with an optional 0x prefix. Only the redacted form may ever be
// logged.
type Signer struct {
	PrivateKey string
}

// Validate checks the key has a plausible hex shape without touching the
// network.
func (s Signer) Validate() error {
	key := strings.TrimPrefix(s.PrivateKey, "0x")
	if key == "" {
		return fmt.Errorf("signer key is empty")
	}
	for _, r := range key {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return fmt.Errorf("signer key contains non-hex character %q", r)
		}
	}
	return nil
}

// Redacted returns a short, log-safe form of the key.
func (s Signer) Redacted() string {
	const keep = 6
	if len(s.PrivateKey) <= keep {
		return "******"
	}
	return s.PrivateKey[:keep] + "..."
}
