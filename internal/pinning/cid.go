package pinning

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// localCIDFromDigest wraps a sha-256 digest as a CIDv1 (raw codec) string.
func localCIDFromDigest(digest []byte) (string, error) {
	mh, err := multihash.Encode(digest, multihash.SHA2_256)
	if err != nil {
		return "", fmt.Errorf("encode multihash: %w", err)
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}

// DeriveCID computes the CIDv1 (raw, sha2-256) of everything readable from r.
// Identical bytes always yield the same CID.
func DeriveCID(r io.Reader) (string, int64, error) {
	hasher := sha256.New()
	n, err := io.Copy(hasher, r)
	if err != nil {
		return "", 0, err
	}
	id, err := localCIDFromDigest(hasher.Sum(nil))
	if err != nil {
		return "", 0, err
	}
	return id, n, nil
}
