package pipeline

import "time"

// RegistrationEvent is emitted when an asset has been pinned and registered.
type RegistrationEvent struct {
	InvocationID string    `json:"invocation_id"`
	CID          string    `json:"cid"`
	TxHash       string    `json:"tx_hash"`
	IPID         string    `json:"ip_id,omitempty"`
	Title        string    `json:"title"`
	Prompt       string    `json:"prompt"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}
