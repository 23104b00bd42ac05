package asset

import "time"

// UploadRequest is the immutable input to a single pipeline invocation.
type UploadRequest struct {
	FilePath string
	Prompt   string
}

// Metadata describes the pinned content so the record is self-describing
// without the original request.
type Metadata struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	KeyValues   map[string]string `json:"keyvalues,omitempty"`
}

// ContentRecord is produced by the content store client on a successful pin.
type ContentRecord struct {
	// CID as reported by the pinning service.
	CID string `json:"cid"`
	// LocalCID is a CIDv1 (raw, sha2-256) computed over the streamed bytes.
	// Identical bytes always yield the same LocalCID.
	LocalCID  string   `json:"local_cid"`
	SizeBytes int64    `json:"size_bytes"`
	Metadata  Metadata `json:"metadata"`
}

// Rightholder is one entry of a royalty split.
type Rightholder struct {
	Address     string `json:"address"`
	BasisPoints int    `json:"basisPoint"`
}

// RegistrationParams are the inputs to the on-chain registration call.
// Rightholder basis points must sum to exactly 10000.
type RegistrationParams struct {
	TokenContractAddress string        `json:"tokenContractAddress"`
	MetadataURI          string        `json:"metadataURI"`
	ExternalURI          string        `json:"externalURI"`
	RoyaltyPercentage    int           `json:"royaltyPercentage"`
	Rightholders         []Rightholder `json:"rightholders"`
}

// RegistrationResult is the normalized outcome of a registration submission.
// TxHash is always a string, empty when the ledger response carried none.
type RegistrationResult struct {
	TxHash      string
	AssetID     string
	Title       string
	ViewURL     string
	ExplorerURL string
	IPAssetURL  string
}

// Stage identifies where in the pipeline a failure originated.
type Stage string

const (
	StageValidate Stage = "validate"
	StageUpload   Stage = "upload"
	StageRegister Stage = "register"
	StagePersist  Stage = "persist"
)

// PipelineResult is the durable outcome record of one invocation. Exactly one
// of the success fields or the error fields is populated; an error result
// never carries a txHash. IpfsCid may appear on an error result when the pin
// succeeded before registration failed, so the orphaned pin can be found.
type PipelineResult struct {
	InvocationID string `json:"invocationId"`

	TxHash      string `json:"txHash,omitempty"`
	IpfsCid     string `json:"ipfsCid,omitempty"`
	IPID        string `json:"ipId,omitempty"`
	Title       string `json:"title,omitempty"`
	ViewURL     string `json:"viewUrl,omitempty"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
	IPAssetURL  string `json:"ipAssetUrl,omitempty"`

	Error     string     `json:"error,omitempty"`
	Stage     Stage      `json:"stage,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Succeeded reports whether the invocation completed both pin and
// registration.
func (r *PipelineResult) Succeeded() bool {
	return r.Error == ""
}
