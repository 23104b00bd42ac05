package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/assetflow/internal/asset"
)

// maxTitleRunes bounds the human-readable title derived from the prompt.
const maxTitleRunes = 50

// Config carries the static registration inputs.
type Config struct {
	ChainID              string
	TokenContractAddress string
	GatewayURL           string
	ExplorerURL          string
	IPAssetURL           string
	RoyaltyPercentage    int
	Rightholders         []asset.Rightholder
}

// Registrar derives registration parameters from a ContentRecord and submits
// them through a ledger Client. Stateless and safe for concurrent use.
type Registrar struct {
	client Client
	cfg    Config
	logger *zap.Logger
}

// NewRegistrar constructs a Registrar.
func NewRegistrar(client Client, cfg Config, logger *zap.Logger) *Registrar {
	return &Registrar{client: client, cfg: cfg, logger: logger}
}

// Register validates the royalty split, derives title and creation date, and
// submits the registration. The returned result is always normalized: TxHash
// is a string (empty when the ledger response carried none) and AssetID is
// optional. Submissions are never retried here; a repeated submission can
// double-register.
func (r *Registrar) Register(ctx context.Context, record *asset.ContentRecord, prompt string, signer Signer) (*asset.RegistrationResult, error) {
	if err := signer.Validate(); err != nil {
		return nil, &asset.ValidationError{Reason: err.Error()}
	}
	if r.cfg.RoyaltyPercentage < 0 || r.cfg.RoyaltyPercentage > 10000 {
		return nil, &asset.ValidationError{Reason: fmt.Sprintf("royalty percentage %d out of range [0,10000]", r.cfg.RoyaltyPercentage)}
	}
	if err := validateSplit(r.cfg.Rightholders); err != nil {
		return nil, err
	}

	title := TruncateTitle(prompt, maxTitleRunes)
	viewURL := fmt.Sprintf("%s/ipfs/%s", r.cfg.GatewayURL, record.CID)

	req := SubmitRequest{
		ChainID:              r.cfg.ChainID,
		TokenContractAddress: r.cfg.TokenContractAddress,
		MetadataURI:          "ipfs://" + record.CID,
		ExternalURI:          viewURL,
		Title:                title,
		CreatedDate:          time.Now().UTC().Format("2006-01-02"),
		RoyaltyContext: RoyaltyContext{
			RoyaltyPercentage: r.cfg.RoyaltyPercentage,
			Rightholders:      r.cfg.Rightholders,
		},
		SignerKey: signer.PrivateKey,
	}

	r.logger.Info("submitting registration",
		zap.String("cid", record.CID),
		zap.String("title", title),
		zap.String("signer", signer.Redacted()),
	)

	raw, err := r.client.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	txHash, assetID := normalizeResponse(raw)

	result := &asset.RegistrationResult{
		TxHash:  txHash,
		AssetID: assetID,
		Title:   title,
		ViewURL: viewURL,
	}
	if txHash != "" {
		result.ExplorerURL = fmt.Sprintf("%s/tx/%s", r.cfg.ExplorerURL, txHash)
	}
	if assetID != "" {
		result.IPAssetURL = fmt.Sprintf("%s/%s", r.cfg.IPAssetURL, assetID)
	}
	return result, nil
}

func validateSplit(rightholders []asset.Rightholder) error {
	if len(rightholders) == 0 {
		return &asset.ValidationError{Reason: "at least one rightholder is required"}
	}
	sum := 0
	for _, rh := range rightholders {
		if rh.BasisPoints < 0 {
			return &asset.ValidationError{Reason: fmt.Sprintf("negative basis points for %s", rh.Address)}
		}
		sum += rh.BasisPoints
	}
	if sum != 10000 {
		return &asset.ValidationError{Reason: fmt.Sprintf("rightholder basis points sum to %d, want 10000", sum)}
	}
	return nil
}

// TruncateTitle bounds s to max runes, appending an ellipsis marker when
// truncated.
func TruncateTitle(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// normalizeResponse extracts the transaction hash and asset id from the raw
// ledger response. Gateways are inconsistent: the hash may arrive as a bare
// string, as an object with a hash field, or not at all. Absent values become
// empty strings, never nulls.
func normalizeResponse(raw json.RawMessage) (txHash, assetID string) {
	var envelope struct {
		TxHash json.RawMessage `json:"txHash"`
		IPID   json.RawMessage `json:"ipId"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		// A bare string body is the hash itself.
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s, ""
		}
		return "", ""
	}
	return normalizeID(envelope.TxHash), normalizeID(envelope.IPID)
}

func normalizeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Hash string `json:"hash"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Hash != "" {
			return obj.Hash
		}
		return obj.ID
	}
	return ""
}
