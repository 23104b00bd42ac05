package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/your-org/assetflow/internal/asset"
)

// SubmitRequest is the wire payload for a registration submission. The signer
// key travels in the body because the RPC endpoint is a trusted signing
// gateway; it must never be copied into logs or error messages.
type SubmitRequest struct {
	ChainID              string                   `json:"chainId"`
	TokenContractAddress string                   `json:"tokenContractAddress"`
	MetadataURI          string                   `json:"metadataURI"`
	ExternalURI          string                   `json:"externalURI"`
	Title                string                   `json:"title"`
	CreatedDate          string                   `json:"createdDate"`
	RoyaltyContext       RoyaltyContext           `json:"royaltyContext"`
	SignerKey            string                   `json:"signerKey"`
}

type RoyaltyContext struct {
	RoyaltyPercentage int                 `json:"royaltyPercentage"`
	Rightholders      []asset.Rightholder `json:"rightholders"`
}

// Client submits a registration and returns the raw ledger response. The
// response shape varies across gateway versions; the Registrar normalizes it.
type Client interface {
	Submit(ctx context.Context, req SubmitRequest) (json.RawMessage, error)
}

// HTTPClient posts registrations to an RPC gateway endpoint.
type HTTPClient struct {
	url  string
	http *http.Client
}

// NewHTTPClient constructs a gateway client for the given registration URL.
func NewHTTPClient(url string, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 90 * time.Second
	}
	return &HTTPClient{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Submit(ctx context.Context, submitReq SubmitRequest) (json.RawMessage, error) {
	body, err := json.Marshal(submitReq)
	if err != nil {
		return nil, &asset.ChainError{Reason: "marshal submission", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &asset.ChainError{Reason: "build submission request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &asset.ChainError{Reason: "submit registration", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &asset.ChainError{Reason: "read submission response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &asset.ChainError{Reason: fmt.Sprintf("submission rejected with status %d: %s", resp.StatusCode, truncateBody(raw))}
	}

	return json.RawMessage(raw), nil
}

func truncateBody(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
