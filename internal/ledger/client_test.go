package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/assetflow/internal/asset"
)

func submitRequestFixture() SubmitRequest {
	return SubmitRequest{
		ChainID:     "aeneid",
		MetadataURI: "ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		Title:       "a red apple",
		CreatedDate: "2026-08-29",
		RoyaltyContext: RoyaltyContext{
			RoyaltyPercentage: 1000,
			Rightholders:      []asset.Rightholder{{Address: "0xabc", BasisPoints: 10000}},
		},
		SignerKey: "0xdeadbeef",
	}
}

func TestHTTPClientSubmit(t *testing.T) {
	var got SubmitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"txHash":"0xf00d"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	raw, err := c.Submit(context.Background(), submitRequestFixture())
	require.NoError(t, err)

	assert.JSONEq(t, `{"txHash":"0xf00d"}`, string(raw))
	assert.Equal(t, "aeneid", got.ChainID)
	assert.Equal(t, "0xdeadbeef", got.SignerKey)
}

func TestHTTPClientSubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nonce conflict", http.StatusConflict)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	_, err := c.Submit(context.Background(), submitRequestFixture())

	var cerr *asset.ChainError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Error(), "409")
	assert.Contains(t, cerr.Error(), "nonce conflict")
}

func TestHTTPClientSubmitTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	_, err := c.Submit(ctx, submitRequestFixture())

	var cerr *asset.ChainError
	require.ErrorAs(t, err, &cerr)
}
