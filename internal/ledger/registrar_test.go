package ledger

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/assetflow/internal/asset"
)

type fakeClient struct {
	resp  json.RawMessage
	err   error
	calls int
	last  SubmitRequest
}

func (f *fakeClient) Submit(ctx context.Context, req SubmitRequest) (json.RawMessage, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func testConfig() Config {
	return Config{
		ChainID:           "aeneid",
		GatewayURL:        "https://gateway.example.com",
		ExplorerURL:       "https://explorer.example.com",
		IPAssetURL:        "https://assets.example.com/ipa",
		RoyaltyPercentage: 1000,
		Rightholders: []asset.Rightholder{
			{Address: "0xabc", BasisPoints: 10000},
		},
	}
}

func testRecord() *asset.ContentRecord {
	return &asset.ContentRecord{
		CID:       "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		LocalCID:  "bafkreif",
		SizeBytes: 5,
	}
}

var testSigner = Signer{PrivateKey: "0xdeadbeefcafe"}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{
			name:   "short prompt verbatim",
			prompt: "a red apple",
			want:   "a red apple",
		},
		{
			name:   "exactly fifty runes verbatim",
			prompt: strings.Repeat("x", 50),
			want:   strings.Repeat("x", 50),
		},
		{
			name:   "fifty one runes truncated",
			prompt: strings.Repeat("x", 51),
			want:   strings.Repeat("x", 50) + "...",
		},
		{
			name:   "multibyte runes counted as runes",
			prompt: strings.Repeat("é", 60),
			want:   strings.Repeat("é", 50) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateTitle(tt.prompt, 50))
		})
	}
}

func TestRegisterRejectsBadRoyaltySplit(t *testing.T) {
	tests := []struct {
		name         string
		rightholders []asset.Rightholder
	}{
		{
			name:         "no rightholders",
			rightholders: nil,
		},
		{
			name: "single under 10000",
			rightholders: []asset.Rightholder{
				{Address: "0xabc", BasisPoints: 9999},
			},
		},
		{
			name: "multiple over 10000",
			rightholders: []asset.Rightholder{
				{Address: "0xabc", BasisPoints: 6000},
				{Address: "0xdef", BasisPoints: 6000},
			},
		},
		{
			name: "negative entry",
			rightholders: []asset.Rightholder{
				{Address: "0xabc", BasisPoints: 11000},
				{Address: "0xdef", BasisPoints: -1000},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Rightholders = tt.rightholders
			client := &fakeClient{resp: json.RawMessage(`{}`)}
			r := NewRegistrar(client, cfg, zap.NewNop())

			_, err := r.Register(context.Background(), testRecord(), "a red apple", testSigner)

			var verr *asset.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Zero(t, client.calls, "invalid params must not reach the ledger")
		})
	}
}

func TestRegisterAcceptsMultiWaySplit(t *testing.T) {
	cfg := testConfig()
	cfg.Rightholders = []asset.Rightholder{
		{Address: "0xabc", BasisPoints: 2500},
		{Address: "0xdef", BasisPoints: 2500},
		{Address: "0x123", BasisPoints: 5000},
	}
	client := &fakeClient{resp: json.RawMessage(`{"txHash":"0xf00d"}`)}
	r := NewRegistrar(client, cfg, zap.NewNop())

	res, err := r.Register(context.Background(), testRecord(), "a red apple", testSigner)
	require.NoError(t, err)
	assert.Equal(t, "0xf00d", res.TxHash)
	assert.Equal(t, 1, client.calls)
}

func TestRegisterRejectsRoyaltyPercentageOutOfRange(t *testing.T) {
	for _, pct := range []int{-1, 10001} {
		cfg := testConfig()
		cfg.RoyaltyPercentage = pct
		r := NewRegistrar(&fakeClient{}, cfg, zap.NewNop())

		_, err := r.Register(context.Background(), testRecord(), "a red apple", testSigner)

		var verr *asset.ValidationError
		require.ErrorAs(t, err, &verr)
	}
}

func TestRegisterRejectsBadSignerKey(t *testing.T) {
	for _, key := range []string{"", "0x", "not-hex-at-all"} {
		r := NewRegistrar(&fakeClient{}, testConfig(), zap.NewNop())

		_, err := r.Register(context.Background(), testRecord(), "a red apple", Signer{PrivateKey: key})

		var verr *asset.ValidationError
		require.ErrorAs(t, err, &verr, "key %q", key)
	}
}

func TestRegisterDerivesParams(t *testing.T) {
	client := &fakeClient{resp: json.RawMessage(`{"txHash":"0xf00d"}`)}
	r := NewRegistrar(client, testConfig(), zap.NewNop())
	record := testRecord()

	longPrompt := strings.Repeat("a", 60)
	res, err := r.Register(context.Background(), record, longPrompt, testSigner)
	require.NoError(t, err)

	assert.Equal(t, "ipfs://"+record.CID, client.last.MetadataURI)
	assert.Equal(t, "https://gateway.example.com/ipfs/"+record.CID, client.last.ExternalURI)
	assert.Equal(t, strings.Repeat("a", 50)+"...", client.last.Title)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, client.last.CreatedDate, "creation date is a calendar date with no time component")
	assert.Equal(t, 1000, client.last.RoyaltyContext.RoyaltyPercentage)

	assert.Equal(t, client.last.Title, res.Title)
	assert.Equal(t, client.last.ExternalURI, res.ViewURL)
	assert.Equal(t, "https://explorer.example.com/tx/0xf00d", res.ExplorerURL)
}

func TestRegisterNormalizesResponseShapes(t *testing.T) {
	tests := []struct {
		name       string
		resp       string
		wantTx     string
		wantIPID   string
		wantIPASet bool
	}{
		{
			name:       "structured hash object with ip id",
			resp:       `{"txHash":{"hash":"0xabc123"},"ipId":"0x42"}`,
			wantTx:     "0xabc123",
			wantIPID:   "0x42",
			wantIPASet: true,
		},
		{
			name:   "bare string fields",
			resp:   `{"txHash":"0xabc123"}`,
			wantTx: "0xabc123",
		},
		{
			name:   "absent fields become empty strings",
			resp:   `{}`,
			wantTx: "",
		},
		{
			name:   "bare string body is the hash",
			resp:   `"0xabc123"`,
			wantTx: "0xabc123",
		},
		{
			name:   "structured id object",
			resp:   `{"txHash":{"id":"0xabc123"}}`,
			wantTx: "0xabc123",
		},
		{
			name:   "unrecognized shapes degrade to empty",
			resp:   `{"txHash":12345}`,
			wantTx: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{resp: json.RawMessage(tt.resp)}
			r := NewRegistrar(client, testConfig(), zap.NewNop())

			res, err := r.Register(context.Background(), testRecord(), "a red apple", testSigner)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTx, res.TxHash)
			assert.Equal(t, tt.wantIPID, res.AssetID)
			if tt.wantTx == "" {
				assert.Empty(t, res.ExplorerURL)
			} else {
				assert.Contains(t, res.ExplorerURL, tt.wantTx)
			}
			if tt.wantIPASet {
				assert.Equal(t, "https://assets.example.com/ipa/"+tt.wantIPID, res.IPAssetURL)
			} else {
				assert.Empty(t, res.IPAssetURL)
			}
		})
	}
}

func TestRegisterPropagatesChainError(t *testing.T) {
	client := &fakeClient{err: &asset.ChainError{Reason: "insufficient funds"}}
	r := NewRegistrar(client, testConfig(), zap.NewNop())

	_, err := r.Register(context.Background(), testRecord(), "a red apple", testSigner)

	var cerr *asset.ChainError
	require.ErrorAs(t, err, &cerr)
}

func TestSignerRedacted(t *testing.T) {
	s := Signer{PrivateKey: "0xdeadbeefcafe0123"}
	red := s.Redacted()
	assert.Equal(t, "0xdead...", red)
	assert.NotContains(t, red, "beefcafe")

	assert.Equal(t, "******", Signer{PrivateKey: "0xab"}.Redacted())
}
