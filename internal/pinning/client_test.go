package pinning

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/assetflow/internal/asset"
)

// A well-formed CIDv0 for stub responses.
const stubCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func pinStubServer(t *testing.T, hash string, gotMeta *pinMetadata, gotBody *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		if gotBody != nil {
			file, _, err := r.FormFile("file")
			require.NoError(t, err)
			data, err := io.ReadAll(file)
			require.NoError(t, err)
			*gotBody = string(data)
		}
		if gotMeta != nil {
			require.NoError(t, json.Unmarshal([]byte(r.FormValue("pinataMetadata")), gotMeta))
		}

		json.NewEncoder(w).Encode(pinResponse{IpfsHash: hash, PinSize: int64(len(*gotBody))})
	}))
}

func TestPinSuccess(t *testing.T) {
	var meta pinMetadata
	var body string
	srv := pinStubServer(t, stubCID, &meta, &body)
	defer srv.Close()

	path := writeTempFile(t, "test.txt", "hello")
	c := New(Config{Endpoint: srv.URL, JWT: "jwt-token"})

	record, err := c.Pin(context.Background(), path, "a red apple")
	require.NoError(t, err)

	assert.Equal(t, stubCID, record.CID)
	assert.Equal(t, int64(5), record.SizeBytes)
	assert.Equal(t, "hello", body, "file bytes are streamed verbatim")

	assert.Equal(t, "assetflow-test.txt", meta.Name)
	assert.Equal(t, "a red apple", meta.KeyValues["prompt"])
	_, err = time.Parse(time.RFC3339, meta.KeyValues["uploadedAt"])
	assert.NoError(t, err, "upload timestamp is RFC3339")

	wantLocal, _, err := DeriveCID(strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, wantLocal, record.LocalCID)
}

func TestPinDeterministicForIdenticalBytes(t *testing.T) {
	var meta pinMetadata
	var body string
	srv := pinStubServer(t, stubCID, &meta, &body)
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, JWT: "jwt-token"})

	first, err := c.Pin(context.Background(), writeTempFile(t, "a.txt", "same bytes"), "p1")
	require.NoError(t, err)
	second, err := c.Pin(context.Background(), writeTempFile(t, "b.txt", "same bytes"), "p2")
	require.NoError(t, err)

	assert.Equal(t, first.LocalCID, second.LocalCID)
	assert.Equal(t, first.CID, second.CID)

	other, err := c.Pin(context.Background(), writeTempFile(t, "c.txt", "different bytes"), "p3")
	require.NoError(t, err)
	assert.NotEqual(t, first.LocalCID, other.LocalCID)
}

func TestPinLocalCIDWhenServerRespondsEarly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Answer before draining the request body, as a service that decides
		// on headers alone would.
		json.NewEncoder(w).Encode(pinResponse{IpfsHash: stubCID, PinSize: 1})
	}))
	defer srv.Close()

	// Large enough that the body cannot fit in transport buffers.
	content := strings.Repeat("assetflow", 1<<20)
	path := writeTempFile(t, "big.bin", content)

	c := New(Config{Endpoint: srv.URL, JWT: "jwt-token"})
	record, err := c.Pin(context.Background(), path, "a red apple")
	require.NoError(t, err)

	wantLocal, _, err := DeriveCID(strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, wantLocal, record.LocalCID, "digest must cover the whole file even when the upload is cut short")
}

func TestPinMissingFile(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, JWT: "jwt-token"})
	_, err := c.Pin(context.Background(), filepath.Join(t.TempDir(), "nope.png"), "a red apple")

	var nferr *asset.NotFoundError
	require.ErrorAs(t, err, &nferr)
	assert.Zero(t, calls, "missing file must fail before any network call")
}

func TestPinRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "credentials invalid", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, JWT: "bad"})
	_, err := c.Pin(context.Background(), writeTempFile(t, "test.txt", "hello"), "a red apple")

	var uerr *asset.UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Error(), "401")
}

func TestPinInvalidCIDFromService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pinResponse{IpfsHash: "not-a-cid"})
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, JWT: "jwt-token"})
	_, err := c.Pin(context.Background(), writeTempFile(t, "test.txt", "hello"), "a red apple")

	var uerr *asset.UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Error(), "invalid CID")
}

func TestPinTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := New(Config{Endpoint: srv.URL, JWT: "jwt-token"})
	_, err := c.Pin(ctx, writeTempFile(t, "test.txt", "hello"), "a red apple")

	var uerr *asset.UploadError
	require.ErrorAs(t, err, &uerr)
}

func TestPinAuthHeaders(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want func(t *testing.T, r *http.Request)
	}{
		{
			name: "jwt wins when both are set",
			cfg:  Config{JWT: "jwt-token", APIKey: "key", APISecret: "secret"},
			want: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
				assert.Empty(t, r.Header.Get("pinata_api_key"))
			},
		},
		{
			name: "api key pair",
			cfg:  Config{APIKey: "key", APISecret: "secret"},
			want: func(t *testing.T, r *http.Request) {
				assert.Empty(t, r.Header.Get("Authorization"))
				assert.Equal(t, "key", r.Header.Get("pinata_api_key"))
				assert.Equal(t, "secret", r.Header.Get("pinata_secret_api_key"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.want(t, r)
				json.NewEncoder(w).Encode(pinResponse{IpfsHash: stubCID, PinSize: 5})
			}))
			defer srv.Close()

			cfg := tt.cfg
			cfg.Endpoint = srv.URL
			c := New(cfg)

			_, err := c.Pin(context.Background(), writeTempFile(t, "test.txt", "hello"), "a red apple")
			require.NoError(t, err)
		})
	}
}

func TestDeriveCIDShape(t *testing.T) {
	id, n, err := DeriveCID(strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.True(t, strings.HasPrefix(id, "bafkrei"), fmt.Sprintf("CIDv1 raw sha2-256 starts with bafkrei, got %s", id))
}
