package pinning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/your-org/assetflow/internal/asset"
)

// Store uploads local files to a content-addressed remote store.
type Store interface {
	Pin(ctx context.Context, filePath, prompt string) (*asset.ContentRecord, error)
}

// Config contains the information required to talk to the pinning service.
// Either JWT or the APIKey/APISecret pair must be set.
type Config struct {
	Endpoint  string
	JWT       string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// Client pins files through an HTTP pinning service. Safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
}

// New constructs a pinning client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

type pinMetadata struct {
	Name      string            `json:"name"`
	KeyValues map[string]string `json:"keyvalues"`
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Pin streams filePath to the pinning service and returns the resulting
// ContentRecord. The file is never loaded fully into memory. No retries are
// performed; re-pinning identical bytes is idempotent under content
// addressing, so retry policy belongs to the caller.
func (c *Client) Pin(ctx context.Context, filePath, prompt string) (*asset.ContentRecord, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &asset.NotFoundError{Path: filePath}
		}
		return nil, &asset.UploadError{Reason: "stat input file", Err: err}
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, &asset.UploadError{Reason: "open input file", Err: err}
	}
	defer f.Close()

	// Hash before uploading. The server may answer before it has drained the
	// request body, so hashing inside the upload stream could observe a
	// partial read; the digest must always cover the whole file.
	localCID, _, err := DeriveCID(f)
	if err != nil {
		return nil, &asset.UploadError{Reason: "derive local cid", Err: err}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, &asset.UploadError{Reason: "rewind input file", Err: err}
	}

	meta := asset.Metadata{
		Name: fmt.Sprintf("assetflow-%s", filepath.Base(filePath)),
		KeyValues: map[string]string{
			"prompt":     prompt,
			"uploadedAt": time.Now().UTC().Format(time.RFC3339),
		},
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		metaJSON, err := json.Marshal(pinMetadata{Name: meta.Name, KeyValues: meta.KeyValues})
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := mw.WriteField("pinataMetadata", string(metaJSON)); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/pinning/pinFileToIPFS", pr)
	if err != nil {
		return nil, &asset.UploadError{Reason: "build pin request", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &asset.UploadError{Reason: "pin request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &asset.UploadError{Reason: fmt.Sprintf("pin rejected with status %d: %s", resp.StatusCode, string(body))}
	}

	var pinned pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinned); err != nil {
		return nil, &asset.UploadError{Reason: "decode pin response", Err: err}
	}

	if _, err := cid.Decode(pinned.IpfsHash); err != nil {
		return nil, &asset.UploadError{Reason: fmt.Sprintf("service returned invalid CID %q", pinned.IpfsHash), Err: err}
	}

	size := pinned.PinSize
	if size == 0 {
		size = info.Size()
	}

	return &asset.ContentRecord{
		CID:       pinned.IpfsHash,
		LocalCID:  localCID,
		SizeBytes: size,
		Metadata:  meta,
	}, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.JWT != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.JWT)
		return
	}
	req.Header.Set("pinata_api_key", c.cfg.APIKey)
	req.Header.Set("pinata_secret_api_key", c.cfg.APISecret)
}
