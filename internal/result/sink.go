package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/assetflow/internal/asset"
)

// Sink durably records pipeline outcomes.
type Sink interface {
	Persist(res *asset.PipelineResult) error
	PersistDebug(res *asset.PipelineResult) error
}

// FileSink writes the result as JSON plus a human-readable companion file.
// Writes are last-write-wins for the configured paths: the result file is
// state, not a log.
type FileSink struct {
	path      string
	debugPath string
	logger    *zap.Logger
}

// NewFileSink constructs a FileSink. debugPath may be empty to skip the
// companion file.
func NewFileSink(path, debugPath string, logger *zap.Logger) *FileSink {
	return &FileSink{path: path, debugPath: debugPath, logger: logger}
}

// Persist writes the JSON result record, replacing any prior record at the
// path. Failures are reported as PersistenceError; the in-memory result
// remains valid for callers that treat persistence as non-fatal.
func (s *FileSink) Persist(res *asset.PipelineResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return &asset.PersistenceError{Path: s.path, Err: err}
	}
	if err := writeAtomic(s.path, append(data, '\n')); err != nil {
		return &asset.PersistenceError{Path: s.path, Err: err}
	}
	s.logger.Info("result persisted", zap.String("path", s.path), zap.Bool("success", res.Succeeded()))
	return nil
}

// PersistDebug writes the human-readable companion form.
func (s *FileSink) PersistDebug(res *asset.PipelineResult) error {
	if s.debugPath == "" {
		return nil
	}
	if err := writeAtomic(s.debugPath, []byte(formatDebug(res))); err != nil {
		return &asset.PersistenceError{Path: s.debugPath, Err: err}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".result-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func formatDebug(res *asset.PipelineResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "invocation: %s\n", res.InvocationID)
	if res.Succeeded() {
		b.WriteString("status: success\n")
		fmt.Fprintf(&b, "title: %s\n", res.Title)
		fmt.Fprintf(&b, "ipfs cid: %s\n", res.IpfsCid)
		fmt.Fprintf(&b, "tx hash: %s\n", res.TxHash)
		if res.IPID != "" {
			fmt.Fprintf(&b, "ip id: %s\n", res.IPID)
		}
		fmt.Fprintf(&b, "view: %s\n", res.ViewURL)
		fmt.Fprintf(&b, "explorer: %s\n", res.ExplorerURL)
		if res.IPAssetURL != "" {
			fmt.Fprintf(&b, "ip asset: %s\n", res.IPAssetURL)
		}
		return b.String()
	}
	b.WriteString("status: failed\n")
	fmt.Fprintf(&b, "stage: %s\n", res.Stage)
	fmt.Fprintf(&b, "error: %s\n", res.Error)
	if res.Timestamp != nil {
		fmt.Fprintf(&b, "at: %s\n", res.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	if res.IpfsCid != "" {
		fmt.Fprintf(&b, "orphaned pin: %s\n", res.IpfsCid)
	}
	return b.String()
}
