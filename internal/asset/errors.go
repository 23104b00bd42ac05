package asset

import (
	"fmt"
	"strings"
)

// ConfigurationError reports every missing required setting at once. It is
// returned before any I/O is attempted.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// NotFoundError indicates the input file does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("input file not found: %s", e.Path)
}

// UploadError indicates the content store rejected, failed, or timed out the
// pin request.
type UploadError struct {
	Reason string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("upload failed: %s", e.Reason)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ValidationError indicates malformed registration parameters, e.g. a royalty
// split that does not sum to 10000 basis points.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid registration params: %s", e.Reason)
}

// ChainError indicates the ledger rejected, failed, or timed out the
// registration submission.
type ChainError struct {
	Reason string
	Err    error
}

func (e *ChainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chain submission failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("chain submission failed: %s", e.Reason)
}

func (e *ChainError) Unwrap() error { return e.Err }

// PersistenceError indicates the result record could not be written. Callers
// holding the in-memory result may treat it as non-fatal.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist result to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StageError wraps a stage failure with the stage it originated from.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
