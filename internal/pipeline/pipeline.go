package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/assetflow/internal/asset"
	"github.com/your-org/assetflow/internal/ledger"
	"github.com/your-org/assetflow/internal/pinning"
	"github.com/your-org/assetflow/internal/result"
	"github.com/your-org/assetflow/pkg/kafka"
	"github.com/your-org/assetflow/pkg/storage/objectstore"
)

// Registrar submits a registration for pinned content.
type Registrar interface {
	Register(ctx context.Context, record *asset.ContentRecord, prompt string, signer ledger.Signer) (*asset.RegistrationResult, error)
}

// Pipeline sequences pin, registration, and result persistence for one
// UploadRequest at a time. It holds no mutable state across runs; concurrent
// runs are safe as long as they do not share an output path.
type Pipeline struct {
	store     pinning.Store
	registrar Registrar
	sink      result.Sink
	signer    ledger.Signer

	// optional collaborators, skipped when nil
	archive  objectstore.Client
	producer *kafka.Producer

	logger *zap.Logger
}

type Params struct {
	Store     pinning.Store
	Registrar Registrar
	Sink      result.Sink
	Signer    ledger.Signer
	Archive   objectstore.Client
	Producer  *kafka.Producer
	Logger    *zap.Logger
}

// New constructs a Pipeline.
func New(p Params) *Pipeline {
	return &Pipeline{
		store:     p.Store,
		registrar: p.Registrar,
		sink:      p.Sink,
		signer:    p.Signer,
		archive:   p.Archive,
		producer:  p.Producer,
		logger:    p.Logger,
	}
}

// Run executes the pipeline: validate, pin, register, persist. Stages run
// strictly in order; each consumes the previous stage's output. Nothing is
// retried: re-running pins the same bytes to the same CID but submits a fresh
// registration, so callers must check ledger state before retrying a failed
// register stage.
func (p *Pipeline) Run(ctx context.Context, req asset.UploadRequest) (*asset.PipelineResult, error) {
	invocationID := uuid.NewString()
	log := p.logger.With(zap.String("invocation_id", invocationID))

	if strings.TrimSpace(req.Prompt) == "" {
		return p.fail(log, invocationID, asset.StageValidate, "", &asset.ValidationError{Reason: "prompt must not be empty"})
	}
	if _, err := os.Stat(req.FilePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p.fail(log, invocationID, asset.StageValidate, "", &asset.NotFoundError{Path: req.FilePath})
		}
		return p.fail(log, invocationID, asset.StageValidate, "", err)
	}

	record, err := p.store.Pin(ctx, req.FilePath, req.Prompt)
	if err != nil {
		return p.fail(log, invocationID, asset.StageUpload, "", err)
	}
	log.Info("content pinned",
		zap.String("cid", record.CID),
		zap.String("local_cid", record.LocalCID),
		zap.Int64("size_bytes", record.SizeBytes),
	)

	reg, err := p.registrar.Register(ctx, record, req.Prompt, p.signer)
	if err != nil {
		// The pin already succeeded; keep the CID on the error record so the
		// orphaned pin can be registered manually or cleaned up.
		return p.fail(log, invocationID, asset.StageRegister, record.CID, err)
	}
	log.Info("asset registered",
		zap.String("tx_hash", reg.TxHash),
		zap.String("ip_id", reg.AssetID),
	)

	res := &asset.PipelineResult{
		InvocationID: invocationID,
		TxHash:       reg.TxHash,
		IpfsCid:      record.CID,
		IPID:         reg.AssetID,
		Title:        reg.Title,
		ViewURL:      reg.ViewURL,
		ExplorerURL:  reg.ExplorerURL,
		IPAssetURL:   reg.IPAssetURL,
	}

	p.archiveSource(ctx, log, req, record)
	p.emitEvent(ctx, log, invocationID, req, record, reg)

	if err := p.persist(log, res); err != nil {
		// The run itself succeeded; surface the persistence failure
		// distinctly alongside the in-memory result.
		return res, &asset.StageError{Stage: asset.StagePersist, Err: err}
	}
	return res, nil
}

// fail persists an error-shaped result best-effort and returns the stage
// error. An error result never carries a txHash.
func (p *Pipeline) fail(log *zap.Logger, invocationID string, stage asset.Stage, cid string, cause error) (*asset.PipelineResult, error) {
	now := time.Now().UTC()
	res := &asset.PipelineResult{
		InvocationID: invocationID,
		Error:        cause.Error(),
		Stage:        stage,
		Timestamp:    &now,
		IpfsCid:      cid,
	}
	log.Error("pipeline stage failed", zap.String("stage", string(stage)), zap.Error(cause))
	if err := p.persist(log, res); err != nil {
		log.Warn("could not persist error result", zap.Error(err))
	}
	return res, &asset.StageError{Stage: stage, Err: cause}
}

func (p *Pipeline) persist(log *zap.Logger, res *asset.PipelineResult) error {
	if err := p.sink.Persist(res); err != nil {
		return err
	}
	if err := p.sink.PersistDebug(res); err != nil {
		log.Warn("could not persist debug result", zap.Error(err))
	}
	return nil
}

// archiveSource copies the source bytes into the object store, keyed by the
// content's local CID. Best-effort: an archive failure never fails a run
// whose pin and registration succeeded.
func (p *Pipeline) archiveSource(ctx context.Context, log *zap.Logger, req asset.UploadRequest, record *asset.ContentRecord) {
	if p.archive == nil {
		return
	}
	f, err := os.Open(req.FilePath)
	if err != nil {
		log.Warn("archive skipped: open source", zap.Error(err))
		return
	}
	defer f.Close()

	key := record.LocalCID + filepath.Ext(req.FilePath)
	metadata := map[string]string{
		"prompt": req.Prompt,
		"cid":    record.CID,
	}
	if err := p.archive.Put(ctx, key, f, record.SizeBytes, metadata); err != nil {
		log.Warn("archive failed", zap.String("key", key), zap.Error(err))
		return
	}
	log.Info("source archived", zap.String("key", key))
}

// emitEvent publishes a RegistrationEvent. Best-effort, same as the archive.
func (p *Pipeline) emitEvent(ctx context.Context, log *zap.Logger, invocationID string, req asset.UploadRequest, record *asset.ContentRecord, reg *asset.RegistrationResult) {
	if p.producer == nil {
		return
	}
	event := RegistrationEvent{
		InvocationID: invocationID,
		CID:          record.CID,
		TxHash:       reg.TxHash,
		IPID:         reg.AssetID,
		Title:        reg.Title,
		Prompt:       req.Prompt,
		SizeBytes:    record.SizeBytes,
		CreatedAt:    time.Now().UTC(),
	}
	headers := map[string]string{
		"event_type": "asset.registered",
	}
	if err := p.producer.PublishJSON(ctx, invocationID, event, headers); err != nil {
		log.Warn("could not publish registration event", zap.Error(err))
		return
	}
	log.Info("registration event published", zap.String("cid", record.CID))
}
