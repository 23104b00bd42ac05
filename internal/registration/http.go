package registration

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/your-org/assetflow/internal/asset"
	"github.com/your-org/assetflow/internal/imagegen"
	"github.com/your-org/assetflow/internal/pipeline"
)

// HTTPHandler exposes REST endpoints for registration and image generation.
type HTTPHandler struct {
	pipeline     *pipeline.Pipeline
	expander     *imagegen.Expander
	provider     imagegen.Provider
	logger       *zap.Logger
	maxSizeBytes int64
	formMemBytes int64
	router       chi.Router
}

// NewHTTPHandler constructs the HTTP handler and wires routes. provider may
// be nil when no generation credentials are configured; the generation
// endpoint then reports it as unavailable.
func NewHTTPHandler(p *pipeline.Pipeline, expander *imagegen.Expander, provider imagegen.Provider, logger *zap.Logger, maxSizeBytes, formMemBytes int64) *HTTPHandler {
	h := &HTTPHandler{
		pipeline:     p,
		expander:     expander,
		provider:     provider,
		logger:       logger,
		maxSizeBytes: maxSizeBytes,
		formMemBytes: formMemBytes,
	}
	h.buildRouter()
	return h
}

func (h *HTTPHandler) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", h.handleHealth)
	r.Post("/api/v1/registrations", h.handleRegister)
	r.Post("/api/v1/generations", h.handleGenerate)

	h.router = r
}

// Router exposes the configured chi router.
func (h *HTTPHandler) Router() http.Handler {
	return h.router
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleRegister accepts a multipart upload (file + prompt field), spools the
// file locally, and runs the registration pipeline on it.
func (h *HTTPHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > 0 && r.ContentLength > h.maxSizeBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	if err := r.ParseMultipartForm(h.formMemBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxSizeBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds max size limit")
		return
	}

	prompt := r.FormValue("prompt")
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt field is required")
		return
	}

	tmpPath, err := h.spool(file, header.Filename)
	if err != nil {
		h.logger.Error("could not spool upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not accept upload")
		return
	}
	defer os.Remove(tmpPath)

	res, err := h.pipeline.Run(r.Context(), asset.UploadRequest{
		FilePath: tmpPath,
		Prompt:   prompt,
	})
	if err != nil {
		// The registration itself succeeded when only persistence failed;
		// report it as created so the status matches the success-shaped body.
		var stageErr *asset.StageError
		if errors.As(err, &stageErr) && stageErr.Stage == asset.StagePersist && res != nil && res.Succeeded() {
			h.logger.Warn("result persistence failed", zap.Error(err))
			writeJSON(w, http.StatusCreated, res)
			return
		}
		writeJSON(w, statusForError(err), res)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

type generateRequest struct {
	Concept    string `json:"concept"`
	Variations int    `json:"variations"`
}

type generateResponse struct {
	Prompts []string         `json:"prompts"`
	Images  []imagegen.Image `json:"images"`
}

// handleGenerate expands a concept into prompts and generates candidate
// images for client-side selection.
func (h *HTTPHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeError(w, http.StatusServiceUnavailable, "image generation is not configured")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Concept == "" {
		writeError(w, http.StatusBadRequest, "concept is required")
		return
	}
	if req.Variations <= 0 {
		req.Variations = 3
	}

	prompts := h.expander.Expand(r.Context(), req.Concept, req.Variations)
	images, err := h.provider.Generate(r.Context(), prompts)
	if err != nil {
		h.logger.Error("generation failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "image generation failed")
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Prompts: prompts,
		Images:  images,
	})
}

func (h *HTTPHandler) spool(file io.Reader, filename string) (string, error) {
	tmp, err := os.CreateTemp("", "assetflow-upload-*"+filepath.Ext(filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func statusForError(err error) int {
	var stageErr *asset.StageError
	if !errors.As(err, &stageErr) {
		return http.StatusInternalServerError
	}
	switch stageErr.Stage {
	case asset.StageValidate:
		return http.StatusBadRequest
	case asset.StageUpload, asset.StageRegister:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
