package imagegen

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Image is one generated candidate.
type Image struct {
	Prompt string `json:"prompt"`
	B64    string `json:"b64"`
}

// Provider generates one or more images per prompt. Implementations log and
// skip prompts that fail; they return an error only when nothing at all was
// generated.
type Provider interface {
	Generate(ctx context.Context, prompts []string) ([]Image, error)
}

// Config selects and configures a generation provider.
type Config struct {
	Provider string

	TogetherBaseURL string
	TogetherAPIKey  string
	TogetherModel   string
	LoraPath        string
	LoraScale       float64

	AbloBaseURL string
	AbloAPIKey  string
	AbloStyleID string

	ModelKeyword string
	Timeout      time.Duration
}

// New creates a generation provider based on the given configuration.
func New(cfg Config, logger *zap.Logger) (Provider, error) {
	switch cfg.Provider {
	case "together", "":
		if cfg.TogetherAPIKey == "" {
			return nil, fmt.Errorf("TOGETHER_API_KEY is required for the together provider")
		}
		return newTogetherProvider(cfg, logger), nil
	case "ablo":
		if cfg.AbloAPIKey == "" {
			return nil, fmt.Errorf("ABLO_KEY is required for the ablo provider")
		}
		return newAbloProvider(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported image provider: %s", cfg.Provider)
	}
}
