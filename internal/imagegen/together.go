package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultTogetherBaseURL = "https://api.together.xyz"

// togetherProvider generates images through Together's generation API, one
// image per prompt, optionally applying a LoRA adapter.
type togetherProvider struct {
	baseURL   string
	apiKey    string
	model     string
	loraPath  string
	loraScale float64
	http      *http.Client
	logger    *zap.Logger
}

func newTogetherProvider(cfg Config, logger *zap.Logger) *togetherProvider {
	baseURL := cfg.TogetherBaseURL
	if baseURL == "" {
		baseURL = defaultTogetherBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &togetherProvider{
		baseURL:   baseURL,
		apiKey:    cfg.TogetherAPIKey,
		model:     cfg.TogetherModel,
		loraPath:  cfg.LoraPath,
		loraScale: cfg.LoraScale,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

type togetherLora struct {
	Path  string  `json:"path"`
	Scale float64 `json:"scale"`
}

type togetherRequest struct {
	Model          string         `json:"model"`
	Prompt         string         `json:"prompt"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	Steps          int            `json:"steps"`
	N              int            `json:"n"`
	ResponseFormat string         `json:"response_format"`
	ImageLoras     []togetherLora `json:"image_loras,omitempty"`
}

type togetherResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

func (p *togetherProvider) Generate(ctx context.Context, prompts []string) ([]Image, error) {
	var images []Image
	for i, prompt := range prompts {
		img, err := p.generateOne(ctx, prompt)
		if err != nil {
			p.logger.Warn("image generation failed for prompt",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		images = append(images, Image{Prompt: prompt, B64: img})
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no images generated for %d prompts", len(prompts))
	}
	return images, nil
}

func (p *togetherProvider) generateOne(ctx context.Context, prompt string) (string, error) {
	genReq := togetherRequest{
		Model:          p.model,
		Prompt:         prompt,
		Width:          1024,
		Height:         768,
		Steps:          28,
		N:              1,
		ResponseFormat: "b64_json",
	}
	if p.loraPath != "" {
		genReq.ImageLoras = []togetherLora{{Path: p.loraPath, Scale: p.loraScale}}
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/images/generations", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation returned status %d", resp.StatusCode)
	}

	var gen togetherResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return "", err
	}
	if len(gen.Data) == 0 || gen.Data[0].B64JSON == "" {
		return "", fmt.Errorf("generation returned no image data")
	}
	return gen.Data[0].B64JSON, nil
}
