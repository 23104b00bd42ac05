package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultAbloBaseURL = "https://api.ablo.ai"

// abloProvider generates images through the Ablo image-maker API. One prompt
// can yield several variants; each is fetched from its URL and returned
// base64-encoded like the other providers.
type abloProvider struct {
	baseURL string
	apiKey  string
	styleID string
	keyword string
	http    *http.Client
	logger  *zap.Logger
}

func newAbloProvider(cfg Config, logger *zap.Logger) *abloProvider {
	baseURL := cfg.AbloBaseURL
	if baseURL == "" {
		baseURL = defaultAbloBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &abloProvider{
		baseURL: baseURL,
		apiKey:  cfg.AbloAPIKey,
		styleID: cfg.AbloStyleID,
		keyword: cfg.ModelKeyword,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type abloRequest struct {
	StyleID  string `json:"styleId"`
	FreeText string `json:"freeText"`
}

type abloResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

func (p *abloProvider) Generate(ctx context.Context, prompts []string) ([]Image, error) {
	var images []Image
	for i, prompt := range prompts {
		variants, err := p.generateVariants(ctx, prompt)
		if err != nil {
			p.logger.Warn("image generation failed for prompt",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		for _, b64 := range variants {
			images = append(images, Image{
				Prompt: fmt.Sprintf("%s (variant %d)", prompt, len(images)+1),
				B64:    b64,
			})
		}
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no images generated for %d prompts", len(prompts))
	}
	return images, nil
}

func (p *abloProvider) generateVariants(ctx context.Context, prompt string) ([]string, error) {
	body, err := json.Marshal(abloRequest{
		StyleID:  p.styleID,
		FreeText: p.stripKeyword(prompt),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/image-maker", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image-maker returned status %d", resp.StatusCode)
	}

	var gen abloResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, err
	}

	var variants []string
	for _, img := range gen.Images {
		if img.URL == "" {
			continue
		}
		b64, err := p.fetchAsBase64(ctx, img.URL)
		if err != nil {
			p.logger.Warn("could not fetch generated image", zap.Error(err))
			continue
		}
		variants = append(variants, b64)
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("image-maker returned no usable images")
	}
	return variants, nil
}

// stripKeyword drops the fine-tune trigger token pair from the prompt; Ablo
// has no adapter bound to it and would render the token literally.
func (p *abloProvider) stripKeyword(prompt string) string {
	if p.keyword == "" || !strings.HasPrefix(strings.ToLower(prompt), strings.ToLower(p.keyword)) {
		return prompt
	}
	words := strings.Fields(prompt)
	if len(words) > 2 {
		return strings.Join(words[2:], " ")
	}
	return prompt
}

func (p *abloProvider) fetchAsBase64(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
