package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Expander turns a short concept into detailed image prompts via an
// OpenAI-style chat completions endpoint. When the endpoint fails, it falls
// back to deterministic prompts so generation can still proceed.
type Expander struct {
	baseURL string
	apiKey  string
	model   string
	// keyword is the fine-tune trigger token prepended to each prompt when
	// set (some hosted models only apply the adapter when it is present).
	keyword string
	http    *http.Client
	logger  *zap.Logger
}

type ExpanderConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Keyword string
	Timeout time.Duration
}

// NewExpander constructs an Expander.
func NewExpander(cfg ExpanderConfig, logger *zap.Logger) *Expander {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Expander{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		keyword: cfg.Keyword,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Expand returns up to n prompts for the concept, one per line of the model
// output. It never fails: on any API error the fallback prompts are returned.
func (e *Expander) Expand(ctx context.Context, concept string, n int) []string {
	if n <= 0 {
		n = 1
	}

	prompts, err := e.expand(ctx, concept, n)
	if err != nil {
		e.logger.Warn("prompt expansion failed, using fallback prompts", zap.Error(err))
		return e.fallback(concept, n)
	}
	if len(prompts) == 0 {
		return e.fallback(concept, n)
	}
	return prompts
}

func (e *Expander) expand(ctx context.Context, concept string, n int) ([]string, error) {
	system := "You are a specialized image prompt generator. " +
		"Create detailed, high-quality image prompts for the concept provided. " +
		"Each prompt should be different but related to the same concept. Max of 10 words. " +
		"ONLY return the prompts, one per line, with no additional explanation or commentary."
	if e.keyword != "" {
		system += fmt.Sprintf(" Every prompt MUST start with '%s'.", e.keyword)
	}

	body, err := json.Marshal(chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: fmt.Sprintf("Generate %d different detailed image prompts for the concept: %q", n, concept)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat completion returned status %d", resp.StatusCode)
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	var prompts []string
	for _, line := range strings.Split(completion.Choices[0].Message.Content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		prompts = append(prompts, line)
		if len(prompts) == n {
			break
		}
	}
	return prompts, nil
}

func (e *Expander) fallback(concept string, n int) []string {
	prompt := fmt.Sprintf("%s realistic photo high definition", concept)
	if e.keyword != "" {
		prompt = e.keyword + " " + prompt
	}
	prompts := make([]string, n)
	for i := range prompts {
		prompts[i] = prompt
	}
	return prompts
}
