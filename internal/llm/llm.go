// Package llm provides chat clients for the LLM services that translate,
// summarize, classify and forecast briefing content.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Provider is one configured LLM backend.
type Provider interface {
	Name() string
	Chat(ctx context.Context, system, prompt string) (string, error)
}

const requestTimeout = 120 * time.Second

// ChatProvider talks to an OpenAI-compatible chat-completions endpoint.
// DeepSeek and OpenAI differ only in base URL and model name.
type ChatProvider struct {
	name      string
	model     string
	baseURL   string
	apiKey    string
	maxTokens int
	client    *http.Client
}

// NewChatProvider creates an OpenAI-compatible provider.
func NewChatProvider(name, model, baseURL, apiKey string, maxTokens int) *ChatProvider {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &ChatProvider{
		name:      name,
		model:     model,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		apiKey:    apiKey,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: requestTimeout},
	}
}

// Name returns the provider name.
func (p *ChatProvider) Name() string { return p.name }

// Chat sends a system+user prompt pair and returns the reply text.
func (p *ChatProvider) Chat(ctx context.Context, system, prompt string) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("%s API key not configured", p.name)
	}

	var messages []map[string]string
	if system != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	body := map[string]any{
		"model":       p.model,
		"messages":    messages,
		"max_tokens":  p.maxTokens,
		"temperature": 0.7,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%s API returned %d: %s", p.name, resp.StatusCode, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in %s response", p.name)
	}
	return result.Choices[0].Message.Content, nil
}

// AnthropicProvider talks to the Anthropic messages endpoint.
type AnthropicProvider struct {
	model     string
	baseURL   string
	apiKey    string
	maxTokens int
	client    *http.Client
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(model, apiKey string, maxTokens int) *AnthropicProvider {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicProvider{
		model:     model,
		baseURL:   "https://api.anthropic.com",
		apiKey:    apiKey,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: requestTimeout},
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Chat sends a system+user prompt pair and returns the reply text.
func (p *AnthropicProvider) Chat(ctx context.Context, system, prompt string) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("anthropic API key not configured")
	}

	body := map[string]any{
		"model":      p.model,
		"max_tokens": p.maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	if system != "" {
		body["system"] = system
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("anthropic API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("no content in anthropic response")
	}
	return result.Content[0].Text, nil
}

// ThrottledProvider wraps a provider with a request rate limit so daily
// batches stay inside the API's requests-per-minute quota.
type ThrottledProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// Throttle wraps provider at requestsPerMinute. Zero or negative disables
// throttling.
func Throttle(provider Provider, requestsPerMinute int) Provider {
	if requestsPerMinute <= 0 {
		return provider
	}
	limiter := rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)
	return &ThrottledProvider{inner: provider, limiter: limiter}
}

// Name returns the wrapped provider's name.
func (p *ThrottledProvider) Name() string { return p.inner.Name() }

// Chat waits for the rate limiter then forwards to the wrapped provider.
func (p *ThrottledProvider) Chat(ctx context.Context, system, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return p.inner.Chat(ctx, system, prompt)
}

// CreateProvider builds a provider from configuration. With an empty
// provider name it auto-detects by present API keys, preferring DeepSeek,
// then OpenAI, then Anthropic.
func CreateProvider(provider, model, baseURL string, maxTokens int) (Provider, error) {
	name := strings.ToLower(provider)
	if name == "" {
		switch {
		case os.Getenv("DEEPSEEK_API_KEY") != "":
			name = "deepseek"
		case os.Getenv("OPENAI_API_KEY") != "":
			name = "openai"
		case os.Getenv("ANTHROPIC_API_KEY") != "":
			name = "anthropic"
		default:
			return nil, fmt.Errorf("no LLM API key found; set DEEPSEEK_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY")
		}
	}

	var p Provider
	switch name {
	case "deepseek":
		if model == "" {
			model = "deepseek-chat"
		}
		if baseURL == "" {
			baseURL = "https://api.deepseek.com/v1"
		}
		p = NewChatProvider("deepseek", model, baseURL, os.Getenv("DEEPSEEK_API_KEY"), maxTokens)
	case "openai":
		if model == "" {
			model = "gpt-4-turbo"
		}
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		p = NewChatProvider("openai", model, baseURL, os.Getenv("OPENAI_API_KEY"), maxTokens)
	case "anthropic":
		if model == "" {
			model = "claude-3-5-sonnet-20241022"
		}
		p = NewAnthropicProvider(model, os.Getenv("ANTHROPIC_API_KEY"), maxTokens)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}

	logrus.Infof("LLM provider: %s (model %s)", name, model)
	return p, nil
}
