package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Provider kinds
const (
	KindOllama = "ollama"
	KindOpenAI = "openai"
)

const maxResponseBytes = 1 << 20

// Provider generates text from a prompt
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// ProviderConfig describes one chat-completion endpoint
type ProviderConfig struct {
	Kind    string
	BaseURL string
	Model   string
	APIKey  string
}

// HTTPProvider calls an ollama or OpenAI-compatible chat endpoint
type HTTPProvider struct {
	cfg          ProviderConfig
	client       *http.Client
	endpoint     string
	responsePath string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   *bool         `json:"stream,omitempty"`
}

// NewHTTPProvider creates a provider for cfg.Kind
func NewHTTPProvider(cfg ProviderConfig, client *http.Client) (*HTTPProvider, error) {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")

	p := &HTTPProvider{cfg: cfg, client: client}
	switch cfg.Kind {
	case KindOllama:
		p.endpoint = base + "/api/chat"
		p.responsePath = OllamaResponsePath
	case KindOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		p.endpoint = base + "/chat/completions"
		p.responsePath = OpenAIResponsePath
	default:
		return nil, fmt.Errorf("unknown text generation provider %q", cfg.Kind)
	}
	return p, nil
}

// Name returns the provider kind
func (p *HTTPProvider) Name() string {
	return p.cfg.Kind
}

// Generate sends one chat completion request
func (p *HTTPProvider) Generate(ctx context.Context, prompt, system string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	reqBody := chatRequest{Model: p.cfg.Model, Messages: messages}
	if p.cfg.Kind == KindOllama {
		stream := false
		reqBody.Stream = &stream
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", p.cfg.Kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read %s response: %w", p.cfg.Kind, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := string(body)
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		return "", fmt.Errorf("%s returned status %d: %s", p.cfg.Kind, resp.StatusCode, excerpt)
	}

	return ExtractText(body, p.responsePath)
}
