package textgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoProviders is returned when no provider is configured
var ErrNoProviders = errors.New("no text generation provider configured")

// Chain tries providers in order until one succeeds.
// All calls share one rate limiter.
type Chain struct {
	providers []Provider
	limiter   *rate.Limiter
}

// NewChain creates a chain. requestsPerMinute <= 0 disables limiting.
func NewChain(requestsPerMinute int, providers ...Provider) *Chain {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &Chain{
		providers: providers,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Config selects and configures providers for NewChainFromConfig
type Config struct {
	Primary           string
	Backup            string
	Ollama            ProviderConfig
	OpenAI            ProviderConfig
	RequestsPerMinute int
}

// NewChainFromConfig builds the primary/backup chain. Providers that cannot be
// configured are skipped with a warning.
func NewChainFromConfig(cfg Config, client *http.Client) *Chain {
	byKind := map[string]ProviderConfig{
		KindOllama: withKind(cfg.Ollama, KindOllama),
		KindOpenAI: withKind(cfg.OpenAI, KindOpenAI),
	}

	var providers []Provider
	seen := map[string]bool{}
	for _, kind := range []string{cfg.Primary, cfg.Backup} {
		if kind == "" || seen[kind] {
			continue
		}
		seen[kind] = true

		pc, ok := byKind[kind]
		if !ok {
			slog.Warn("Unknown text generation provider, skipping", "provider", kind)
			continue
		}
		p, err := NewHTTPProvider(pc, client)
		if err != nil {
			slog.Warn("Text generation provider unavailable", "provider", kind, "error", err)
			continue
		}
		providers = append(providers, p)
	}

	return NewChain(cfg.RequestsPerMinute, providers...)
}

func withKind(pc ProviderConfig, kind string) ProviderConfig {
	pc.Kind = kind
	return pc
}

// Providers returns the provider names in order
func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Generate returns the first successful provider response
func (c *Chain) Generate(ctx context.Context, prompt, system string) (string, error) {
	if len(c.providers) == 0 {
		return "", ErrNoProviders
	}

	var errs []error
	for _, p := range c.providers {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}

		start := time.Now()
		text, err := p.Generate(ctx, prompt, system)
		if err == nil {
			slog.Debug("Text generated",
				"provider", p.Name(),
				"duration_ms", time.Since(start).Milliseconds(),
				"chars", len(text),
			)
			return text, nil
		}

		slog.Warn("Text generation provider failed, trying next",
			"provider", p.Name(),
			"error", err,
		)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("all text generation providers failed: %w", errors.Join(errs...))
}
