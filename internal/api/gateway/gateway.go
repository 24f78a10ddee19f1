// Package gateway exposes one Generate call over interchangeable language
// model providers. Exactly one provider is selected from configuration at
// startup; retry policy belongs to callers.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ProviderTimeoutError reports that a provider call exceeded the configured
// per-call timeout. The underlying transport call is cancelled, not merely
// abandoned.
type ProviderTimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *ProviderTimeoutError) Error() string {
	return fmt.Sprintf("%s call timed out after %s", e.Provider, e.Timeout)
}

// ProviderAPIError reports a non-timeout provider failure: transport errors,
// a malformed provider envelope, or empty content.
type ProviderAPIError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ProviderAPIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s API error: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Reason)
}

func (e *ProviderAPIError) Unwrap() error { return e.Err }

// Config selects the provider, model and per-call timeout. Read once at
// process start and passed by reference; no ambient provider globals.
type Config struct {
	Provider string
	Model    string
	Timeout  time.Duration
}

// provider is the minimal surface a backing model client has to offer.
type provider interface {
	generate(ctx context.Context, prompt string) (string, error)
}

// Gateway is the uniform generate(prompt) -> text entry point.
type Gateway struct {
	cfg      Config
	provider provider
	logger   *slog.Logger
	metrics  *metrics.AppMetrics
}

// New builds a Gateway for the configured provider. Provider API keys are
// read from the environment the same way the clients themselves expect them.
func New(ctx context.Context, cfg Config, logger *slog.Logger, m *metrics.AppMetrics) (*Gateway, error) {
	var (
		p   provider
		err error
	)
	switch cfg.Provider {
	case ProviderGemini, "":
		cfg.Provider = ProviderGemini
		p, err = newGeminiProvider(ctx, cfg.Model)
	case ProviderOpenAI:
		p, err = newOpenAIProvider(cfg.Model)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s provider: %w", cfg.Provider, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &Gateway{cfg: cfg, provider: p, logger: logger, metrics: m}, nil
}

// Generate sends one prompt to the configured provider. The call is bounded
// by the configured timeout through context cancellation, so a timed-out
// request is aborted on the transport as well.
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	if g.metrics != nil {
		g.metrics.AICallsTotal.Add(ctx, 1)
	}
	start := time.Now()

	text, err := g.provider.generate(callCtx, prompt)
	if err != nil {
		if g.metrics != nil {
			g.metrics.AICallErrorsTotal.Add(ctx, 1)
		}
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return "", &ProviderTimeoutError{Provider: g.cfg.Provider, Timeout: g.cfg.Timeout}
		}
		var apiErr *ProviderAPIError
		if errors.As(err, &apiErr) {
			return "", err
		}
		return "", &ProviderAPIError{Provider: g.cfg.Provider, Reason: "request failed", Err: err}
	}
	if text == "" {
		if g.metrics != nil {
			g.metrics.AICallErrorsTotal.Add(ctx, 1)
		}
		return "", &ProviderAPIError{Provider: g.cfg.Provider, Reason: "empty content"}
	}

	g.logger.InfoContext(ctx, "AI generation completed",
		slog.String("provider", g.cfg.Provider),
		slog.String("model", g.cfg.Model),
		slog.Int("response_length", len(text)),
		slog.Duration("latency", time.Since(start)),
	)
	return text, nil
}
