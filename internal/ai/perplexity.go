package ai

import (
	"context"
	"log/slog"
	"strings"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const perplexityBaseURL = "https://api.perplexity.ai"

// Perplexity is a text-only backend.
type Perplexity struct {
	chat *chatClient
}

var _ ports.Generator = (*Perplexity)(nil)

// NewPerplexity builds a client from provider configuration.
func NewPerplexity(cfg config.ProviderConfig, logger *slog.Logger) (*Perplexity, error) {
	if err := requireCredentials(cfg); err != nil {
		return nil, err
	}
	t := newTransport(cfg.Timeout, logger)
	effort := ParseReasoning(cfg.ReasoningEnabled, cfg.ReasoningEffort, t.logger).perplexityEffort(t.logger)

	return &Perplexity{chat: &chatClient{
		transport: t,
		provider:  ProviderPerplexity,
		endpoint:  baseURL(cfg.BaseURL, perplexityBaseURL) + "/chat/completions",
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		decorate: func(req *chatRequest) {
			req.ReasoningEffort = effort
		},
	}}, nil
}

func (p *Perplexity) Name() string { return ProviderPerplexity }

func (p *Perplexity) Generate(ctx context.Context, req ports.GenerateRequest) domain.Outcome {
	if strings.TrimSpace(req.SystemPrompt) == "" {
		return domain.HardFailure(ErrEmptyPrompt)
	}
	if req.Kind != ports.KindText {
		return domain.HardFailure(ErrUnsupportedKind)
	}
	return p.chat.text(ctx, req)
}
