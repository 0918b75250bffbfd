package ai

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouter generates text and images through openrouter.ai.
type OpenRouter struct {
	chat *chatClient
}

var _ ports.Generator = (*OpenRouter)(nil)

// NewOpenRouter builds a client from provider configuration.
func NewOpenRouter(cfg config.ProviderConfig, logger *slog.Logger) (*OpenRouter, error) {
	if err := requireCredentials(cfg); err != nil {
		return nil, err
	}
	t := newTransport(cfg.Timeout, logger)
	reasoning := ParseReasoning(cfg.ReasoningEnabled, cfg.ReasoningEffort, t.logger)

	return &OpenRouter{chat: &chatClient{
		transport: t,
		provider:  ProviderOpenRouter,
		endpoint:  baseURL(cfg.BaseURL, openRouterBaseURL) + "/chat/completions",
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		decorate: func(req *chatRequest) {
			req.Reasoning = reasoning.openRouter()
		},
	}}, nil
}

// Name identifies the backend inside the registry.
func (o *OpenRouter) Name() string { return ProviderOpenRouter }

// Generate dispatches on the request kind.
func (o *OpenRouter) Generate(ctx context.Context, req ports.GenerateRequest) domain.Outcome {
	if strings.TrimSpace(req.SystemPrompt) == "" {
		return domain.HardFailure(ErrEmptyPrompt)
	}
	switch req.Kind {
	case ports.KindText:
		return o.chat.text(ctx, req)
	case ports.KindImage:
		return o.image(ctx, req)
	}
	return domain.HardFailure(ErrUnsupportedKind)
}

func (o *OpenRouter) image(ctx context.Context, req ports.GenerateRequest) domain.Outcome {
	logger := o.chat.logger.With("provider", ProviderOpenRouter, "model", o.chat.model, "request_id", uuid.NewString())
	logger.Debug("image request", "prompt_len", len(req.SystemPrompt), "content_len", len(req.UserContent))

	status, body, err := o.chat.send(ctx, chatRequest{
		Messages:   []chatMessage{{Role: "user", Content: imageUserPrompt(req)}},
		Modalities: []string{"image", "text"},
	})
	if err != nil {
		return domain.HardFailure(errors.Wrap(err, "openrouter image"))
	}
	if !isSuccess(status) {
		logger.Warn("image request rejected", "status", status)
		return domain.SoftFailure(body, "error")
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.HardFailure(errors.Wrap(err, "parse image response"))
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Images) == 0 ||
		resp.Choices[0].Message.Images[0].ImageURL == nil {
		return domain.HardFailure(ErrNoImage)
	}
	url := resp.Choices[0].Message.Images[0].ImageURL.URL

	var data []byte
	if b64, ok := dataURLBase64(url); ok {
		data, err = decodeBase64(b64)
		if err != nil {
			return domain.HardFailure(err)
		}
	} else {
		logger.Debug("downloading generated image", "url", url)
		code, raw, dlErr := o.chat.get(ctx, url)
		if dlErr != nil {
			return domain.HardFailure(errors.Wrap(dlErr, "download image"))
		}
		if !isSuccess(code) {
			return domain.HardFailure(errors.Newf("download image: status %d", code))
		}
		data = raw
	}

	outcome := classifyImage(data)
	logger.Info("image response", "outcome", outcome.Kind.String(), "bytes", len(data))
	return outcome
}
