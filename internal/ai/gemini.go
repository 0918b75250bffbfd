package ai

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini uses the OpenAI-compatible endpoint for text and generateContent
// for images.
type Gemini struct {
	chat     *chatClient
	imageURL string
}

var _ ports.Generator = (*Gemini)(nil)

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text        string            `json:"text"`
				InlineData  *geminiInlineData `json:"inlineData"`
				InlineSnake *geminiInlineData `json:"inline_data"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// NewGemini builds a client from provider configuration.
func NewGemini(cfg config.ProviderConfig, logger *slog.Logger) (*Gemini, error) {
	if err := requireCredentials(cfg); err != nil {
		return nil, err
	}
	t := newTransport(cfg.Timeout, logger)
	effort := ParseReasoning(cfg.ReasoningEnabled, cfg.ReasoningEffort, t.logger).geminiEffort(t.logger)
	base := baseURL(cfg.BaseURL, geminiBaseURL)

	return &Gemini{
		chat: &chatClient{
			transport: t,
			provider:  ProviderGemini,
			endpoint:  base + "/openai/chat/completions",
			model:     cfg.Model,
			apiKey:    cfg.APIKey,
			decorate: func(req *chatRequest) {
				req.ReasoningEffort = effort
			},
		},
		imageURL: base + "/models/" + url.PathEscape(cfg.Model) + ":generateContent",
	}, nil
}

func (g *Gemini) Name() string { return ProviderGemini }

func (g *Gemini) Generate(ctx context.Context, req ports.GenerateRequest) domain.Outcome {
	if strings.TrimSpace(req.SystemPrompt) == "" {
		return domain.HardFailure(ErrEmptyPrompt)
	}
	switch req.Kind {
	case ports.KindText:
		return g.chat.text(ctx, req)
	case ports.KindImage:
		return g.image(ctx, req)
	}
	return domain.HardFailure(ErrUnsupportedKind)
}

func (g *Gemini) image(ctx context.Context, req ports.GenerateRequest) domain.Outcome {
	logger := g.chat.logger.With("provider", ProviderGemini, "model", g.chat.model, "request_id", uuid.NewString())

	payload := geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: imageUserPrompt(req)}}}},
		GenerationConfig: geminiGenerationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	}

	status, body, err := g.chat.postJSON(ctx, g.imageURL, map[string]string{"x-goog-api-key": g.chat.apiKey}, payload)
	if err != nil {
		return domain.HardFailure(errors.Wrap(err, "gemini image"))
	}
	if !isSuccess(status) {
		logger.Warn("image request rejected", "status", status)
		return domain.SoftFailure(body, "error")
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.HardFailure(errors.Wrap(err, "parse image response"))
	}

	var inline *geminiInlineData
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil {
				inline = part.InlineData
			} else if part.InlineSnake != nil {
				inline = part.InlineSnake
			}
			if inline != nil {
				break
			}
		}
		if inline != nil {
			break
		}
	}
	if inline == nil {
		return domain.HardFailure(ErrNoImage)
	}
	logger.Debug("inline image", "mime_type", inline.MimeType, "chars", len(inline.Data))

	data, err := decodeBase64(inline.Data)
	if err != nil {
		return domain.HardFailure(err)
	}
	outcome := classifyImage(data)
	logger.Info("image response", "outcome", outcome.Kind.String(), "bytes", len(data))
	return outcome
}
