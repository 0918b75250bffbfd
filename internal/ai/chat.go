package ai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

var (
	// ErrEmptyChoices means the backend answered without any choice.
	ErrEmptyChoices = errors.New("provider returned empty choices")
	// ErrNoImage means an image response carried no usable image data.
	ErrNoImage = errors.New("provider returned no image data")
	// ErrUnsupportedKind is returned for request kinds a backend cannot serve.
	ErrUnsupportedKind = errors.New("request kind not supported by provider")
	// ErrEmptyPrompt rejects requests without instructions.
	ErrEmptyPrompt = errors.New("prompt is empty")
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model           string               `json:"model"`
	Messages        []chatMessage        `json:"messages"`
	Modalities      []string             `json:"modalities,omitempty"`
	Reasoning       *openRouterReasoning `json:"reasoning,omitempty"`
	ReasoningEffort string               `json:"reasoning_effort,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Images  []struct {
				ImageURL *struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// chatClient speaks the OpenAI-compatible chat completions dialect.
type chatClient struct {
	transport
	provider string
	endpoint string
	model    string
	apiKey   string
	decorate func(*chatRequest)
}

func (c *chatClient) send(ctx context.Context, req chatRequest) (int, []byte, error) {
	req.Model = c.model
	if c.decorate != nil {
		c.decorate(&req)
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	return c.postJSON(ctx, c.endpoint, headers, req)
}

// text runs a system+user completion and classifies the answer.
func (c *chatClient) text(ctx context.Context, req ports.GenerateRequest) domain.Outcome {
	requestID := uuid.NewString()
	logger := c.logger.With("provider", c.provider, "model", c.model, "request_id", requestID)
	logger.Debug("chat request",
		"prompt_len", len(req.SystemPrompt),
		"content_len", len(req.UserContent))

	status, body, err := c.send(ctx, chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserContent},
		},
	})
	if err != nil {
		logger.Warn("chat request failed", "error", err)
		return domain.HardFailure(errors.Wrapf(err, "%s chat", c.provider))
	}

	outcome := classifyChat(status, body)
	logger.Info("chat response",
		"status", status,
		"outcome", outcome.Kind.String(),
		"finish_reason", outcome.FinishReason,
		"payload_len", len(outcome.Payload))
	return outcome
}

// classifyChat maps an HTTP status and body onto an outcome.
func classifyChat(status int, body []byte) domain.Outcome {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.HardFailure(errors.Wrapf(err, "parse response (status %d)", status))
	}
	if len(resp.Choices) == 0 {
		return domain.HardFailure(errors.Wrapf(ErrEmptyChoices, "status %d", status))
	}

	choice := resp.Choices[0]
	finish := ""
	if choice.FinishReason != nil {
		finish = strings.TrimSpace(*choice.FinishReason)
	}
	content := ExtractHTML(choice.Message.Content)

	if !isSuccess(status) {
		return domain.SoftFailure([]byte(content), "error")
	}
	if finish == "error" || finish == "length" {
		return domain.SoftFailure([]byte(content), finish)
	}
	if !LooksLikeHTML(content) {
		return domain.SoftFailure([]byte(content), "error")
	}
	return domain.Success([]byte(content), finish)
}

func imageUserPrompt(req ports.GenerateRequest) string {
	return req.SystemPrompt + "\n\n" + req.UserContent
}
