package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Completer is the interface the generation services depend on.
// Implementations return the raw message content with markdown fences
// already stripped.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request describes a single chat completion.
type Request struct {
	// Model overrides the client's default model when set
	Model string

	// System is the system prompt
	System string

	// Payload is marshaled to JSON and sent as the user message.
	// Ignored when Text is set.
	Payload any

	// Text is a plain user message
	Text string

	// Images are image URLs attached alongside the user message
	Images []string

	// MaxTokens caps the response length (0 = provider default)
	MaxTokens int

	// JSONMode asks the model for a JSON object response
	JSONMode bool
}

// Client calls an OpenAI-compatible chat completion API.
type Client struct {
	config  *Config
	api     *openai.Client
	limiter *rate.Limiter
	retry   RetryPolicy
}

// NewClient creates a new adapter client.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	config.SetDefaults()

	apiCfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		apiCfg.BaseURL = config.BaseURL
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &Client{
		config:  config,
		api:     openai.NewClientWithConfig(apiCfg),
		limiter: limiter,
		retry:   RetryPolicy{MaxAttempts: config.MaxAttempts},
	}, nil
}

// Complete performs one chat completion, retrying transient failures.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	var content string
	err := c.retry.Do(ctx, func() error {
		var err error
		content, err = c.call(ctx, model, req)
		return err
	})
	if err != nil {
		return "", err
	}

	content = StripCodeFences(content)
	if req.JSONMode && !json.Valid([]byte(content)) {
		return "", NewParseError(content, errors.New("response is not valid JSON"))
	}
	return content, nil
}

func (c *Client) call(ctx context.Context, model string, req Request) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", NewTimeoutError(err)
		}
	}

	userText := req.Text
	if userText == "" && req.Payload != nil {
		body, err := json.Marshal(req.Payload)
		if err != nil {
			return "", fmt.Errorf("marshal payload: %w", err)
		}
		userText = string(body)
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	if len(req.Images) > 0 {
		parts := []openai.ChatMessagePart{{
			Type: openai.ChatMessagePartTypeText,
			Text: userText,
		}}
		for _, url := range req.Images {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    url,
					Detail: openai.ImageURLDetailAuto,
				},
			})
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:         openai.ChatMessageRoleUser,
			MultiContent: parts,
		})
	} else {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: userText,
		})
	}

	apiReq := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.JSONMode {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	callCtx := ctx
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(callCtx, apiReq)
	duration := time.Since(start)

	if err != nil {
		slog.Error("chat completion failed",
			"model", model,
			"duration", duration,
			"error", err.Error(),
		)
		return "", classifyAPIError(err)
	}

	slog.Debug("chat completion completed",
		"model", model,
		"duration", duration,
		"images", len(req.Images),
	)

	if len(resp.Choices) == 0 {
		return "", NewAPIError(0, "no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyAPIError maps a go-openai error to the adapter taxonomy.
func classifyAPIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewAPIError(apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewAPIError(reqErr.HTTPStatusCode, reqErr.Error())
	}

	return NewNetworkError(err)
}

// CompleteInto runs a JSON-mode completion and unmarshals the content
// into T.
func CompleteInto[T any](ctx context.Context, c Completer, req Request) (*T, error) {
	req.JSONMode = true

	content, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	content = StripCodeFences(content)

	var result T
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, NewParseError(content, err)
	}
	return &result, nil
}

// StripCodeFences removes markdown code block wrappers from content.
// Some models wrap JSON in ```json...``` despite JSON mode.
func StripCodeFences(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSpace(content)
	}

	if strings.HasSuffix(content, "```") {
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	return content
}
