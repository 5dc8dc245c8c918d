package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/comigor/resume-chat/internal/config"
	"github.com/comigor/resume-chat/internal/logger"
	"github.com/sashabaranov/go-openai"
)

var (
	// ErrTimeout is returned when the remote call exceeds the completer timeout.
	ErrTimeout = errors.New("completion service timeout")
	// ErrTransport is returned when the remote service cannot be reached at all.
	ErrTransport = errors.New("completion service unavailable")
	// ErrMalformedResponse is returned when a success response carries no completion.
	ErrMalformedResponse = errors.New("invalid completion response format")
)

// StatusError is returned when the remote service answers with a non-success status.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion service error: %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.Err }

// ChatCompleter issues one chat completion per call. It never retries.
type ChatCompleter struct {
	client      Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// NewChatCompleter binds the fixed request parameters from cfg.
func NewChatCompleter(client Client, cfg config.LLMConfig) *ChatCompleter {
	return &ChatCompleter{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

// Complete sends systemPrompt and userMessage and returns the trimmed completion.
func (c *ChatCompleter) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		classified := classify(err)
		logger.L.Error("completion call failed", "model", c.model, "error", err, "duration", time.Since(start))
		return "", classified
	}

	if len(resp.Choices) == 0 {
		logger.L.Error("completion response has no choices", "model", c.model, "id", resp.ID)
		return "", ErrMalformedResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		logger.L.Error("completion response has empty content", "model", c.model, "id", resp.ID)
		return "", ErrMalformedResponse
	}

	logger.L.Debug("completion received", "model", c.model, "duration", time.Since(start), "usage", resp.Usage.TotalTokens)
	return content, nil
}

// classify maps go-openai and transport errors onto the completer taxonomy.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	// caller-side cancellation is not a network failure
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return fmt.Errorf("%w: %w", ErrTransport, err)
}
