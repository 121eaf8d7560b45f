// internal/llm/client.go
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"company-intel/internal/common/config"
	commonhttp "company-intel/internal/common/http"
	"company-intel/internal/common/logger"
)

var (
	ErrLLMTimeout       = errors.New("LLM_TIMEOUT")
	ErrLLMRequestFailed = errors.New("LLM_REQUEST_FAILED")
)

// Completer produces a chat completion. Agents depend on this rather than on
// a concrete client.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one completion call. Zero Temperature and MaxTokens fall back
// to the client configuration.
type Request struct {
	Messages    []Message
	Temperature *float64
	MaxTokens   int
}

// UserPrompt wraps a single prompt in a user message.
func UserPrompt(prompt string) Request {
	return Request{Messages: []Message{{Role: "user", Content: prompt}}}
}

type Response struct {
	Content      string
	Model        string
	FinishReason string
	Usage        Usage
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	Timeout     time.Duration
}

// ConfigFrom maps the llm config section.
func ConfigFrom(cfg config.LLMConfig) Config {
	return Config{
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		MaxRetries:  cfg.MaxRetries,
		Timeout:     config.GetDuration(cfg.Timeout),
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage     `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	config Config
	http   *commonhttp.Client
	logger logger.Logger
}

func NewClient(cfg Config, log logger.Logger) *Client {
	return &Client{
		config: cfg,
		// deadlines come from the context
		http: commonhttp.NewClient(0, commonhttp.WithRetries(cfg.MaxRetries)),
		logger: log.With(map[string]interface{}{
			"component": "llm",
			"model":     cfg.Model,
		}),
	}
}

func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	body := chatRequest{
		Model:       c.config.Model,
		Messages:    req.Messages,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}
	if req.Temperature != nil {
		body.Temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}

	headers := map[string]string{"Authorization": "Bearer " + c.config.APIKey}

	start := time.Now()
	var out chatResponse
	err := c.http.DoJSON(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", headers, body, &out)
	if err != nil {
		return nil, c.mapError(err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrLLMRequestFailed, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: response has no choices", ErrLLMRequestFailed)
	}

	c.logger.Debug("completion received", map[string]interface{}{
		"durationMs":       time.Since(start).Milliseconds(),
		"promptTokens":     out.Usage.PromptTokens,
		"completionTokens": out.Usage.CompletionTokens,
		"finishReason":     out.Choices[0].FinishReason,
	})

	return &Response{
		Content:      out.Choices[0].Message.Content,
		Model:        out.Model,
		FinishReason: out.Choices[0].FinishReason,
		Usage:        out.Usage,
	}, nil
}

// Prompt sends a single user message and returns the answer text.
func (c *Client) Prompt(ctx context.Context, prompt string) (string, error) {
	resp, err := c.Complete(ctx, UserPrompt(prompt))
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (c *Client) mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrLLMTimeout, err)
	}
	var statusErr *commonhttp.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("%w: %s", ErrLLMRequestFailed, describeStatus(statusErr))
	}
	return fmt.Errorf("%w: %v", ErrLLMRequestFailed, err)
}

// describeStatus surfaces the API's own error message when the body has one.
func describeStatus(e *commonhttp.StatusError) string {
	var body struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil && body.Error != nil && body.Error.Message != "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, body.Error.Message)
	}
	return e.Error()
}
