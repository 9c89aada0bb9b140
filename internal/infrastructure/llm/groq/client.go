package groq

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ivgusev/queryrouter/internal/core/ports"
	"github.com/ivgusev/queryrouter/internal/infrastructure/resilience"
)

// The pipeline runs every completion at a low, fixed temperature: intent
// labels and city names must come back stable.
const (
	samplingTemperature = 0.1
	maxCompletionTokens = 1000
)

// Client talks to Groq's OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey, model string) *Client {
	return NewWithOptions(baseURL, apiKey, model, Options{})
}

func NewWithOptions(baseURL, apiKey, model string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// Complete sends role-tagged messages and returns the model's text.
func (c *Client) Complete(ctx context.Context, messages []ports.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("groq complete: no messages")
	}

	request := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": samplingTemperature,
		"max_tokens":  maxCompletionTokens,
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/openai/v1/chat/completions", request, &response, "complete")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "groq.complete", call, classifyGroqError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", err
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("groq complete: empty choices")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
