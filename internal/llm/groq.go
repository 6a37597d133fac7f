// Package llm adapts an OpenAI-compatible chat-completion API (Groq) to the
// services.Completer contract.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tbourn/promptpolish-backend/internal/config"
	"github.com/tbourn/promptpolish-backend/internal/services"
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// Groq is a services.Completer backed by go-openai.
type Groq struct {
	client *openai.Client
	model  string
}

// NewGroq returns a completer, or nil when cfg carries no API key.
func NewGroq(cfg config.GroqConfig) *Groq {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil
	}
	oc := openai.DefaultConfig(key)
	oc.BaseURL = DefaultBaseURL
	if u := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); u != "" {
		oc.BaseURL = u
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	model := cfg.Model
	if model == "" {
		model = "llama3-8b-8192"
	}
	return &Groq{client: openai.NewClientWithConfig(oc), model: model}
}

// Complete sends a system+user chat completion and returns the first
// choice's content. Failures are returned as *services.UpstreamError.
func (g *Groq) Complete(ctx context.Context, req services.CompletionRequest) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &services.UpstreamError{Message: services.MsgUpstreamMalformed, Detail: services.DetailMissingFields, Malformed: true}
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps a provider failure to the user-facing message.
func classify(err error) *services.UpstreamError {
	detail := err.Error()
	status := 0

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		detail = strings.TrimSpace(fmt.Sprintf("%s %v %s", apiErr.Message, apiErr.Code, apiErr.Type))
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		detail = strings.TrimSpace(string(reqErr.Body) + " " + reqErr.Error())
		status = reqErr.HTTPStatusCode
	}

	low := strings.ToLower(detail)
	msg := services.MsgUpstreamGeneric
	switch {
	case strings.Contains(low, "rate_limit") || status == http.StatusTooManyRequests:
		msg = services.MsgUpstreamRateLimited
	case strings.Contains(low, "invalid_api_key"):
		msg = services.MsgUpstreamInvalidAPIKey
	}
	return &services.UpstreamError{Message: msg, Detail: detail, Err: err}
}
