// Package services – PolishService
//
// This file implements prompt enhancement: it validates the user's prompt,
// canonicalises the target platform and goal, and asks a chat-completion
// provider to rewrite the prompt for that platform and goal.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
)

// CompletionRequest is a single system+user chat completion.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Completer is the text-completion contract required by PolishService.
// Implementations return *UpstreamError for provider failures.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// PolishInput is the enhancement request.
type PolishInput struct {
	Prompt   string
	Platform string
	Goal     string
}

// Platforms and goals offered by the client.
var (
	Platforms = []string{"ChatGPT", "Claude", "Midjourney", "DALL·E", "Stable Diffusion", "GitHub Copilot", "Other"}
	Goals     = []string{"Informative", "Persuasive", "Creative/Storytelling", "Coding", "Visual/Descriptive", "Technical Documentation"}
)

const systemInstruction = "You are an expert prompt engineer. Your task is to enhance and optimize prompts for different AI platforms and goals. You must respond ONLY with the enhanced prompt - no explanations, no additional text, just the improved prompt itself."

// PolishService rewrites prompts through a Completer.
type PolishService struct {
	Completer Completer

	// MaxPromptRunes caps the accepted prompt length; <= 0 disables the cap.
	MaxPromptRunes int
	MaxTokens      int
	Temperature    float32

	platforms map[string]string
	goals     map[string]string
}

// NewPolishService constructs a PolishService. A nil completer is allowed;
// Polish then fails with ErrCompletionNotConfigured.
func NewPolishService(c Completer, maxPromptRunes, maxTokens int, temperature float32) *PolishService {
	return &PolishService{
		Completer:      c,
		MaxPromptRunes: maxPromptRunes,
		MaxTokens:      maxTokens,
		Temperature:    temperature,
		platforms:      foldIndex(Platforms),
		goals:          foldIndex(Goals),
	}
}

// Polish returns the enhanced prompt.
func (s *PolishService) Polish(ctx context.Context, in PolishInput) (string, error) {
	tr := otel.Tracer("services/PolishService")
	ctx, span := tr.Start(ctx, "Polish",
		trace.WithAttributes(
			attribute.String("polish.platform", in.Platform),
			attribute.String("polish.goal", in.Goal),
			attribute.Int("polish.prompt_runes", utf8.RuneCountInString(in.Prompt)),
		),
	)
	defer span.End()

	if s.Completer == nil {
		polishOutcomes.WithLabelValues("unconfigured").Inc()
		return "", ErrCompletionNotConfigured
	}

	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		polishOutcomes.WithLabelValues("invalid").Inc()
		return "", ErrEmptyPrompt
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(prompt) > s.MaxPromptRunes {
		polishOutcomes.WithLabelValues("invalid").Inc()
		return "", ErrPromptTooLong
	}
	platform := strings.TrimSpace(in.Platform)
	goal := strings.TrimSpace(in.Goal)
	if platform == "" || goal == "" {
		polishOutcomes.WithLabelValues("invalid").Inc()
		return "", ErrMissingSelector
	}

	platform = canonical(s.platforms, platform)
	goal = canonical(s.goals, goal)

	start := time.Now()
	out, err := s.Completer.Complete(ctx, CompletionRequest{
		System:      systemInstruction,
		User:        userInstruction(prompt, platform, goal),
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
	})
	polishDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		polishOutcomes.WithLabelValues("upstream_error").Inc()
		var ue *UpstreamError
		if errors.As(err, &ue) {
			return "", ue
		}
		return "", &UpstreamError{Message: MsgUpstreamGeneric, Detail: err.Error(), Err: err}
	}

	// An empty completion is passed through as an empty prompt.
	polishOutcomes.WithLabelValues("ok").Inc()
	return strings.TrimSpace(out), nil
}

// userInstruction renders the per-request instruction sent with the prompt.
func userInstruction(prompt, platform, goal string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Enhance this prompt: \"%s\" to work better with %s for %s purposes. \n\n", prompt, platform, goal)
	b.WriteString("Requirements:\n")
	b.WriteString("- Make it clear and specific\n")
	fmt.Fprintf(&b, "- Use appropriate formatting for %s\n", platform)
	fmt.Fprintf(&b, "- Optimize for %s outcomes\n", goal)
	b.WriteString("- Include relevant context and constraints\n")
	b.WriteString("- Follow best practices for prompt engineering\n\n")
	b.WriteString("IMPORTANT: Respond with ONLY the enhanced prompt, no explanations or additional text.")
	return b.String()
}

// foldIndex maps the case-folded form of each value to the value itself.
func foldIndex(values []string) map[string]string {
	fold := cases.Fold()
	m := make(map[string]string, len(values))
	for _, v := range values {
		m[fold.String(v)] = v
	}
	return m
}

// canonical returns the known spelling of v, or v unchanged when unknown.
// A Caser is stateful, so each call folds with its own.
func canonical(index map[string]string, v string) string {
	if known, ok := index[cases.Fold().String(v)]; ok {
		return known
	}
	return v
}
