// Package services defines the business logic for checkout, payment
// fulfilment, entitlements, ad rewards and prompt enhancement.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Authentication.
var (
	// ErrUnauthenticated is returned when no caller identity is available.
	ErrUnauthenticated = errors.New("authentication required")
)

// Validation errors.
var (
	// ErrInvalidPurchaseType is returned when the purchase type is neither
	// "credits" nor "forever".
	ErrInvalidPurchaseType = errors.New("invalid purchase type")

	// ErrInvalidPurchase is returned for a well-typed purchase whose amount
	// or credit count is not positive.
	ErrInvalidPurchase = errors.New("invalid purchase")

	// ErrMissingSessionID is returned by verification when session_id is blank.
	ErrMissingSessionID = errors.New("session_id is required")

	// ErrEmptyPrompt is returned when the prompt to enhance is blank.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrPromptTooLong is returned when the prompt exceeds the configured
	// maximum rune length.
	ErrPromptTooLong = errors.New("prompt too long")

	// ErrMissingSelector is returned when platform or goal is blank.
	ErrMissingSelector = errors.New("platform and goal are required")

	// ErrInvalidWebhook is returned when a webhook payload fails signature
	// verification or cannot be decoded.
	ErrInvalidWebhook = errors.New("invalid webhook payload")
)

// Configuration errors.
var (
	ErrProcessorNotConfigured  = errors.New("payment processor is not configured")
	ErrCompletionNotConfigured = errors.New("Groq API key is not configured properly.")
	ErrWebhookNotConfigured    = errors.New("webhook secret is not configured")
)

// Dependency failures. Callers wrap the underlying cause with %w.
var (
	// ErrProcessor marks a failed call to the payment processor.
	ErrProcessor = errors.New("payment processor error")

	// ErrPersistence marks a failed ledger read or write.
	ErrPersistence = errors.New("persistence error")
)

// ErrRewardCooldown is returned when an ad reward is claimed before the
// cooldown since the previous claim has elapsed.
var ErrRewardCooldown = errors.New("ad reward already claimed recently")

// UpstreamError describes a failed text-completion call. Message is safe to
// show to end users; Detail carries the provider's own message.
type UpstreamError struct {
	Message string
	Detail  string
	// Malformed is set when the provider answered but the response carried
	// no usable completion.
	Malformed bool
	Err       error
}

func (e *UpstreamError) Error() string { return e.Message }

func (e *UpstreamError) Unwrap() error { return e.Err }

// User-facing upstream messages.
const (
	MsgUpstreamRateLimited   = "Rate limit exceeded. Please wait a moment and try again."
	MsgUpstreamInvalidAPIKey = "Invalid Groq API key. Please check your API key configuration."
	MsgUpstreamGeneric       = "Failed to polish prompt. Please try again."
	MsgUpstreamMalformed     = "Invalid response structure from Groq API"

	// DetailMissingFields accompanies MsgUpstreamMalformed.
	DetailMissingFields = "Missing expected response fields"
)
