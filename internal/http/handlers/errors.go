// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them. Every
// error response carries an HTTP status and one of these codes.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "upstream_error",
//	  "message": "Rate limit exceeded. Please wait a moment and try again.",
//	  "details": "Rate limit reached for model llama3-8b-8192 (rate_limit_exceeded)"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/promptpolish-backend/internal/http/middleware"
	"github.com/tbourn/promptpolish-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeConfig      = "config_error"
	ErrCodeProcessor   = "processor_error"
	ErrCodeUpstream    = "upstream_error"
	ErrCodePersistence = "persistence_error"
)

// failService maps a service error onto the error envelope. Unknown errors
// become 500 internal_error.
func failService(c *gin.Context, err error) {
	var ue *services.UpstreamError
	switch {
	case errors.As(err, &ue):
		failDetails(c, http.StatusInternalServerError, ErrCodeUpstream, ue.Message, ue.Detail)

	case errors.Is(err, services.ErrUnauthenticated):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, middleware.MsgAuthRequired)

	case errors.Is(err, services.ErrInvalidPurchaseType):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid purchase type")
	case errors.Is(err, services.ErrInvalidPurchase):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amount and credits must be positive")
	case errors.Is(err, services.ErrMissingSessionID):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id is required")
	case errors.Is(err, services.ErrEmptyPrompt):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "originalPrompt is required")
	case errors.Is(err, services.ErrPromptTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "originalPrompt is too long")
	case errors.Is(err, services.ErrMissingSelector):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "platform and goal are required")
	case errors.Is(err, services.ErrInvalidWebhook):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid webhook signature or payload")

	case errors.Is(err, services.ErrCompletionNotConfigured):
		failDetails(c, http.StatusInternalServerError, ErrCodeConfig, err.Error(), "GROQ_API_KEY not found")
	case errors.Is(err, services.ErrProcessorNotConfigured),
		errors.Is(err, services.ErrWebhookNotConfigured):
		fail(c, http.StatusInternalServerError, ErrCodeConfig, err.Error())

	case errors.Is(err, services.ErrRewardCooldown):
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, "Ad reward already claimed, please wait before watching another ad")

	case errors.Is(err, services.ErrProcessor):
		failLogged(c, err, http.StatusInternalServerError, ErrCodeProcessor, "payment processor request failed")
	case errors.Is(err, services.ErrPersistence):
		failLogged(c, err, http.StatusInternalServerError, ErrCodePersistence, "could not record the operation")

	default:
		failLogged(c, err, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// failLogged is fail for errors whose cause must not reach the client.
func failLogged(c *gin.Context, err error, status int, code, msg string) {
	_ = c.Error(err)
	fail(c, status, code, msg)
}
