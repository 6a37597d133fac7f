// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by all endpoints:
//   - fail() writes the ErrorResponse envelope and logs 5xx with the
//     request-scoped logger.
//   - ok() writes success responses in a consistent shape.
//
// Example error response:
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "bad_request",
//	  "message": "Invalid purchase type"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/promptpolish-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"bad_request"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"Invalid purchase type"`
	// Provider detail for upstream failures
	Details string `json:"details,omitempty" example:"rate_limit_exceeded"`
}

// fail aborts the request with a structured error. Server errors (>=500)
// are logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	failDetails(c, status, code, msg, "")
}

func failDetails(c *gin.Context, status int, code, msg, details string) {
	reqID := middleware.GetRequestID(c)
	if reqID == "" {
		reqID = c.Writer.Header().Get("X-Request-ID")
	}

	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg)
		if details != "" {
			ev = ev.Str("details", details)
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("cause", c.Errors.Last().Error())
		}
		ev.Msg("api error")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
		Details:   details,
	})
}

// Fail is the exported variant of fail() for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
