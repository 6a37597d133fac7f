// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication. RequireAuth verifies the
// Authorization header through a TokenVerifier and stores the caller's
// identity in the Gin context ("userID", "userEmail") and in the request
// context (auth.WithClaims) for downstream handlers and middleware such as
// the rate limiter and idempotency validator.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/promptpolish-backend/internal/auth"
)

// Gin context keys carrying the authenticated identity.
const (
	ctxKeyUserID    = "userID"
	ctxKeyUserEmail = "userEmail"
)

// Messages returned with 401 responses.
const (
	MsgAuthRequired = "Authentication required"
	MsgAuthInvalid  = "Invalid authentication"
)

// TokenVerifier validates a raw bearer token and returns its claims.
// *auth.Verifier satisfies it.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthOptions configures RequireAuth.
type AuthOptions struct {
	// Disabled skips token verification and injects DevClaims. Local use only.
	Disabled  bool
	DevClaims auth.Claims
}

// RequireAuth rejects requests without a valid bearer token:
//
//	HTTP/1.1 401 Unauthorized
//	{ "request_id": "...", "code": "unauthorized", "message": "Authentication required" }
//
// A missing or non-bearer header yields "Authentication required"; a token
// that fails verification yields "Invalid authentication".
func RequireAuth(v TokenVerifier, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Disabled {
			claims := opts.DevClaims
			if claims.Subject == "" {
				claims.Subject = "local-user"
			}
			if claims.Email == "" {
				claims.Email = "local-user@localhost"
			}
			setIdentity(c, &claims)
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c, MsgAuthRequired)
			return
		}
		if v == nil {
			unauthorized(c, MsgAuthInvalid)
			return
		}
		claims, err := v.Verify(token)
		if err != nil || claims == nil || claims.Subject == "" {
			if err != nil {
				LoggerFrom(c).Debug().Err(err).Msg("token rejected")
			}
			unauthorized(c, MsgAuthInvalid)
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// UserID returns the authenticated user id, or "" before RequireAuth ran.
func UserID(c *gin.Context) string {
	v, _ := c.Get(ctxKeyUserID)
	return asString(v)
}

// UserEmail returns the authenticated user's email claim, which may be "".
func UserEmail(c *gin.Context) string {
	v, _ := c.Get(ctxKeyUserEmail)
	return asString(v)
}

func setIdentity(c *gin.Context, claims *auth.Claims) {
	c.Set(ctxKeyUserID, claims.Subject)
	c.Set(ctxKeyUserEmail, claims.Email)
	c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), claims))
}

// bearerToken extracts the token from an "Authorization: Bearer <t>" value.
// The scheme is matched case-insensitively.
func bearerToken(h string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": GetRequestID(c),
		"code":       "unauthorized",
		"message":    msg,
	})
}
