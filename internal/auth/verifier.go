// Package auth verifies bearer identity tokens issued by the hosted
// identity provider. Signing keys are fetched from, and periodically
// refreshed against, the provider's JWKS endpoint.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tbourn/promptpolish-backend/internal/config"
)

const defaultLeeway = 30 * time.Second

// ErrMissingSubject is returned for a valid token without a sub claim.
var ErrMissingSubject = errors.New("token missing sub")

// Verifier validates identity tokens against a JWKS endpoint.
type Verifier struct {
	issuer   string
	audience string
	keyfunc  keyfunc.Keyfunc
	parser   *jwt.Parser
}

// NewVerifier builds a verifier from cfg. Issuer is optional; when set the
// iss claim must match it exactly. The JWKS refresh goroutine stops when ctx
// is cancelled.
func NewVerifier(ctx context.Context, cfg config.AuthConfig) (*Verifier, error) {
	jwksURL := strings.TrimSpace(cfg.JWKSURL)
	if jwksURL == "" {
		return nil, errors.New("auth: JWKS URL must be set")
	}

	keyProvider, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("auth: failed to init JWKS keyfunc: %w", err)
	}

	opts := []jwt.ParserOption{
		jwt.WithLeeway(defaultLeeway),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{
			jwt.SigningMethodRS256.Name, jwt.SigningMethodRS384.Name, jwt.SigningMethodRS512.Name,
			jwt.SigningMethodES256.Name,
		}),
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	return &Verifier{
		issuer:   issuer,
		audience: audience,
		keyfunc:  keyProvider,
		parser:   jwt.NewParser(opts...),
	}, nil
}

// Verify parses and validates a token, returning extracted claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := v.parser.Parse(tokenString, v.keyfunc.Keyfunc)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	claims := &Claims{
		Subject:   readString(mapClaims, "sub"),
		Email:     readString(mapClaims, "email"),
		Issuer:    readString(mapClaims, "iss"),
		Audience:  readAudience(mapClaims["aud"]),
		ExpiresAt: readExpiry(mapClaims["exp"]),
		Raw:       mapClaims,
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

func readString(claims jwt.MapClaims, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}

func readAudience(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	default:
		return nil
	}
}

func readExpiry(raw any) time.Time {
	switch v := raw.(type) {
	case float64:
		return time.Unix(int64(v), 0)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return time.Unix(i, 0)
		}
	case int64:
		return time.Unix(v, 0)
	}
	return time.Time{}
}
