// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic router setup; processors, completers and verifiers injected
//   - Only the webhook and session verification are reachable without a token
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/promptpolish-backend/internal/config"
	"github.com/tbourn/promptpolish-backend/internal/http/handlers"
	"github.com/tbourn/promptpolish-backend/internal/http/middleware"
	"github.com/tbourn/promptpolish-backend/internal/repo"
	"github.com/tbourn/promptpolish-backend/internal/services"
)

// WebhookPath is where the payment processor delivers events. It lives
// outside the API base path so processor dashboards keep working when the
// API is re-versioned.
const WebhookPath = "/webhooks/stripe"

// Deps carries the external integrations. Any of them may be nil: a nil
// Verifier rejects every token, a nil Processor or Completer surfaces as a
// configuration error on the routes that need it.
type Deps struct {
	Verifier  middleware.TokenVerifier
	Processor services.Processor
	Completer services.Completer
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and Security headers
//
// Authentication, idempotency and rate limiting are attached to the API
// group (in that order) so they can see the caller's identity.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, deps Deps) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (allow all if none configured) and security headers
	useCORS(r, cfg.CORS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/integrations
	paySvc := services.NewPaymentService(db, deps.Processor, cfg.Stripe.FrontendURL, cfg.IdempotencyTTL)
	polishSvc := services.NewPolishService(deps.Completer, cfg.Groq.MaxPromptRunes, cfg.Groq.MaxTokens, cfg.Groq.Temperature)
	entSvc := services.NewEntitlementService(db, int64(cfg.Rewards.AdCredits), cfg.Rewards.AdCooldown)
	h := handlers.New(paySvc, polishSvc, entSvc)

	// Processor callbacks: authenticated by signature, not by bearer token.
	r.POST(WebhookPath, h.StripeWebhook)

	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	public := groupWithPrefix(r, apiBase)
	{
		// The success page may load before the session cookie is restored.
		public.POST("/verify-payment", h.VerifyPayment)
	}

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	idem := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scope:  services.ScopeCreatePayment,
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	)

	api := groupWithPrefix(r, apiBase)
	api.Use(
		middleware.RequireAuth(deps.Verifier, middleware.AuthOptions{Disabled: cfg.Auth.Disabled}),
		middleware.NoStore(),
	)
	{
		// Payments
		api.POST("/create-payment", idem, rl.Handler(), h.CreatePayment)

		// Polishing
		api.POST("/polish-prompt", rl.Handler(), h.PolishPrompt)

		// Entitlements
		api.GET("/credits", h.GetCredits)
		api.POST("/watch-ad-reward", rl.Handler(), h.WatchAdReward)
		api.GET("/transactions", h.ListTransactions)
	}
}

// useCORS installs gin-contrib/cors. With no allowlist every origin is
// accepted without credentials; otherwise allowed origins are echoed.
func useCORS(r *gin.Engine, cfg config.CORSConfig) {
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		middleware.HeaderIdempotencyKey, "Stripe-Signature",
	}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", "Idempotent-Replay"}

	if len(cfg.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
		return
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     allowHeaders,
		ExposeHeaders:    exposeHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
