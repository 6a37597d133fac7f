package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/promptpolish-backend/internal/auth"
	"github.com/tbourn/promptpolish-backend/internal/domain"
	"github.com/tbourn/promptpolish-backend/internal/http/middleware"
	"github.com/tbourn/promptpolish-backend/internal/services"
)

// ---------- service stubs ----------

type stubPaySvc struct {
	create  func(context.Context, string, string, services.CheckoutInput) (*services.CheckoutResult, error)
	verify  func(context.Context, string) (*services.VerifyResult, error)
	webhook func(context.Context, []byte, string) (*services.VerifyResult, error)
}

func (s stubPaySvc) CreateCheckout(ctx context.Context, u, e string, in services.CheckoutInput) (*services.CheckoutResult, error) {
	if s.create != nil {
		return s.create(ctx, u, e, in)
	}
	return &services.CheckoutResult{URL: "https://checkout/cs_1", SessionID: "cs_1"}, nil
}

func (s stubPaySvc) Verify(ctx context.Context, id string) (*services.VerifyResult, error) {
	if s.verify != nil {
		return s.verify(ctx, id)
	}
	return &services.VerifyResult{}, nil
}

func (s stubPaySvc) HandleWebhook(ctx context.Context, p []byte, sig string) (*services.VerifyResult, error) {
	if s.webhook != nil {
		return s.webhook(ctx, p, sig)
	}
	return nil, nil
}

type stubPolishSvc struct {
	polish func(context.Context, services.PolishInput) (string, error)
}

func (s stubPolishSvc) Polish(ctx context.Context, in services.PolishInput) (string, error) {
	if s.polish != nil {
		return s.polish(ctx, in)
	}
	return "polished", nil
}

type stubEntSvc struct {
	get   func(context.Context, string, string) (*domain.Entitlement, error)
	grant func(context.Context, string, string) (*services.AdRewardResult, error)
	list  func(context.Context, string, int, int) ([]domain.Transaction, int64, error)
	stats func(context.Context, string) (int64, *time.Time, error)
}

func (s stubEntSvc) Get(ctx context.Context, u, e string) (*domain.Entitlement, error) {
	if s.get != nil {
		return s.get(ctx, u, e)
	}
	return &domain.Entitlement{UserID: u, Email: e}, nil
}

func (s stubEntSvc) GrantAdReward(ctx context.Context, u, e string) (*services.AdRewardResult, error) {
	if s.grant != nil {
		return s.grant(ctx, u, e)
	}
	return &services.AdRewardResult{CreditsAdded: 3, CurrentCredits: 3}, nil
}

func (s stubEntSvc) ListTransactions(ctx context.Context, u string, p, ps int) ([]domain.Transaction, int64, error) {
	if s.list != nil {
		return s.list(ctx, u, p, ps)
	}
	return []domain.Transaction{}, 0, nil
}

func (s stubEntSvc) TransactionsStats(ctx context.Context, u string) (int64, *time.Time, error) {
	if s.stats != nil {
		return s.stats(ctx, u)
	}
	return 0, nil, nil
}

// ---------- router + request helpers ----------

// staticVerifier accepts any token and returns a copy of its claims.
type staticVerifier struct{ claims auth.Claims }

func (v staticVerifier) Verify(string) (*auth.Claims, error) {
	c := v.claims
	return &c, nil
}

// identityFor runs RequireAuth with a verifier that yields claims as-is;
// nil skips auth.
func identityFor(claims *auth.Claims) gin.HandlerFunc {
	if claims == nil {
		return func(c *gin.Context) { c.Next() }
	}
	requireAuth := middleware.RequireAuth(staticVerifier{claims: *claims}, middleware.AuthOptions{})
	return func(c *gin.Context) {
		c.Request.Header.Set("Authorization", "Bearer test-token")
		requireAuth(c)
	}
}

func newTestRouter(h *Handlers, claims *auth.Claims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.POST("/verify-payment", h.VerifyPayment)
	r.POST("/webhooks/stripe", h.StripeWebhook)

	api := r.Group("")
	api.Use(identityFor(claims))
	api.POST("/create-payment",
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{Scope: services.ScopeCreatePayment}, nil),
		h.CreatePayment)
	api.POST("/polish-prompt", h.PolishPrompt)
	api.GET("/credits", h.GetCredits)
	api.POST("/watch-ad-reward", h.WatchAdReward)
	api.GET("/transactions", h.ListTransactions)
	return r
}

var alice = &auth.Claims{Subject: "user-a", Email: "alice@example.com"}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, w.Body.String())
	}
	return er
}
