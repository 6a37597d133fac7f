// Package handlers exposes the PromptPolish REST endpoints.
//
// Handlers are transport-thin: they bind JSON, read the caller identity set
// by middleware.RequireAuth, call application services and translate
// results (or service errors) into HTTP responses.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/promptpolish-backend/internal/domain"
	"github.com/tbourn/promptpolish-backend/internal/http/middleware"
	"github.com/tbourn/promptpolish-backend/internal/services"
	"github.com/tbourn/promptpolish-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// PaymentService opens checkouts and fulfils paid sessions.
type PaymentService interface {
	CreateCheckout(ctx context.Context, userID, email string, in services.CheckoutInput) (*services.CheckoutResult, error)
	Verify(ctx context.Context, sessionID string) (*services.VerifyResult, error)
	// HandleWebhook returns (nil, nil) for events that are acknowledged but ignored.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*services.VerifyResult, error)
}

// PolishService rewrites prompts.
type PolishService interface {
	Polish(ctx context.Context, in services.PolishInput) (string, error)
}

// EntitlementService reads balances, grants ad rewards and lists purchases.
type EntitlementService interface {
	Get(ctx context.Context, userID, email string) (*domain.Entitlement, error)
	GrantAdReward(ctx context.Context, userID, email string) (*services.AdRewardResult, error)
	ListTransactions(ctx context.Context, userID string, page, pageSize int) ([]domain.Transaction, int64, error)
	TransactionsStats(ctx context.Context, userID string) (int64, *time.Time, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints.
type Handlers struct {
	paySvc    PaymentService
	polishSvc PolishService
	entSvc    EntitlementService
}

// New constructs Handlers bound to the given services.
func New(paySvc PaymentService, polishSvc PolishService, entSvc EntitlementService) *Handlers {
	return &Handlers{paySvc: paySvc, polishSvc: polishSvc, entSvc: entSvc}
}

// identity returns the caller set by middleware.RequireAuth.
func identity(c *gin.Context) (userID, email string) {
	return middleware.UserID(c), middleware.UserEmail(c)
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds the page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
