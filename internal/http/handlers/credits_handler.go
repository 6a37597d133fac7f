// Entitlement HTTP handlers.
//
//   - GET  /credits           (balance and forever-access flag)
//   - POST /watch-ad-reward   (promotional credits)
//   - GET  /transactions      (purchase history, paginated, ETag support)
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/promptpolish-backend/internal/domain"
	"github.com/tbourn/promptpolish-backend/internal/utils"
)

// CreditsResponse is the caller's entitlement.
type CreditsResponse struct {
	UserID           string    `json:"user_id" example:"auth0|65f1c2"`
	CurrentCredits   int64     `json:"current_credits" example:"12"`
	HasForeverAccess bool      `json:"has_forever_access" example:"false"`
	TotalPurchased   int64     `json:"total_purchased" example:"50"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AdRewardResponse reports a granted ad reward.
type AdRewardResponse struct {
	CreditsAdded   int64 `json:"creditsAdded" example:"3"`
	CurrentCredits int64 `json:"currentCredits" example:"15"`
}

// ListTransactionsResponse wraps a page of purchases.
type ListTransactionsResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
	Pagination   Pagination           `json:"pagination"`
}

// GetCredits godoc
// @ID          getCredits
// @Summary     Get balance
// @Description Returns the caller's credits and forever-access flag, creating an empty balance on first use.
// @Tags        Credits
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.CreditsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Authentication required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /credits [get]
func (h *Handlers) GetCredits(c *gin.Context) {
	userID, email := identity(c)
	e, err := h.entSvc.Get(c.Request.Context(), userID, email)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, CreditsResponse{
		UserID:           e.UserID,
		CurrentCredits:   e.CurrentCredits,
		HasForeverAccess: e.HasForeverAccess,
		TotalPurchased:   e.TotalPurchased,
		UpdatedAt:        e.UpdatedAt,
	})
}

// WatchAdReward godoc
// @ID          watchAdReward
// @Summary     Claim ad reward
// @Description Adds promotional credits after the client finished showing an ad. Claims closer together than the ad length are rejected.
// @Tags        Credits
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.AdRewardResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Authentication required"
// @Failure     429  {object}  handlers.ErrorResponse  "Claimed too recently"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /watch-ad-reward [post]
func (h *Handlers) WatchAdReward(c *gin.Context) {
	userID, email := identity(c)
	res, err := h.entSvc.GrantAdReward(c.Request.Context(), userID, email)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, AdRewardResponse{
		CreditsAdded:   res.CreditsAdded,
		CurrentCredits: res.CurrentCredits,
	})
}

// ListTransactions godoc
// @ID          listTransactions
// @Summary     List purchases (paginated)
// @Description Returns the caller's purchases, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Credits
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"tx.1.20:user:3:1700000000000000000\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListTransactionsResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Header      200  {string} Cache-Control  "private, no-cache"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Authentication required"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /transactions [get]
func (h *Handlers) ListTransactions(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := identity(c)
	page, pageSize := clampPagination(c)

	// Best effort: a stats failure just skips the conditional response.
	if count, latest, err := h.entSvc.TransactionsStats(ctx, userID); err == nil {
		// page coordinates are part of the tag: each page is its own representation
		etag := utils.WeakETag(fmt.Sprintf("tx.%d.%d", page, pageSize), userID, count, latest)
		c.Header("ETag", etag)
		c.Header("Cache-Control", "private, no-cache")
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.entSvc.ListTransactions(ctx, userID, page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListTransactionsResponse{
		Transactions: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
