// Payment HTTP handlers.
//
//   - POST /create-payment    (open a checkout session)
//   - POST /verify-payment    (fulfil a paid session after redirect)
//   - POST /webhooks/stripe   (fulfil from processor notifications)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/promptpolish-backend/internal/domain"
	"github.com/tbourn/promptpolish-backend/internal/http/middleware"
	"github.com/tbourn/promptpolish-backend/internal/services"
)

// CreatePaymentRequest is the JSON payload of create-payment.
type CreatePaymentRequest struct {
	// Type is "credits" or "forever".
	Type string `json:"type" example:"credits"`
	// Credits is the number of credits bought; required for type=credits.
	Credits int64 `json:"credits,omitempty" example:"50"`
	// Amount is the price in cents.
	Amount int64 `json:"amount" example:"499"`
}

// CreatePaymentResponse carries the hosted checkout URL.
type CreatePaymentResponse struct {
	URL string `json:"url" example:"https://checkout.stripe.com/c/pay/cs_test_a1b2"`
}

// VerifyPaymentRequest is the JSON payload of verify-payment.
type VerifyPaymentRequest struct {
	SessionID string `json:"session_id" example:"cs_test_a1b2"`
}

// VerifyPaymentResponse reports whether the session was paid and what it bought.
type VerifyPaymentResponse struct {
	Success bool   `json:"success"`
	Type    string `json:"type,omitempty" example:"credits"`
	Credits *int64 `json:"credits,omitempty" example:"50"`
}

// WebhookResponse acknowledges a processor notification.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// CreatePayment godoc
// @ID          createPayment
// @Summary     Open a checkout session
// @Description Creates a hosted checkout for credits or forever access and records a pending transaction. Reusing an Idempotency-Key returns the original URL.
// @Tags        Payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false "Retry key"  example(3b0c7d7e-checkout-1)
// @Param       body             body    handlers.CreatePaymentRequest  true  "Purchase"
//
// @Success     200  {object}  handlers.CreatePaymentResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid purchase"
// @Failure     401  {object}  handlers.ErrorResponse  "Authentication required"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Processor, persistence or configuration error"
// @Router      /create-payment [post]
func (h *Handlers) CreatePayment(c *gin.Context) {
	userID, email := identity(c)
	if userID == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, middleware.MsgAuthRequired)
		return
	}
	// The receipt and customer lookup need an email.
	if email == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, middleware.MsgAuthInvalid)
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	res, err := h.paySvc.CreateCheckout(c.Request.Context(), userID, email, services.CheckoutInput{
		Type:           req.Type,
		Credits:        req.Credits,
		Amount:         req.Amount,
		Origin:         c.GetHeader("Origin"),
		IdempotencyKey: key,
	})
	if err != nil {
		failService(c, err)
		return
	}
	if res.Replayed {
		c.Header("Idempotent-Replay", "true")
	}
	ok(c, http.StatusOK, CreatePaymentResponse{URL: res.URL})
}

// VerifyPayment godoc
// @ID          verifyPayment
// @Summary     Verify a checkout session
// @Description Applies a paid session to the buyer's entitlement exactly once. Unpaid or unknown sessions answer success=false.
// @Tags        Payments
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.VerifyPaymentRequest  true  "Session"
//
// @Success     200  {object}  handlers.VerifyPaymentResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing session_id"
// @Failure     500  {object}  handlers.ErrorResponse  "Processor or persistence error"
// @Router      /verify-payment [post]
func (h *Handlers) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.paySvc.Verify(c.Request.Context(), req.SessionID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, toVerifyResponse(res))
}

// StripeWebhook godoc
// @ID          stripeWebhook
// @Summary     Stripe webhook
// @Description Verifies the Stripe-Signature header and fulfils checkout.session.completed events. Other events are acknowledged.
// @Tags        Payments
// @Accept      json
// @Produce     json
//
// @Param       Stripe-Signature  header  string  true  "Webhook signature"
//
// @Success     200  {object}  handlers.WebhookResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad signature or payload"
// @Failure     500  {object}  handlers.ErrorResponse  "Webhook secret missing or fulfilment failed"
// @Router      /webhooks/stripe [post]
func (h *Handlers) StripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}

	res, err := h.paySvc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		failService(c, err)
		return
	}
	if res != nil && res.Applied {
		middleware.LoggerFrom(c).Info().
			Str("type", string(res.Type)).
			Int64("credits", res.Credits).
			Msg("webhook fulfilled purchase")
	}
	ok(c, http.StatusOK, WebhookResponse{Received: true})
}

func toVerifyResponse(res *services.VerifyResult) VerifyPaymentResponse {
	if res == nil || !res.Success {
		return VerifyPaymentResponse{Success: false}
	}
	out := VerifyPaymentResponse{Success: true, Type: string(res.Type)}
	if res.Type == domain.PurchaseCredits {
		n := res.Credits
		out.Credits = &n
	}
	return out
}
