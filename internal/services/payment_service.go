// Package services – PaymentService
//
// This file implements checkout initiation and payment fulfilment. A checkout
// opens a hosted payment session with the processor and records a pending
// Transaction keyed by the session id. Fulfilment (triggered by the client's
// verify call or by the processor's webhook) completes that transaction and
// applies the purchased entitlement exactly once: the pending → completed
// transition is a compare-and-set inside the same DB transaction as the
// balance change, so concurrent or repeated fulfilment of one session is a
// no-op after the first.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/promptpolish-backend/internal/domain"
	"github.com/tbourn/promptpolish-backend/internal/repo"
)

// ScopeCreatePayment namespaces idempotency records written by CreateCheckout.
const ScopeCreatePayment = "create-payment"

// Processor session and event values.
const (
	PaymentStatusPaid      = "paid"
	EventCheckoutCompleted = "checkout.session.completed"
)

// Fulfilment sources, used as a metrics label.
const (
	SourceVerify  = "verify"
	SourceWebhook = "webhook"
)

// CheckoutRequest is what the service asks the processor to open.
type CheckoutRequest struct {
	CustomerEmail  string
	ProductName    string
	Amount         int64
	Currency       string
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
}

// CheckoutSession is the processor's view of a hosted checkout.
type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
	Metadata      map[string]string
}

// WebhookEvent is a verified processor notification. Session is nil for
// events that do not carry a checkout session.
type WebhookEvent struct {
	ID      string
	Type    string
	Session *CheckoutSession
}

// Processor is the payment processor contract required by PaymentService.
type Processor interface {
	// CreateCheckoutSession opens a hosted checkout; an existing customer
	// with the same email is reused.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// GetCheckoutSession retrieves a session by id.
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)

	// ParseWebhook verifies the signature of payload and decodes it.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// CheckoutInput is the validated-by-service request of create-payment.
type CheckoutInput struct {
	Type           string
	Credits        int64
	Amount         int64
	Origin         string
	IdempotencyKey string
}

// CheckoutResult carries the redirect URL of an opened (or replayed) session.
type CheckoutResult struct {
	URL       string
	SessionID string
	Replayed  bool
}

// VerifyResult reports the outcome of fulfilment. Success is false when the
// session is unpaid or cannot be attributed to a recorded purchase.
type VerifyResult struct {
	Success bool
	Type    domain.PurchaseType
	Credits int64
	// Applied is true only for the call that changed the entitlement.
	Applied bool
}

// PaymentService opens checkouts and fulfils paid sessions.
type PaymentService struct {
	DB        *gorm.DB
	Processor Processor

	// FrontendURL is the redirect origin used when a request carries no Origin.
	FrontendURL string
	// IdempotencyTTL bounds how long a create-payment key is replayable.
	IdempotencyTTL time.Duration

	now func() time.Time
}

// NewPaymentService constructs a PaymentService. A nil processor is allowed;
// payment operations then fail with ErrProcessorNotConfigured.
func NewPaymentService(db *gorm.DB, p Processor, frontendURL string, idemTTL time.Duration) *PaymentService {
	return &PaymentService{
		DB:             db,
		Processor:      p,
		FrontendURL:    strings.TrimRight(frontendURL, "/"),
		IdempotencyTTL: idemTTL,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *PaymentService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// CreateCheckout validates the purchase, opens a processor session and
// records a pending transaction for it. With an idempotency key that was
// already used by the same user, the original session URL is returned and
// nothing new is created.
func (s *PaymentService) CreateCheckout(ctx context.Context, userID, email string, in CheckoutInput) (*CheckoutResult, error) {
	tr := otel.Tracer("services/PaymentService")
	ctx, span := tr.Start(ctx, "CreateCheckout",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("purchase.type", in.Type),
			attribute.Int64("purchase.amount", in.Amount),
		),
	)
	defer span.End()

	if userID == "" || email == "" {
		return nil, ErrUnauthenticated
	}
	kind := domain.PurchaseType(in.Type)
	if !kind.Valid() {
		return nil, ErrInvalidPurchaseType
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidPurchase)
	}
	if kind == domain.PurchaseCredits && in.Credits <= 0 {
		return nil, fmt.Errorf("%w: credits must be positive", ErrInvalidPurchase)
	}
	if s.Processor == nil {
		return nil, ErrProcessorNotConfigured
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		rec, err := repo.GetIdempotency(ctx, s.DB, userID, ScopeCreatePayment, key, s.clock())
		switch {
		case err == nil:
			span.SetAttributes(attribute.Bool("idempotency.replayed", true))
			return &CheckoutResult{URL: rec.CheckoutURL, SessionID: rec.SessionID, Replayed: true}, nil
		case !errors.Is(err, repo.ErrNotFound):
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}

	origin := strings.TrimRight(strings.TrimSpace(in.Origin), "/")
	if origin == "" {
		origin = s.FrontendURL
	}

	req := CheckoutRequest{
		CustomerEmail: email,
		ProductName:   productName(kind, in.Credits),
		Amount:        in.Amount,
		Currency:      "usd",
		SuccessURL:    origin + "/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     origin + "/?payment=cancelled",
		Metadata:      checkoutMetadata(kind, in.Credits, email, userID),
	}
	if key != "" {
		// processor keys are account-wide, so namespace them per user
		req.IdempotencyKey = ScopeCreatePayment + ":" + userID + ":" + key
	}

	sess, err := s.Processor.CreateCheckoutSession(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrProcessor, err)
	}

	tx := &domain.Transaction{
		UserID:          userID,
		Email:           email,
		StripeSessionID: sess.ID,
		TransactionType: kind,
		AmountPaid:      in.Amount,
		Currency:        "usd",
		Status:          domain.StatusPending,
	}
	if kind == domain.PurchaseCredits {
		n := in.Credits
		tx.CreditsPurchased = &n
	}
	if err := repo.CreateTransaction(ctx, s.DB, tx); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if key != "" && s.IdempotencyTTL > 0 {
		// best effort; a lost record only costs a second session on retry
		_, _ = repo.CreateIdempotency(ctx, s.DB, userID, ScopeCreatePayment, key,
			repo.IdempotencyResult{SessionID: sess.ID, CheckoutURL: sess.URL, Status: 200},
			s.IdempotencyTTL)
	}

	checkoutsCreated.WithLabelValues(string(kind)).Inc()
	return &CheckoutResult{URL: sess.URL, SessionID: sess.ID}, nil
}

// Verify retrieves the session from the processor and, when paid, fulfils
// the matching transaction.
func (s *PaymentService) Verify(ctx context.Context, sessionID string) (*VerifyResult, error) {
	tr := otel.Tracer("services/PaymentService")
	ctx, span := tr.Start(ctx, "Verify",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}
	if s.Processor == nil {
		return nil, ErrProcessorNotConfigured
	}

	sess, err := s.Processor.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrProcessor, err)
	}
	return s.fulfil(ctx, sess, SourceVerify)
}

// HandleWebhook verifies a processor notification and fulfils completed
// checkouts. Events of other types are acknowledged with a nil result.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*VerifyResult, error) {
	tr := otel.Tracer("services/PaymentService")
	ctx, span := tr.Start(ctx, "HandleWebhook")
	defer span.End()

	if s.Processor == nil {
		return nil, ErrProcessorNotConfigured
	}
	ev, err := s.Processor.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, ErrWebhookNotConfigured) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidWebhook, err)
	}
	span.SetAttributes(attribute.String("event.type", ev.Type), attribute.String("event.id", ev.ID))

	if ev.Type != EventCheckoutCompleted || ev.Session == nil {
		return nil, nil
	}
	return s.fulfil(ctx, ev.Session, SourceWebhook)
}

// errNoTransaction aborts fulfilment of a session that was never recorded.
var errNoTransaction = errors.New("no transaction for session")

// fulfil applies the entitlement of a paid session. The completion
// compare-and-set and the balance change commit together or not at all.
func (s *PaymentService) fulfil(ctx context.Context, sess *CheckoutSession, source string) (*VerifyResult, error) {
	if sess == nil || sess.PaymentStatus != PaymentStatusPaid {
		return &VerifyResult{Success: false}, nil
	}
	kind := domain.PurchaseType(sess.Metadata["type"])
	email := sess.Metadata["user_email"]
	if !kind.Valid() || email == "" {
		return &VerifyResult{Success: false}, nil
	}

	res := &VerifyResult{Success: true, Type: kind}
	now := s.clock()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := repo.GetTransactionBySession(ctx, tx, sess.ID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNoTransaction
		}
		if err != nil {
			return err
		}

		if kind == domain.PurchaseCredits {
			res.Credits = metadataCredits(sess.Metadata, row)
		}

		won, err := repo.MarkTransactionCompleted(ctx, tx, sess.ID, now)
		if err != nil {
			return err
		}
		if !won {
			// already completed by an earlier verify or webhook
			return nil
		}

		if _, err := repo.EnsureEntitlement(ctx, tx, row.UserID, email); err != nil {
			return err
		}
		switch kind {
		case domain.PurchaseCredits:
			if err := repo.AddCredits(ctx, tx, row.UserID, res.Credits, true); err != nil {
				return err
			}
		case domain.PurchaseForever:
			if err := repo.GrantForeverAccess(ctx, tx, row.UserID); err != nil {
				return err
			}
		}
		res.Applied = true
		return nil
	})
	if errors.Is(err, errNoTransaction) {
		return &VerifyResult{Success: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if res.Applied {
		paymentsFulfilled.WithLabelValues(string(kind), source).Inc()
		if kind == domain.PurchaseCredits {
			creditsGranted.WithLabelValues("purchase").Add(float64(res.Credits))
		}
	}
	return res, nil
}

// metadataCredits reads the purchased credit count from session metadata,
// falling back to the count recorded at checkout.
func metadataCredits(meta map[string]string, row *domain.Transaction) int64 {
	if n, err := strconv.ParseInt(strings.TrimSpace(meta["credits"]), 10, 64); err == nil && n >= 0 {
		return n
	}
	if row.CreditsPurchased != nil {
		return *row.CreditsPurchased
	}
	return 0
}

func productName(kind domain.PurchaseType, credits int64) string {
	if kind == domain.PurchaseCredits {
		return strconv.FormatInt(credits, 10) + " PromptPolish Credits"
	}
	return "PromptPolish Forever Access"
}

func checkoutMetadata(kind domain.PurchaseType, credits int64, email, userID string) map[string]string {
	md := map[string]string{
		"type":       string(kind),
		"user_email": email,
		"user_id":    userID,
	}
	if kind == domain.PurchaseCredits {
		md["credits"] = strconv.FormatInt(credits, 10)
	}
	return md
}
