// Package payments adapts the Stripe API to the services.Processor contract:
// hosted checkout sessions for one-off purchases, session retrieval for
// verification, and signed webhook decoding.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/tbourn/promptpolish-backend/internal/config"
	"github.com/tbourn/promptpolish-backend/internal/services"
)

// Stripe is a services.Processor backed by a per-instance Stripe client.
type Stripe struct {
	api           *client.API
	webhookSecret string
}

// NewStripe returns a Stripe processor, or nil when cfg carries no secret
// key. APIBaseURL, when set, redirects every API call (used against mock
// servers).
func NewStripe(cfg config.StripeConfig) *Stripe {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil
	}

	// Failures surface to the caller as processor errors; nothing is retried.
	bc := &stripe.BackendConfig{
		LeveledLogger:     zerologLeveled{},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if u := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/"); u != "" {
		bc.URL = stripe.String(u)
	}
	b := stripe.GetBackendWithConfig(stripe.APIBackend, bc)

	return &Stripe{
		api:           client.New(key, &stripe.Backends{API: b, Connect: b, Uploads: b}),
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
	}
}

// CreateCheckoutSession opens a payment-mode checkout with a single
// ad-hoc priced line item. An existing customer with the same email is
// attached; otherwise the email is prefilled.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, req services.CheckoutRequest) (*services.CheckoutSession, error) {
	customerID, err := s.findCustomer(ctx, req.CustomerEmail)
	if err != nil {
		return nil, fmt.Errorf("stripe: customer lookup: %w", err)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
					UnitAmount: stripe.Int64(req.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	} else {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return toSession(sess), nil
}

// GetCheckoutSession retrieves a checkout session by id.
func (s *Stripe) GetCheckoutSession(ctx context.Context, id string) (*services.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get checkout session: %w", err)
	}
	return toSession(sess), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
// Only checkout session events carry a Session.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*services.WebhookEvent, error) {
	if s.webhookSecret == "" {
		return nil, services.ErrWebhookNotConfigured
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, err
	}

	out := &services.WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "checkout.session.") {
		if event.Data == nil {
			return nil, errors.New("stripe: event without data")
		}
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("stripe: decode session: %w", err)
		}
		out.Session = toSession(&sess)
	}
	return out, nil
}

func (s *Stripe) findCustomer(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", nil
	}
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Limit = stripe.Int64(1)
	params.Context = ctx
	params.Single = true

	it := s.api.Customers.List(params)
	if it.Next() {
		return it.Customer().ID, nil
	}
	return "", it.Err()
}

func toSession(sess *stripe.CheckoutSession) *services.CheckoutSession {
	return &services.CheckoutSession{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      sess.Metadata,
	}
}

// zerologLeveled routes stripe-go's client logging to the global zerolog
// logger.
type zerologLeveled struct{}

func (zerologLeveled) Debugf(format string, v ...interface{}) { log.Debug().Msgf(format, v...) }
func (zerologLeveled) Infof(format string, v ...interface{})  { log.Debug().Msgf(format, v...) }
func (zerologLeveled) Warnf(format string, v ...interface{})  { log.Warn().Msgf(format, v...) }
func (zerologLeveled) Errorf(format string, v ...interface{}) { log.Error().Msgf(format, v...) }
