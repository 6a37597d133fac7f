// Package services – EntitlementService
//
// This file implements balance reads, promotional ad rewards and the
// paginated purchase history of a user.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/promptpolish-backend/internal/domain"
	"github.com/tbourn/promptpolish-backend/internal/repo"
)

// AdRewardResult is the outcome of a granted ad reward.
type AdRewardResult struct {
	CreditsAdded   int64
	CurrentCredits int64
}

// EntitlementService reads and grants entitlements.
type EntitlementService struct {
	DB *gorm.DB

	// AdCredits is the number of promotional credits per ad reward.
	AdCredits int64
	// AdCooldown is the minimum spacing between two ad rewards of a user.
	// Zero disables the check.
	AdCooldown time.Duration

	now func() time.Time
}

// NewEntitlementService constructs an EntitlementService.
func NewEntitlementService(db *gorm.DB, adCredits int64, adCooldown time.Duration) *EntitlementService {
	return &EntitlementService{
		DB:         db,
		AdCredits:  adCredits,
		AdCooldown: adCooldown,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *EntitlementService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// Get returns userID's entitlement, creating a zero-balance row on first use.
func (s *EntitlementService) Get(ctx context.Context, userID, email string) (*domain.Entitlement, error) {
	tr := otel.Tracer("services/EntitlementService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if userID == "" {
		return nil, ErrUnauthenticated
	}
	e, err := repo.EnsureEntitlement(ctx, s.DB, userID, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return e, nil
}

// GrantAdReward adds AdCredits promotional credits to userID's balance and
// records the claim. A claim within AdCooldown of the previous one fails
// with ErrRewardCooldown and changes nothing.
func (s *EntitlementService) GrantAdReward(ctx context.Context, userID, email string) (*AdRewardResult, error) {
	tr := otel.Tracer("services/EntitlementService")
	ctx, span := tr.Start(ctx, "GrantAdReward", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if userID == "" {
		return nil, ErrUnauthenticated
	}
	now := s.clock()
	out := &AdRewardResult{CreditsAdded: s.AdCredits}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.EnsureEntitlement(ctx, tx, userID, email); err != nil {
			return err
		}
		// Zero-credit grant: takes the row lock so concurrent claims of one
		// user queue behind each other before the cooldown check.
		if err := repo.AddCredits(ctx, tx, userID, 0, false); err != nil {
			return err
		}

		if s.AdCooldown > 0 {
			last, err := repo.LastAdReward(ctx, tx, userID)
			switch {
			case err == nil:
				if now.Sub(last.CreatedAt) < s.AdCooldown {
					return ErrRewardCooldown
				}
			case !errors.Is(err, repo.ErrNotFound):
				return err
			}
		}

		if _, err := repo.CreateAdReward(ctx, tx, userID, s.AdCredits, now); err != nil {
			return err
		}
		if err := repo.AddCredits(ctx, tx, userID, s.AdCredits, false); err != nil {
			return err
		}
		e, err := repo.GetEntitlement(ctx, tx, userID)
		if err != nil {
			return err
		}
		out.CurrentCredits = e.CurrentCredits
		return nil
	})
	if errors.Is(err, ErrRewardCooldown) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	creditsGranted.WithLabelValues("ad_reward").Add(float64(s.AdCredits))
	return out, nil
}

// ListTransactions returns a page of userID's purchases, newest first, and
// the total count. Invalid page or pageSize values fall back to defaults.
func (s *EntitlementService) ListTransactions(ctx context.Context, userID string, page, pageSize int) ([]domain.Transaction, int64, error) {
	tr := otel.Tracer("services/EntitlementService")
	ctx, span := tr.Start(ctx, "ListTransactions",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountTransactions(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if total == 0 {
		return []domain.Transaction{}, 0, nil
	}

	items, err := repo.ListTransactionsPage(ctx, s.DB, userID, offset, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return items, total, nil
}

// TransactionsStats exposes count and latest update of userID's purchases
// for conditional responses.
func (s *EntitlementService) TransactionsStats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return repo.TransactionsStats(ctx, s.DB, userID)
}
