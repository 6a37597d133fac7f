// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Entitlement model (the "credits" table).
//
// All functions accept a *gorm.DB so they compose with transactions opened
// by the service layer. Balance changes are expressed as SQL increments
// (current_credits = current_credits + n) rather than read-modify-write, so
// concurrent grants never lose updates.
//
// Error semantics:
//   - A missing row yields ErrNotFound (alias of gorm.ErrRecordNotFound).
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/promptpolish-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetEntitlement loads the entitlement row for userID or ErrNotFound.
func GetEntitlement(ctx context.Context, db *gorm.DB, userID string) (*domain.Entitlement, error) {
	var e domain.Entitlement
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// EnsureEntitlement returns the entitlement row for userID, inserting a
// zero-balance row first when none exists. A non-empty email is stored on
// creation and refreshed when it changed.
//
// The insert uses ON CONFLICT DO NOTHING so two concurrent first requests
// for the same user both succeed and observe the same row.
func EnsureEntitlement(ctx context.Context, db *gorm.DB, userID, email string) (*domain.Entitlement, error) {
	now := time.Now().UTC()
	row := &domain.Entitlement{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(row).Error; err != nil {
		return nil, err
	}

	e, err := GetEntitlement(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	if email != "" && e.Email != email {
		if err := db.WithContext(ctx).Model(&domain.Entitlement{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{"email": email, "updated_at": now}).Error; err != nil {
			return nil, err
		}
		e.Email = email
		e.UpdatedAt = now
	}
	return e, nil
}

// AddCredits increments current_credits by n for userID. When purchased is
// true, total_purchased is incremented by the same amount; promotional
// grants leave it unchanged. The row must exist (see EnsureEntitlement).
func AddCredits(ctx context.Context, db *gorm.DB, userID string, n int64, purchased bool) error {
	if n < 0 {
		return errors.New("repo: negative credit grant")
	}
	updates := map[string]any{
		"current_credits": gorm.Expr("current_credits + ?", n),
		"updated_at":      time.Now().UTC(),
	}
	if purchased {
		updates["total_purchased"] = gorm.Expr("total_purchased + ?", n)
	}
	res := db.WithContext(ctx).Model(&domain.Entitlement{}).
		Where("user_id = ?", userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GrantForeverAccess sets has_forever_access for userID. The flag is only
// ever written to true.
func GrantForeverAccess(ctx context.Context, db *gorm.DB, userID string) error {
	res := db.WithContext(ctx).Model(&domain.Entitlement{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"has_forever_access": true,
			"updated_at":         time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
