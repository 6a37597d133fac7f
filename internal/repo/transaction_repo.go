// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the purchase
// Transaction log.
//
// Functions:
//
//   - CreateTransaction(ctx, db, tx) -> error
//     Inserts a pending transaction; ErrDuplicate when the session id exists.
//
//   - GetTransactionBySession(ctx, db, sessionID) -> *domain.Transaction, error
//     Fetches the row for a processor session, or ErrNotFound.
//
//   - MarkTransactionCompleted(ctx, db, sessionID, at) -> (bool, error)
//     Compare-and-set pending → completed; reports whether this call won.
//
//   - CountTransactions / ListTransactionsPage
//     Paginated purchase history for a user, newest first.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/promptpolish-backend/internal/domain"
)

// CreateTransaction inserts t. ID, Status and timestamps are filled when
// empty. A second row for the same StripeSessionID yields ErrDuplicate.
func CreateTransaction(ctx context.Context, db *gorm.DB, t *domain.Transaction) error {
	now := time.Now().UTC()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = domain.StatusPending
	}
	if t.Currency == "" {
		t.Currency = "usd"
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetTransactionBySession returns the transaction recorded for sessionID.
func GetTransactionBySession(ctx context.Context, db *gorm.DB, sessionID string) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := db.WithContext(ctx).Where("stripe_session_id = ?", sessionID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkTransactionCompleted flips the transaction for sessionID from pending
// to completed. It returns true only for the call that performed the
// transition; a row that is already completed (or missing) yields false.
// Callers distinguish those two cases with GetTransactionBySession.
func MarkTransactionCompleted(ctx context.Context, db *gorm.DB, sessionID string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("stripe_session_id = ? AND status = ?", sessionID, domain.StatusPending).
		Updates(map[string]any{
			"status":       domain.StatusCompleted,
			"completed_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CountTransactions returns the number of transactions owned by userID.
func CountTransactions(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Transaction{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// ListTransactionsPage returns a page of userID's transactions, newest first.
func ListTransactionsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
