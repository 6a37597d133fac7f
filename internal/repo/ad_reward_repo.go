package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/promptpolish-backend/internal/domain"
)

// CreateAdReward records a granted ad reward for userID.
func CreateAdReward(ctx context.Context, db *gorm.DB, userID string, credits int64, at time.Time) (*domain.AdReward, error) {
	r := &domain.AdReward{
		ID:        uuid.NewString(),
		UserID:    userID,
		Credits:   credits,
		CreatedAt: at,
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// LastAdReward returns userID's most recent claim, or ErrNotFound.
func LastAdReward(ctx context.Context, db *gorm.DB, userID string) (*domain.AdReward, error) {
	var r domain.AdReward
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}
