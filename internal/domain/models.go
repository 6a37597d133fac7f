// Package domain defines the persistence models for the credit ledger:
// per-user entitlements, the purchase transaction log, and promotional ad
// reward claims. These types are mapped with GORM and shared across the
// repository and service layers.
package domain

import "time"

// PurchaseType is the kind of product bought through checkout.
type PurchaseType string

const (
	PurchaseCredits PurchaseType = "credits"
	PurchaseForever PurchaseType = "forever"
)

// Valid reports whether t is one of the purchasable product kinds.
func (t PurchaseType) Valid() bool {
	return t == PurchaseCredits || t == PurchaseForever
}

// TransactionStatus is the lifecycle state of a purchase. It only moves
// forward: pending → completed.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
)

// Entitlement is the credit balance and unlimited-access flag of one user.
//
// Fields:
//   - UserID: identity provider subject; one row per user.
//   - Email: last known email of the user, used to reconcile processor metadata.
//   - CurrentCredits: spendable balance, never negative.
//   - HasForeverAccess: once true it is never reset.
//   - TotalPurchased: lifetime purchased credits, non-decreasing. Promotional
//     grants do not count.
type Entitlement struct {
	ID               string    `json:"id"                 gorm:"type:char(36);primaryKey"`
	UserID           string    `json:"user_id"            gorm:"type:varchar(64);not null;uniqueIndex:ux_credits_user"`
	Email            string    `json:"email,omitempty"    gorm:"type:varchar(320);index"`
	CurrentCredits   int64     `json:"current_credits"    gorm:"not null;default:0;check:current_credits >= 0"`
	HasForeverAccess bool      `json:"has_forever_access" gorm:"not null;default:false"`
	TotalPurchased   int64     `json:"total_purchased"    gorm:"not null;default:0;check:total_purchased >= 0"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for Entitlement.
func (Entitlement) TableName() string { return "credits" }

// Transaction records one checkout attempt and its fulfilment status.
// StripeSessionID is unique, so a processor session maps to exactly one row.
type Transaction struct {
	ID               string            `json:"id"                          gorm:"type:char(36);primaryKey"`
	UserID           string            `json:"user_id"                     gorm:"type:varchar(64);not null;index:idx_tx_user_created,priority:1"`
	Email            string            `json:"email"                       gorm:"type:varchar(320);not null"`
	StripeSessionID  string            `json:"stripe_session_id"           gorm:"type:varchar(255);not null;uniqueIndex:ux_tx_session"`
	TransactionType  PurchaseType      `json:"transaction_type"            gorm:"type:varchar(16);not null;check:transaction_type IN ('credits','forever')"`
	CreditsPurchased *int64            `json:"credits_purchased,omitempty"`
	AmountPaid       int64             `json:"amount_paid"                 gorm:"not null"`
	Currency         string            `json:"currency"                    gorm:"type:varchar(3);not null;default:'usd'"`
	Status           TransactionStatus `json:"status"                      gorm:"type:varchar(16);not null;default:'pending';index;check:status IN ('pending','completed')"`
	CreatedAt        time.Time         `json:"created_at"                  gorm:"index:idx_tx_user_created,priority:2"`
	UpdatedAt        time.Time         `json:"updated_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
}

// TableName returns the database table name for Transaction.
func (Transaction) TableName() string { return "transactions" }

// AdReward is one granted "watch an ad" promotional credit claim.
type AdReward struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_ad_user_created,priority:1"`
	Credits   int64     `json:"credits"    gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_ad_user_created,priority:2"`
}

// TableName returns the database table name for AdReward.
func (AdReward) TableName() string { return "ad_rewards" }
