package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/promptpolish-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedTx(t *testing.T, db *gorm.DB, id, user string, at time.Time) {
	t.Helper()
	row := &domain.Transaction{
		ID:              id,
		UserID:          user,
		Email:           user + "@example.com",
		StripeSessionID: "cs_" + id,
		TransactionType: domain.PurchaseForever,
		AmountPaid:      2000,
		Currency:        "usd",
		Status:          domain.StatusPending,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestTransactionsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, _, err := TransactionsStats(context.Background(), db, "u1"); err == nil {
		t.Fatalf("expected error due to missing transactions table")
	}
}

func TestTransactionsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Transaction{})
	count, maxAt, err := TransactionsStats(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("TransactionsStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestTransactionsStats_Success_FilterAndMax(t *testing.T) {
	db := newTestDB(t, &domain.Transaction{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max for u1
	t3 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)   // other user, later

	seedTx(t, db, "t1", "u1", t1)
	seedTx(t, db, "t2", "u1", t2)
	seedTx(t, db, "t3", "u2", t3)

	count, maxAt, err := TransactionsStats(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("TransactionsStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected max %v, got %v", t2, maxAt)
	}
}
