package repo

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tbourn/promptpolish-backend/internal/domain"
)

func TestEnsureEntitlement_CreatesZeroRow_Idempotent(t *testing.T) {
	db := newLedgerDB(t)
	ctx := context.Background()

	e, err := EnsureEntitlement(ctx, db, "u1", "a@example.com")
	if err != nil {
		t.Fatalf("EnsureEntitlement: %v", err)
	}
	if e.UserID != "u1" || e.CurrentCredits != 0 || e.HasForeverAccess || e.TotalPurchased != 0 || e.Email != "a@example.com" {
		t.Fatalf("unexpected row: %+v", e)
	}

	again, err := EnsureEntitlement(ctx, db, "u1", "")
	if err != nil {
		t.Fatalf("EnsureEntitlement again: %v", err)
	}
	if again.ID != e.ID || again.Email != "a@example.com" {
		t.Fatalf("expected same row with kept email, got %+v", again)
	}

	var n int64
	db.Model(&domain.Entitlement{}).Where("user_id = ?", "u1").Count(&n)
	if n != 1 {
		t.Fatalf("expected one row, got %d", n)
	}
}

func TestEnsureEntitlement_RefreshesEmail(t *testing.T) {
	db := newLedgerDB(t)
	ctx := context.Background()

	if _, err := EnsureEntitlement(ctx, db, "u1", "old@example.com"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	e, err := EnsureEntitlement(ctx, db, "u1", "new@example.com")
	if err != nil {
		t.Fatalf("EnsureEntitlement: %v", err)
	}
	got, _ := GetEntitlement(ctx, db, "u1")
	if e.Email != "new@example.com" || got.Email != "new@example.com" {
		t.Fatalf("email not refreshed: returned=%q stored=%q", e.Email, got.Email)
	}
}

func TestEnsureEntitlement_Concurrent(t *testing.T) {
	db := newLedgerDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := EnsureEntitlement(ctx, db, "u-race", ""); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent ensure: %v", err)
	}

	var n int64
	db.Model(&domain.Entitlement{}).Where("user_id = ?", "u-race").Count(&n)
	if n != 1 {
		t.Fatalf("expected exactly one row, got %d", n)
	}
}

func TestGetEntitlement_NotFound(t *testing.T) {
	db := newLedgerDB(t)
	if _, err := GetEntitlement(context.Background(), db, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddCredits_PurchasedAndPromotional(t *testing.T) {
	db := newLedgerDB(t)
	ctx := context.Background()
	if _, err := EnsureEntitlement(ctx, db, "u1", ""); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := AddCredits(ctx, db, "u1", 50, true); err != nil {
		t.Fatalf("AddCredits purchased: %v", err)
	}
	if err := AddCredits(ctx, db, "u1", 3, false); err != nil {
		t.Fatalf("AddCredits promo: %v", err)
	}

	e, err := GetEntitlement(ctx, db, "u1")
	if err != nil {
		t.Fatalf("GetEntitlement: %v", err)
	}
	if e.CurrentCredits != 53 || e.TotalPurchased != 50 {
		t.Fatalf("expected current=53 total=50, got %+v", e)
	}
}

func TestAddCredits_Errors(t *testing.T) {
	db := newLedgerDB(t)
	ctx := context.Background()

	if err := AddCredits(ctx, db, "ghost", 1, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}
	if err := AddCredits(ctx, db, "ghost", -1, true); err == nil {
		t.Fatalf("expected error for negative grant")
	}
}

func TestGrantForeverAccess(t *testing.T) {
	db := newLedgerDB(t)
	ctx := context.Background()

	if err := GrantForeverAccess(ctx, db, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := EnsureEntitlement(ctx, db, "u1", ""); err != nil {
		t.Fatalf("seed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := GrantForeverAccess(ctx, db, "u1"); err != nil {
			t.Fatalf("GrantForeverAccess #%d: %v", i, err)
		}
	}
	e, _ := GetEntitlement(ctx, db, "u1")
	if !e.HasForeverAccess || e.CurrentCredits != 0 {
		t.Fatalf("unexpected row: %+v", e)
	}
}
