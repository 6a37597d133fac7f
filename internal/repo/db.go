// Package repo implements the data persistence layer for the credit ledger,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and Postgres, plus schema migrations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tbourn/promptpolish-backend/internal/config"
	"github.com/tbourn/promptpolish-backend/internal/domain"
)

// Open connects to the database selected by cfg.Driver.
func Open(cfg config.DBConfig, gcfg *gorm.Config) (*gorm.DB, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQLite(cfg.Path, gcfg)
	case "postgres":
		return OpenPostgres(cfg.DSN, gcfg)
	default:
		return nil, fmt.Errorf("repo: unsupported driver %q", cfg.Driver)
	}
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string, gcfg *gorm.Config) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}
	if gcfg == nil {
		gcfg = &gorm.Config{}
	}

	db, err := gorm.Open(sqlite.Open(path), gcfg)
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// SQLite serialises writers; a small pool avoids SQLITE_BUSY storms
	// when several fulfilment transactions race.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(4)
		sqlDB.SetMaxIdleConns(4)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// OpenPostgres connects through the pgx-backed GORM driver.
func OpenPostgres(dsn string, gcfg *gorm.Config) (*gorm.DB, error) {
	if gcfg == nil {
		gcfg = &gorm.Config{}
	}
	db, err := gorm.Open(postgres.Open(dsn), gcfg)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// AutoMigrate creates or updates every ledger table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Entitlement{},
		&domain.Transaction{},
		&domain.AdReward{},
		&domain.Idempotency{},
	)
}
