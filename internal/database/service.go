package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nfc-wallet-go/internal/models"
	"nfc-wallet-go/internal/store"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.SettlementStore.
var _ store.SettlementStore = (*Service)(nil)

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	// _txlock=immediate: settlement transactions write from the first
	// statement, so grab the write lock up front and queue on busy_timeout
	// instead of failing mid-transaction under contention.
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.InitSchema(); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) InitSchema() error {
	schema := `
	-- Wallet owners
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Wallets: balance in integer minor units, never negative at a committed state
	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL UNIQUE REFERENCES users(id),
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		currency TEXT NOT NULL DEFAULT 'USD',
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_wallets_owner_id ON wallets(owner_id);
	CREATE INDEX IF NOT EXISTS idx_wallets_status ON wallets(status);

	-- Consumed token nonces: the primary key is the double-spend detector
	CREATE TABLE IF NOT EXISTS used_nonces (
		nonce TEXT PRIMARY KEY,
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_used_nonces_expires_at ON used_nonces(expires_at);

	-- Append-only settlement ledger
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		payer_wallet_id TEXT NOT NULL,
		merchant_wallet_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		nonce TEXT,
		idempotency_key TEXT,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		completed_at TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_idempotency_key
		ON transactions(idempotency_key) WHERE idempotency_key IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_transactions_payer_wallet ON transactions(payer_wallet_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_merchant_wallet ON transactions(merchant_wallet_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// isUniqueViolation reports whether err is a SQLite unique or primary-key
// constraint failure. The settlement path relies on this as the
// linearization point for both nonce replay and idempotency-key races.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
