package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nfc-wallet-go/internal/models"
	"nfc-wallet-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateWallet inserts a wallet for an owner, with the opening balance in
// minor units. Used by setup/seeding, not by the settlement path.
func (s *Service) CreateWallet(ctx context.Context, ownerId string, openingBalance int64, currency string) (*models.Wallet, error) {
	walletId := uuid.New().String()
	if _, err := s.db.ExecContext(ctx, queryInsertWallet,
		walletId, ownerId, openingBalance, currency, models.WalletActive); err != nil {
		return nil, fmt.Errorf("failed to insert wallet: %w", err)
	}
	return s.GetWallet(ctx, walletId)
}

func (s *Service) GetWallet(ctx context.Context, walletId string) (*models.Wallet, error) {
	return scanWallet(s.db.QueryRowContext(ctx, queryGetWallet, walletId))
}

func (s *Service) GetWalletByOwner(ctx context.Context, ownerId string) (*models.Wallet, error) {
	return scanWallet(s.db.QueryRowContext(ctx, queryGetWalletByOwner, ownerId))
}

// ListWallets returns every wallet, oldest first.
func (s *Service) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	rows, err := s.db.QueryContext(ctx, queryListWallets)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var wallets []models.Wallet
	for rows.Next() {
		var w models.Wallet
		if err := rows.Scan(&w.Id, &w.OwnerId, &w.Balance, &w.Currency, &w.Status, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet rows: %w", err)
	}
	return wallets, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanWallet(r row) (*models.Wallet, error) {
	var w models.Wallet
	err := r.Scan(&w.Id, &w.OwnerId, &w.Balance, &w.Currency, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}
	return &w, nil
}

// SetWalletStatus moves a wallet between ACTIVE, SUSPENDED and CLOSED.
// Administrative operation; settlement never calls it.
func (s *Service) SetWalletStatus(ctx context.Context, walletId, status string) error {
	result, err := s.db.ExecContext(ctx, queryUpdateWalletStatus, status, walletId)
	if err != nil {
		return fmt.Errorf("failed to update wallet status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrWalletNotFound
	}
	return nil
}

// debitWalletTx applies a conditional debit inside the caller's transaction.
// The UPDATE only matches when the wallet is ACTIVE and holds at least the
// amount, so concurrent debits can never overdraw; a zero-row result is
// classified by re-reading the row within the same transaction.
func debitWalletTx(ctx context.Context, tx *sql.Tx, walletId string, amount int64) error {
	result, err := tx.ExecContext(ctx, queryDebitWallet, amount, walletId)
	if err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	wallet, err := scanWallet(tx.QueryRowContext(ctx, queryGetWallet, walletId))
	if err != nil {
		return err
	}
	if wallet.Status != models.WalletActive {
		return store.ErrWalletSuspended
	}
	if wallet.Balance < amount {
		return store.ErrInsufficientFunds
	}
	return store.ErrConcurrentModification
}

// creditWalletTx applies a credit inside the caller's transaction.
// Suspended and closed wallets reject credits too.
func creditWalletTx(ctx context.Context, tx *sql.Tx, walletId string, amount int64) error {
	result, err := tx.ExecContext(ctx, queryCreditWallet, amount, walletId)
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	wallet, err := scanWallet(tx.QueryRowContext(ctx, queryGetWallet, walletId))
	if err != nil {
		return err
	}
	if wallet.Status != models.WalletActive {
		return store.ErrWalletSuspended
	}
	return store.ErrConcurrentModification
}

// TopUp credits the wallet and appends the TOPUP ledger entry as one unit.
func (s *Service) TopUp(ctx context.Context, params store.TopUpParams) (*models.Transaction, error) {
	zap.L().Info("Processing top-up",
		zap.String("wallet_id", params.WalletId),
		zap.Int64("amount", params.Amount))

	wallet, err := s.GetWallet(ctx, params.WalletId)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := creditWalletTx(ctx, tx, params.WalletId, params.Amount); err != nil {
		return nil, err
	}

	metadata := fmt.Sprintf(`{"reference":%q}`, defaultString(params.Reference, "manual_topup"))
	now := time.Now().UTC()
	transaction, err := insertTransactionTx(ctx, tx, &models.Transaction{
		Id:               uuid.New().String(),
		PayerWalletId:    params.WalletId,
		MerchantWalletId: params.WalletId,
		Amount:           params.Amount,
		Currency:         wallet.Currency,
		Type:             models.TypeTopUp,
		Status:           models.TxCompleted,
		Metadata:         metadata,
		CreatedAt:        now,
		CompletedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit top-up: %w", err)
	}

	return transaction, nil
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// ReconcileWalletBalance recomputes the wallet balance from the ledger and
// compares it with the stored value plus the recorded opening balance drift.
// A mismatch is an integrity fault that should page, not a caller error.
func (s *Service) ReconcileWalletBalance(ctx context.Context, walletId string, openingBalance int64) error {
	wallet, err := s.GetWallet(ctx, walletId)
	if err != nil {
		return err
	}

	var ledgerDelta int64
	if err := s.db.QueryRowContext(ctx, queryReconcileWallet, walletId).Scan(&ledgerDelta); err != nil {
		return fmt.Errorf("failed to compute ledger balance: %w", err)
	}

	if openingBalance+ledgerDelta != wallet.Balance {
		zap.L().Error("Wallet balance does not reconcile with ledger",
			zap.String("wallet_id", walletId),
			zap.Int64("stored_balance", wallet.Balance),
			zap.Int64("ledger_balance", openingBalance+ledgerDelta))
		return fmt.Errorf("%w: wallet %s stored=%d ledger=%d",
			store.ErrIntegrity, walletId, wallet.Balance, openingBalance+ledgerDelta)
	}
	return nil
}
