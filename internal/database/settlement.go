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

// Settle executes the atomic settlement unit: consume the nonce, debit the
// payer, credit the merchant and append the ledger entry, all inside one
// database transaction. Any step's failure rolls the whole unit back, so
// partial fund movement is never observable and a rejected attempt leaves
// no nonce behind.
func (s *Service) Settle(ctx context.Context, params store.SettleParams) (*models.Transaction, error) {
	zap.L().Info("Settling payment",
		zap.String("payer_wallet_id", params.PayerWalletId),
		zap.String("merchant_wallet_id", params.MerchantWalletId),
		zap.Int64("amount", params.Amount))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := consumeNonceTx(ctx, tx, params.Nonce, params.NonceExpiresAt); err != nil {
		return nil, err
	}

	if err := debitWalletTx(ctx, tx, params.PayerWalletId, params.Amount); err != nil {
		return nil, err
	}

	if err := creditWalletTx(ctx, tx, params.MerchantWalletId, params.Amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	transaction, err := insertTransactionTx(ctx, tx, &models.Transaction{
		Id:               uuid.New().String(),
		PayerWalletId:    params.PayerWalletId,
		MerchantWalletId: params.MerchantWalletId,
		Amount:           params.Amount,
		Currency:         params.Currency,
		Type:             models.TypeNFCPayment,
		Status:           models.TxCompleted,
		Nonce:            params.Nonce,
		IdempotencyKey:   params.IdempotencyKey,
		Metadata:         params.Metadata,
		CreatedAt:        now,
		CompletedAt:      now,
	})
	if err != nil {
		// A second request with the same idempotency key but a fresh nonce
		// can reach the ledger insert concurrently. The unique index picks
		// the winner; this attempt rolls back entirely and the winner's
		// transaction is returned unchanged.
		if isUniqueViolation(err) && params.IdempotencyKey != "" {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				zap.L().Warn("Rollback after idempotency collision failed", zap.Error(rbErr))
			}
			winner, lookupErr := s.GetTransactionByIdempotencyKey(ctx, params.IdempotencyKey)
			if lookupErr != nil {
				return nil, fmt.Errorf("%w: idempotency key %s collided but winner not found",
					store.ErrIntegrity, params.IdempotencyKey)
			}
			zap.L().Warn("Idempotency key collision, returning winning transaction",
				zap.String("idempotency_key", params.IdempotencyKey),
				zap.String("transaction_id", winner.Id))
			return winner, nil
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	zap.L().Info("Settlement committed",
		zap.String("transaction_id", transaction.Id),
		zap.String("payer_wallet_id", params.PayerWalletId),
		zap.String("merchant_wallet_id", params.MerchantWalletId),
		zap.Int64("amount", params.Amount))

	return transaction, nil
}

// insertTransactionTx appends a ledger row and scans it back via RETURNING.
func insertTransactionTx(ctx context.Context, tx *sql.Tx, t *models.Transaction) (*models.Transaction, error) {
	var nonce, idempotencyKey sql.NullString
	if t.Nonce != "" {
		nonce = sql.NullString{String: t.Nonce, Valid: true}
	}
	if t.IdempotencyKey != "" {
		idempotencyKey = sql.NullString{String: t.IdempotencyKey, Valid: true}
	}

	inserted, err := scanTransaction(tx.QueryRowContext(ctx, queryInsertTransaction,
		t.Id, t.PayerWalletId, t.MerchantWalletId, t.Amount, t.Currency,
		t.Type, t.Status, nonce, idempotencyKey, t.Metadata, t.CreatedAt, t.CompletedAt))
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// GetTransactionByIdempotencyKey returns the transaction recorded under the
// key, or store.ErrTransactionNotFound.
func (s *Service) GetTransactionByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	return scanTransaction(s.db.QueryRowContext(ctx, queryGetTransactionByIdempotencyKey, key))
}
