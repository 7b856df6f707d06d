package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nfc-wallet-go/internal/models"
	"nfc-wallet-go/internal/store"

	"go.uber.org/zap"
)

func scanTransaction(r row) (*models.Transaction, error) {
	var t models.Transaction
	var nonce, idempotencyKey, metadata sql.NullString
	err := r.Scan(&t.Id, &t.PayerWalletId, &t.MerchantWalletId, &t.Amount, &t.Currency,
		&t.Type, &t.Status, &nonce, &idempotencyKey, &metadata, &t.CreatedAt, &t.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	t.Nonce = nonce.String
	t.IdempotencyKey = idempotencyKey.String
	t.Metadata = metadata.String
	return &t, nil
}

func (s *Service) GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error) {
	return scanTransaction(s.db.QueryRowContext(ctx, queryGetTransaction, transactionId))
}

// GetTransactionHistory returns a page of ledger entries touching the wallet
// on either side, newest first, plus the total row count for pagination.
func (s *Service) GetTransactionHistory(ctx context.Context, walletId string, limit, offset int) ([]models.Transaction, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, queryCountTransactionHistory, walletId, walletId).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryGetTransactionHistory, walletId, walletId, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var nonce, idempotencyKey, metadata sql.NullString
		err := rows.Scan(&t.Id, &t.PayerWalletId, &t.MerchantWalletId, &t.Amount, &t.Currency,
			&t.Type, &t.Status, &nonce, &idempotencyKey, &metadata, &t.CreatedAt, &t.CompletedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Nonce = nonce.String
		t.IdempotencyKey = idempotencyKey.String
		t.Metadata = metadata.String
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, total, nil
}
