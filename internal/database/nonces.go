package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nfc-wallet-go/internal/store"

	"go.uber.org/zap"
)

// consumeNonceTx inserts the nonce inside the caller's settlement
// transaction. The primary-key violation *is* the double-spend check; it
// rides the same atomic unit as the balance moves, so a crash can never
// leave a consumed nonce without a matching ledger entry.
func consumeNonceTx(ctx context.Context, tx *sql.Tx, nonce string, expiresAt time.Time) error {
	_, err := tx.ExecContext(ctx, queryInsertNonce, nonce, expiresAt.UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: nonce %s", store.ErrReplay, nonce)
	}
	if err != nil {
		return fmt.Errorf("failed to record nonce: %w", err)
	}
	return nil
}

// HasNonce reports whether a nonce is already consumed. Advisory only; the
// settlement path never relies on it.
func (s *Service) HasNonce(ctx context.Context, nonce string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, queryCountNonces, nonce).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check nonce: %w", err)
	}
	return count > 0, nil
}

// PruneExpiredNonces removes nonce records whose retention window has
// elapsed. Retention exceeds the token validity window (enforced at config
// load), so a pruned nonce always belongs to a token that would already be
// rejected as stale.
func (s *Service) PruneExpiredNonces(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, queryPruneNonces, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune nonces: %w", err)
	}
	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if pruned > 0 {
		zap.L().Debug("Pruned expired nonces", zap.Int64("count", pruned))
	}
	return pruned, nil
}
