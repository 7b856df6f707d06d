package store

import (
	"context"
	"errors"
	"time"

	"nfc-wallet-go/internal/models"
)

// Sentinel errors shared across the settlement pipeline. Handlers map these
// to HTTP statuses with errors.Is; the caller-visible message for every
// authenticity failure is the same generic "invalid token" so the API never
// discloses which check failed.
var (
	ErrInvalidToken           = errors.New("invalid payment token")
	ErrTokenExpired           = errors.New("payment token has expired")
	ErrFutureTimestamp        = errors.New("payment token has invalid timestamp")
	ErrReplay                 = errors.New("payment token already redeemed")
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrWalletSuspended        = errors.New("wallet is suspended")
	ErrInsufficientFunds      = errors.New("insufficient balance")
	ErrAmountMismatch         = errors.New("amount mismatch")
	ErrMerchantMismatch       = errors.New("merchant wallet mismatch")
	ErrCurrencyMismatch       = errors.New("currency mismatch")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrIntegrity              = errors.New("settlement integrity fault")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// SettleParams is the input to the atomic settlement unit: nonce insert,
// payer debit, merchant credit and ledger append happen in one transaction.
type SettleParams struct {
	PayerWalletId    string
	MerchantWalletId string
	Amount           int64
	Currency         string
	Nonce            string
	NonceExpiresAt   time.Time
	IdempotencyKey   string
	Metadata         string
}

// TopUpParams is the input for crediting a wallet from an external source.
type TopUpParams struct {
	WalletId  string
	Amount    int64
	Reference string
}

// SettlementStore is the durable-state contract the settlement engine and
// API layer depend on. *database.Service is the single implementation; the
// seam exists so engine tests can run against a throwaway store.
type SettlementStore interface {
	// --- Wallets ---
	GetWallet(ctx context.Context, walletId string) (*models.Wallet, error)
	GetWalletByOwner(ctx context.Context, ownerId string) (*models.Wallet, error)
	TopUp(ctx context.Context, params TopUpParams) (*models.Transaction, error)

	// --- Settlement ---
	Settle(ctx context.Context, params SettleParams) (*models.Transaction, error)
	GetTransactionByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error)

	// --- Transactions ---
	GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error)
	GetTransactionHistory(ctx context.Context, walletId string, limit, offset int) ([]models.Transaction, int, error)

	// --- Nonces ---
	PruneExpiredNonces(ctx context.Context) (int64, error)

	// --- Lifecycle ---
	Close()
}
