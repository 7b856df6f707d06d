package models

import (
	"time"
)

// Wallet statuses.
const (
	WalletActive    = "ACTIVE"
	WalletSuspended = "SUSPENDED"
	WalletClosed    = "CLOSED"
)

// Transaction types.
const (
	TypeNFCPayment = "NFC_PAYMENT"
	TypeTopUp      = "TOPUP"
)

// Transaction statuses.
const (
	TxCompleted = "COMPLETED"
)

// User represents an account owner in the system
type User struct {
	Id        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Wallet represents a user's money balance. Balance is held in integer
// minor currency units (cents) and is never negative at a committed state.
type Wallet struct {
	Id        string    `db:"id"`
	OwnerId   string    `db:"owner_id"`
	Balance   int64     `db:"balance"`
	Currency  string    `db:"currency"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Transaction represents an immutable ledger entry, written exactly once
// per successful settlement or top-up.
type Transaction struct {
	Id               string    `db:"id"`
	PayerWalletId    string    `db:"payer_wallet_id"`
	MerchantWalletId string    `db:"merchant_wallet_id"`
	Amount           int64     `db:"amount"`
	Currency         string    `db:"currency"`
	Type             string    `db:"type"`
	Status           string    `db:"status"`
	Nonce            string    `db:"nonce"`
	IdempotencyKey   string    `db:"idempotency_key"`
	Metadata         string    `db:"metadata"`
	CreatedAt        time.Time `db:"created_at"`
	CompletedAt      time.Time `db:"completed_at"`
}

// UsedNonce records a consumed token nonce for replay protection.
// Rows are pruned once ExpiresAt has passed.
type UsedNonce struct {
	Nonce     string    `db:"nonce"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}
