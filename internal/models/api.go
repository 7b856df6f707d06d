package models

import "time"

// CreateSessionRequest opens a payment session for the calling receiver.
// Amount is a decimal string ("12.50").
type CreateSessionRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

// CreateSessionResponse echoes the stored session back to the receiver.
type CreateSessionResponse struct {
	SessionId        string        `json:"sessionId"`
	Amount           string        `json:"amount"`
	Status           SessionStatus `json:"status"`
	ReceiverWalletId string        `json:"receiverWalletId"`
	CreatedAt        time.Time     `json:"createdAt"`
	ExpiresAt        time.Time     `json:"expiresAt"`
}

// SessionStatusResponse is returned by session polling.
type SessionStatusResponse struct {
	SessionId string        `json:"sessionId"`
	Amount    string        `json:"amount"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// RedeemRequest submits a tapped token for settlement. Amount is the
// receiver-declared amount as a decimal string and must equal the token's
// amount exactly.
type RedeemRequest struct {
	Token            string            `json:"token"`
	Amount           string            `json:"amount"`
	MerchantWalletId string            `json:"merchantWalletId,omitempty"`
	IdempotencyKey   string            `json:"idempotencyKey,omitempty"`
	SessionId        string            `json:"sessionId,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// TransactionResponse is the API shape of a ledger entry.
type TransactionResponse struct {
	Id               string    `json:"id"`
	PayerWalletId    string    `json:"payerWalletId"`
	MerchantWalletId string    `json:"merchantWalletId"`
	Amount           string    `json:"amount"`
	Currency         string    `json:"currency"`
	Type             string    `json:"type"`
	Status           string    `json:"status"`
	Direction        string    `json:"direction,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	CompletedAt      time.Time `json:"completedAt"`
}

// TopUpRequest credits the caller's own wallet.
type TopUpRequest struct {
	Amount    string `json:"amount"`
	Reference string `json:"reference,omitempty"`
}

// BalanceResponse reports a wallet's balance, currency and status.
type BalanceResponse struct {
	WalletId string `json:"walletId"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// Pagination describes a page of transaction history.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// HistoryResponse is a page of the caller's transaction history.
type HistoryResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Pagination   Pagination            `json:"pagination"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
