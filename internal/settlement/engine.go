package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nfc-wallet-go/internal/models"
	"nfc-wallet-go/internal/session"
	"nfc-wallet-go/internal/store"
	"nfc-wallet-go/internal/token"

	"go.uber.org/zap"
)

// Engine drives a redemption attempt from raw token string to committed
// ledger entry. Steps 1-7 are pure validation (caller errors, no side
// effects); only the final store.Settle call moves money, and it does so in
// a single atomic unit.
type Engine struct {
	store          store.SettlementStore
	codec          *token.Codec
	signer         *token.Signer
	sessions       *session.Registry
	validityWindow time.Duration
	nonceRetention time.Duration
	now            func() time.Time
}

type Config struct {
	Store          store.SettlementStore
	Codec          *token.Codec
	Signer         *token.Signer
	Sessions       *session.Registry
	ValidityWindow time.Duration
	NonceRetention time.Duration
	Now            func() time.Time // test clock, defaults to time.Now
}

func NewEngine(cfg Config) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:          cfg.Store,
		codec:          cfg.Codec,
		signer:         cfg.Signer,
		sessions:       cfg.Sessions,
		validityWindow: cfg.ValidityWindow,
		nonceRetention: cfg.NonceRetention,
		now:            now,
	}
}

// RedeemParams carries one redemption attempt. MerchantUserId comes from the
// already-authenticated caller identity, never from the request body.
type RedeemParams struct {
	MerchantUserId   string
	TokenString      string
	DeclaredAmount   int64
	MerchantWalletId string // optional; must match the resolved wallet when set
	IdempotencyKey   string
	SessionId        string
	Metadata         map[string]string
}

// Redeem validates and settles a tapped payment token. Every branch is
// terminal; no partial fund movement is ever observable.
func (e *Engine) Redeem(ctx context.Context, params RedeemParams) (*models.Transaction, error) {
	// Idempotent replay: a transaction already recorded under this key is
	// returned unchanged, with no further side effects.
	if params.IdempotencyKey != "" {
		existing, err := e.store.GetTransactionByIdempotencyKey(ctx, params.IdempotencyKey)
		if err == nil {
			zap.L().Info("Idempotent replay, returning recorded transaction",
				zap.String("idempotency_key", params.IdempotencyKey),
				zap.String("transaction_id", existing.Id))
			return existing, nil
		}
		if !errors.Is(err, store.ErrTransactionNotFound) {
			return nil, err
		}
	}

	payload, err := e.codec.Decode(params.TokenString)
	if err != nil {
		return nil, err
	}

	if !e.signer.Verify(payload) {
		// Potential attack signal: a well-formed token with a bad HMAC
		// means someone is forging or tampering. The caller still only
		// sees the generic invalid-token error.
		zap.L().Warn("Token signature verification failed",
			zap.String("user_id", payload.UserId),
			zap.String("wallet_id", payload.WalletId),
			zap.String("device_id", payload.DeviceId))
		return nil, store.ErrInvalidToken
	}

	now := e.now()
	age := now.UnixMilli() - payload.TimestampMillis
	if age > e.validityWindow.Milliseconds() {
		return nil, store.ErrTokenExpired
	}
	if payload.TimestampMillis > now.UnixMilli() {
		return nil, store.ErrFutureTimestamp
	}

	merchantWallet, err := e.store.GetWalletByOwner(ctx, params.MerchantUserId)
	if err != nil {
		return nil, err
	}
	// Defense against redirecting funds: a caller-supplied wallet id must be
	// the caller's own.
	if params.MerchantWalletId != "" && params.MerchantWalletId != merchantWallet.Id {
		return nil, store.ErrMerchantMismatch
	}

	payerWallet, err := e.store.GetWallet(ctx, payload.WalletId)
	if err != nil {
		return nil, err
	}
	if payerWallet.Status != models.WalletActive {
		return nil, store.ErrWalletSuspended
	}

	if params.DeclaredAmount != payload.Amount {
		return nil, store.ErrAmountMismatch
	}
	if payerWallet.Currency != merchantWallet.Currency {
		return nil, store.ErrCurrencyMismatch
	}

	metadata, err := buildMetadata(params.Metadata, payload.DeviceId)
	if err != nil {
		return nil, err
	}

	e.updateSession(params.SessionId, models.SessionProcessing)

	transaction, err := e.store.Settle(ctx, store.SettleParams{
		PayerWalletId:    payerWallet.Id,
		MerchantWalletId: merchantWallet.Id,
		Amount:           payload.Amount,
		Currency:         payerWallet.Currency,
		Nonce:            payload.Nonce,
		NonceExpiresAt:   now.Add(e.nonceRetention),
		IdempotencyKey:   params.IdempotencyKey,
		Metadata:         metadata,
	})
	if err != nil {
		// A replay race on a keyed retry: the first attempt consumed the
		// nonce and recorded the transaction between our step-1 check and
		// the settle. Return that recorded transaction, same as step 1.
		if errors.Is(err, store.ErrReplay) && params.IdempotencyKey != "" {
			if existing, lookupErr := e.store.GetTransactionByIdempotencyKey(ctx, params.IdempotencyKey); lookupErr == nil {
				e.updateSession(params.SessionId, models.SessionCompleted)
				return existing, nil
			}
		}
		if errors.Is(err, store.ErrReplay) {
			zap.L().Warn("Double-spend attempt rejected",
				zap.String("payer_wallet_id", payerWallet.Id),
				zap.String("merchant_wallet_id", merchantWallet.Id),
				zap.String("device_id", payload.DeviceId))
		}
		if errors.Is(err, store.ErrIntegrity) {
			// Fatal inconsistency: alert-level, surfaced for manual
			// reconciliation, never retried here.
			zap.L().Error("Settlement integrity fault", zap.Error(err))
		}
		e.updateSession(params.SessionId, models.SessionFailed)
		return nil, err
	}

	e.updateSession(params.SessionId, models.SessionCompleted)
	return transaction, nil
}

func (e *Engine) updateSession(sessionId string, status models.SessionStatus) {
	if sessionId == "" || e.sessions == nil {
		return
	}
	e.sessions.UpdateStatus(sessionId, status)
}

func buildMetadata(extra map[string]string, deviceId string) (string, error) {
	merged := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		merged[k] = v
	}
	merged["payerDeviceId"] = deviceId

	raw, err := json.Marshal(merged)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(raw), nil
}
