package settlement

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"nfc-wallet-go/internal/database"
	"nfc-wallet-go/internal/models"
	"nfc-wallet-go/internal/session"
	"nfc-wallet-go/internal/store"
	"nfc-wallet-go/internal/token"
)

const (
	testEncryptionSecret = "test-encryption-secret"
	testSigningSecret    = "test-signing-secret"
	testValidityWindow   = 2 * time.Minute
	testNonceRetention   = 24 * time.Hour
)

type engineFixture struct {
	engine   *Engine
	db       *database.Service
	codec    *token.Codec
	signer   *token.Signer
	sessions *session.Registry
}

func setupEngine(t *testing.T) (*engineFixture, func()) {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	codec := token.NewCodec(testEncryptionSecret, "development")
	signer := token.NewSigner(testSigningSecret)
	sessions := session.NewRegistry(5 * time.Minute)

	engine := NewEngine(Config{
		Store:          db,
		Codec:          codec,
		Signer:         signer,
		Sessions:       sessions,
		ValidityWindow: testValidityWindow,
		NonceRetention: testNonceRetention,
	})

	fixture := &engineFixture{
		engine:   engine,
		db:       db,
		codec:    codec,
		signer:   signer,
		sessions: sessions,
	}
	return fixture, db.Close
}

func (f *engineFixture) seedWallet(t *testing.T, ownerId string, balance int64) *models.Wallet {
	t.Helper()

	ctx := context.Background()
	if err := f.db.CreateUser(ctx, ownerId, "Test "+ownerId, ownerId+"@example.com"); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	wallet, err := f.db.CreateWallet(ctx, ownerId, balance, "USD")
	if err != nil {
		t.Fatalf("Failed to create wallet: %v", err)
	}
	return wallet
}

// mintToken builds a valid token with full control over the timestamp.
func (f *engineFixture) mintToken(t *testing.T, payerId, walletId string, amount int64, issuedAt time.Time) string {
	t.Helper()

	nonce, err := token.NewNonce()
	if err != nil {
		t.Fatalf("Failed to generate nonce: %v", err)
	}
	ts := issuedAt.UnixMilli()
	encoded, err := f.codec.Encode(&models.TokenPayload{
		UserId:          payerId,
		WalletId:        walletId,
		Amount:          amount,
		TimestampMillis: ts,
		Nonce:           nonce,
		DeviceId:        "test-device",
		Signature:       f.signer.Sign(payerId, walletId, amount, ts),
	})
	if err != nil {
		t.Fatalf("Failed to encode token: %v", err)
	}
	return encoded
}

func suspendWallet(t *testing.T, db *database.Service, walletId string) {
	t.Helper()
	if err := db.SetWalletStatus(context.Background(), walletId, models.WalletSuspended); err != nil {
		t.Fatalf("Failed to suspend wallet: %v", err)
	}
}

func (f *engineFixture) balance(t *testing.T, walletId string) int64 {
	t.Helper()
	wallet, err := f.db.GetWallet(context.Background(), walletId)
	if err != nil {
		t.Fatalf("GetWallet failed: %v", err)
	}
	return wallet.Balance
}

// Token for 100.00 against a 500.00 balance: payer ends at 400.00, merchant
// gains 100.00, one COMPLETED transaction exists.
func TestRedeem_Success(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	payer := f.seedWallet(t, "payer", 50000)
	merchant := f.seedWallet(t, "merchant", 0)

	tokenString := f.mintToken(t, "payer", payer.Id, 10000, time.Now())
	transaction, err := f.engine.Redeem(context.Background(), RedeemParams{
		MerchantUserId: "merchant",
		TokenString:    tokenString,
		DeclaredAmount: 10000,
	})
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	if transaction.Status != models.TxCompleted {
		t.Errorf("Expected status COMPLETED, got %s", transaction.Status)
	}
	if f.balance(t, payer.Id) != 40000 {
		t.Errorf("Expected payer balance 40000, got %d", f.balance(t, payer.Id))
	}
	if f.balance(t, merchant.Id) != 10000 {
		t.Errorf("Expected merchant balance 10000, got %d", f.balance(t, merchant.Id))
	}
	if transaction.PayerWalletId != payer.Id || transaction.MerchantWalletId != merchant.Id {
		t.Error("Transaction recorded against wrong wallets")
	}
}

func TestRedeem_ConservationOfFunds(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	payer := f.seedWallet(t, "payer", 50000)
	merchant := f.seedWallet(t, "merchant", 20000)
	totalBefore := f.balance(t, payer.Id) + f.balance(t, merchant.Id)

	for _, amount := range []int64{100, 2500, 9999} {
		tokenString := f.mintToken(t, "payer", payer.Id, amount, time.Now())
		if _, err := f.engine.Redeem(context.Background(), RedeemParams{
			MerchantUserId: "merchant",
			TokenString:    tokenString,
			DeclaredAmount: amount,
		}); err != nil {
			t.Fatalf("Redeem failed: %v", err)
		}
	}

	totalAfter := f.balance(t, payer.Id) + f.balance(t, merchant.Id)
	if totalBefore != totalAfter {
		t.Errorf("Total supply changed: before=%d after=%d", totalBefore, totalAfter)
	}
}

func TestRedeem_ReplayRejected(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	payer := f.seedWallet(t, "payer", 50000)
	merchant := f.seedWallet(t, "merchant", 0)

	tokenString := f.mintToken(t, "payer", payer.Id, 10000, time.Now())
	params := RedeemParams{
		MerchantUserId: "merchant",
		TokenString:    tokenString,
		DeclaredAmount: 10000,
	}

	if _, err := f.engine.Redeem(context.Background(), params); err != nil {
		t.Fatalf("First redeem failed: %v", err)
	}

	_, err := f.engine.Redeem(context.Background(), params)
	if !errors.Is(err, store.ErrReplay) {
		t.Fatalf("Expected ErrReplay, got %v", err)
	}

	if f.balance(t, payer.Id) != 40000 {
		t.Errorf("Replay changed payer balance: %d", f.balance(t, payer.Id))
	}
	if f.balance(t, merchant.Id) != 10000 {
		t.Errorf("Replay changed merchant balance: %d", f.balance(t, merchant.Id))
	}
}

// timestamp = now - validityWindow - 1ms: expired, no balance change and no
// nonce recorded.
func TestRedeem_ExpiredToken(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	payer := f.seedWallet(t, "payer", 50000)
	f.seedWallet(t, "merchant", 0)

	issuedAt := time.Now().Add(-testValidityWindow - time.Millisecond)
	tokenString := f.mintToken(t, "payer", payer.Id, 10000, issuedAt)

	_, err := f.engine.Redeem(context.Background(), RedeemParams{
		MerchantUserId: "merchant",
		TokenString:    tokenString,
		DeclaredAmount: 10000,
	})
	if !errors.Is(err, store.ErrTokenExpired) {
		t.Fatalf("Expected ErrTokenExpired, got %v", err)
	}

	if f.balance(t, payer.Id) != 50000 {
		t.Errorf("Expired token changed payer balance: %d", f.balance(t, payer.Id))
	}

	payload, err := f.codec.Decode(tokenString)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	used, err := f.db.HasNonce(context.Background(), payload.Nonce)
	if err != nil {
		t.Fatalf("HasNonce failed: %v", err)
	}
	if used {
		t.Error("Expired token consumed its nonce")
	}
}

func TestRedeem_FutureTimestampRejected(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	payer := f.seedWallet(t, "payer", 50000)
	f.seedWallet(t, "merchant", 0)

	tokenString := f.mintToken(t, "payer", payer.Id, 10000, time.Now().Add(time.Minute))
	_, err := f.engine.Redeem(context.Background(), RedeemParams{
		MerchantUserId: "merchant",
		TokenString:    tokenString,
		DeclaredAmount: 10000,
	})
	if !errors.Is(err, store.ErrFutureTimestamp) {
		t.Fatalf("Expected ErrFutureTimestamp, got %v", err)
	}
}

func TestRedeem_ForgedSignatureRejected(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	payer := f.seedWallet(t, "payer", 50000)
	f.seedWallet(t, "merchant", 0)

	// Signed under the wrong secret: well-formed but forged.
	forger := token.NewSigner("attacker-secret")
	ts := time.Now().UnixMilli()
	nonce, _ := token.NewNonce()
	tokenString, err := f.codec.Encode(&models.TokenPayload{
		UserId:          "payer",
		WalletId:        payer.Id,
		Amount:          10000,
		TimestampMillis: ts,
		Nonce:           nonce,
		DeviceId:        "test-device",
		Signature:       forger.Sign("payer", payer.Id, 10000, ts),
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	_, err = f.engine.Redeem(context.Background(), RedeemParams{
		MerchantUserId: "merchant",
		TokenString:    tokenString,
		DeclaredAmount: 10000,
	})
	if !errors.Is(err, store.ErrInvalidToken) {
		t.Fatalf("Expected ErrInvalidToken, got %v", err)
	}
	if f.balance(t, payer.Id) != 50000 {
		t.Errorf("Forged token changed payer balance: %d", f.balance(t, payer.Id))
	}
}

func TestRedeem_GarbageTokenRejected(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	f.seedWallet(t, "merchant", 0)

	_, err := f.engine.Redeem(context.Background(), RedeemParams{
		MerchantUserId: "merchant",
		TokenString:    "definitely-not-a-token",
		DeclaredAmount: 10000,
	})
	if !errors.Is(err, store.ErrInvalidToken) {
		t.Fatalf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestRedeem_AmountMismatchRejected(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	payer := f.seedWallet(t, "payer", 50000)
	f.seedWallet(t, "merchant", 0)

	tokenString := f.mintToken(t, "payer", payer.Id, 10000, time.Now())
	_, err := f.engine.Redeem(context.Background(), RedeemParams{
		MerchantUserId: "merchant",
		TokenString:    tokenString,
		DeclaredAmount: 9999,
	})
	if !errors.Is(err, store.ErrAmountMismatch) {
		t.Fatalf("Expected ErrAmountMismatch, got %v", err)
	}
}

func TestRedeem_MerchantWalletMismatchRejected(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	payer := f.seedWallet(t, "payer", 50000)
	f.seedWallet(t, "merchant", 0)
	other := f.seedWallet(t, "other", 0)

	tokenString := f.mintToken(t, "payer", payer.Id, 10000, time.Now())
	_, err := f.engine.Redeem(context.Background(), RedeemParams{
		MerchantUserId:   "merchant",
		TokenString:      tokenString,
		DeclaredAmount:   10000,
		MerchantWalletId: other.Id, // someone else's wallet
	})
	if !errors.Is(err, store.ErrMerchantMismatch) {
		t.Fatalf("Expected ErrMerchantMismatch, got %v", err)
	}
	if f.balance(t, other.Id) != 0 {
		t.Error("Funds were redirected to a foreign wallet")
	}
}

func TestRedeem_SuspendedPayerRejected(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	payer := f.seedWallet(t, "payer", 50000)
	f.seedWallet(t, "merchant", 0)

	ctx := context.Background()
	if _, err := f.db.TopUp(ctx, store.TopUpParams{WalletId: payer.Id, Amount: 1}); err != nil {
		t.Fatalf("sanity top-up failed: %v", err)
	}
	suspendWallet(t, f.db, payer.Id)

	tokenString := f.mintToken(t, "payer", payer.Id, 10000, time.Now())
	_, err := f.engine.Redeem(ctx, RedeemParams{
		MerchantUserId: "merchant",
		TokenString:    tokenString,
		DeclaredAmount: 10000,
	})
	if !errors.Is(err, store.ErrWalletSuspended) {
		t.Fatalf("Expected ErrWalletSuspended, got %v", err)
	}
}

func TestRedeem_UnknownPayerWalletRejected(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	f.seedWallet(t, "merchant", 0)

	tokenString := f.mintToken(t, "payer", "no-such-wallet", 10000, time.Now())
	_, err := f.engine.Redeem(context.Background(), RedeemParams{
		MerchantUserId: "merchant",
		TokenString:    tokenString,
		DeclaredAmount: 10000,
	})
	if !errors.Is(err, store.ErrWalletNotFound) {
		t.Fatalf("Expected ErrWalletNotFound, got %v", err)
	}
}

func TestRedeem_InsufficientFunds(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	payer := f.seedWallet(t, "payer", 500)
	f.seedWallet(t, "merchant", 0)

	tokenString := f.mintToken(t, "payer", payer.Id, 10000, time.Now())
	_, err := f.engine.Redeem(context.Background(), RedeemParams{
		MerchantUserId: "merchant",
		TokenString:    tokenString,
		DeclaredAmount: 10000,
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}
	if f.balance(t, payer.Id) != 500 {
		t.Errorf("Rejected redemption changed payer balance: %d", f.balance(t, payer.Id))
	}
}

// Same idempotency key and token twice: same transaction both times, funds
// move exactly once.
func TestRedeem_IdempotentRetry(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	payer := f.seedWallet(t, "payer", 50000)
	f.seedWallet(t, "merchant", 0)

	tokenString := f.mintToken(t, "payer", payer.Id, 10000, time.Now())
	params := RedeemParams{
		MerchantUserId: "merchant",
		TokenString:    tokenString,
		DeclaredAmount: 10000,
		IdempotencyKey: "retry-key-1",
	}

	first, err := f.engine.Redeem(context.Background(), params)
	if err != nil {
		t.Fatalf("First redeem failed: %v", err)
	}
	second, err := f.engine.Redeem(context.Background(), params)
	if err != nil {
		t.Fatalf("Retried redeem failed: %v", err)
	}

	if first.Id != second.Id {
		t.Errorf("Retry produced a different transaction: %s vs %s", first.Id, second.Id)
	}
	if f.balance(t, payer.Id) != 40000 {
		t.Errorf("Funds moved more than once: payer balance %d", f.balance(t, payer.Id))
	}
}

func TestRedeem_SessionCompletedOnSuccess(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	payer := f.seedWallet(t, "payer", 50000)
	merchant := f.seedWallet(t, "merchant", 0)

	paymentSession, err := f.sessions.Create("merchant", merchant.Id, 10000, "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	f.sessions.UpdateStatus(paymentSession.Id, models.SessionWaiting)

	tokenString := f.mintToken(t, "payer", payer.Id, 10000, time.Now())
	if _, err := f.engine.Redeem(context.Background(), RedeemParams{
		MerchantUserId: "merchant",
		TokenString:    tokenString,
		DeclaredAmount: 10000,
		SessionId:      paymentSession.Id,
	}); err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	after, _ := f.sessions.Get(paymentSession.Id)
	if after.Status != models.SessionCompleted {
		t.Errorf("Expected session COMPLETED, got %s", after.Status)
	}
}

func TestRedeem_SessionFailedOnRejectedSettlement(t *testing.T) {
	f, cleanup := setupEngine(t)
	defer cleanup()

	payer := f.seedWallet(t, "payer", 500)
	merchant := f.seedWallet(t, "merchant", 0)

	paymentSession, err := f.sessions.Create("merchant", merchant.Id, 10000, "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	tokenString := f.mintToken(t, "payer", payer.Id, 10000, time.Now())
	if _, err := f.engine.Redeem(context.Background(), RedeemParams{
		MerchantUserId: "merchant",
		TokenString:    tokenString,
		DeclaredAmount: 10000,
		SessionId:      paymentSession.Id,
	}); !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	after, _ := f.sessions.Get(paymentSession.Id)
	if after.Status != models.SessionFailed {
		t.Errorf("Expected session FAILED, got %s", after.Status)
	}
}
