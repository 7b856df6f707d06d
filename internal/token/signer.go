package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"

	"nfc-wallet-go/internal/models"
)

// Signer computes and checks the HMAC-SHA256 integrity signature carried
// inside a payment token. The signing secret is distinct from the codec's
// encryption secret.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// canonicalString is the exact byte sequence that gets signed. Amount is a
// base-10 minor-units integer, so both sides serialize it identically; the
// signature covers this literal string, not a normalized number.
func canonicalString(userId, walletId string, amount, timestampMillis int64) string {
	return fmt.Sprintf("%s|%s|%s|%s",
		userId, walletId,
		strconv.FormatInt(amount, 10),
		strconv.FormatInt(timestampMillis, 10))
}

// Sign returns the base64-encoded HMAC over the canonical token tuple.
func (s *Signer) Sign(userId, walletId string, amount, timestampMillis int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(canonicalString(userId, walletId, amount, timestampMillis)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature for the payload's signed fields and
// compares in constant time. A length mismatch is simply "not equal".
func (s *Signer) Verify(payload *models.TokenPayload) bool {
	expected := s.Sign(payload.UserId, payload.WalletId, payload.Amount, payload.TimestampMillis)
	return hmac.Equal([]byte(payload.Signature), []byte(expected))
}
