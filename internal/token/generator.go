package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"nfc-wallet-go/internal/models"
)

// Generator produces signed, encrypted payment tokens the way a payer
// device does. The server only ever consumes tokens; this side exists for
// the tokengen tool and for tests.
type Generator struct {
	codec  *Codec
	signer *Signer
}

func NewGenerator(codec *Codec, signer *Signer) *Generator {
	return &Generator{codec: codec, signer: signer}
}

// NewNonce returns a 128-bit random nonce, hex-encoded.
func NewNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Generate builds, signs and encodes a single-use payment token.
func (g *Generator) Generate(userId, walletId string, amount int64, deviceId string, now time.Time) (string, error) {
	nonce, err := NewNonce()
	if err != nil {
		return "", err
	}

	ts := now.UnixMilli()
	payload := &models.TokenPayload{
		UserId:          userId,
		WalletId:        walletId,
		Amount:          amount,
		TimestampMillis: ts,
		Nonce:           nonce,
		DeviceId:        deviceId,
		Signature:       g.signer.Sign(userId, walletId, amount, ts),
	}

	return g.codec.Encode(payload)
}
