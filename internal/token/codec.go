package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"nfc-wallet-go/internal/models"
	"nfc-wallet-go/internal/store"

	"go.uber.org/zap"
)

const (
	gcmNonceSize = 12
	gcmTagSize   = 16
)

// Codec encrypts and decrypts payment token payloads.
//
// Wire format: base64(IV(12) || ciphertext || authTag(16)) under AES-256-GCM,
// keyed by the SHA-256 digest of the configured encryption secret. With no
// secret configured the codec falls back to plain base64(JSON) transport,
// relying on the HMAC signature alone for integrity; that mode is only
// acceptable in development and logs a warning anywhere else.
type Codec struct {
	key []byte
}

func NewCodec(encryptionSecret, environment string) *Codec {
	if encryptionSecret == "" {
		if environment != "development" {
			zap.L().Warn("TOKEN_ENCRYPTION_SECRET not set - tokens are transported unencrypted (insecure outside development)")
		}
		return &Codec{}
	}
	key := sha256.Sum256([]byte(encryptionSecret))
	return &Codec{key: key[:]}
}

// Encode serializes and encrypts a payload into its wire string.
func (c *Codec) Encode(payload *models.TokenPayload) (string, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token payload: %w", err)
	}

	if c.key == nil {
		return base64.StdEncoding.EncodeToString(plaintext), nil
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	iv := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	// Seal appends ciphertext||tag after the IV prefix.
	combined := gcm.Seal(iv, iv, plaintext, nil)
	return base64.StdEncoding.EncodeToString(combined), nil
}

// Decode decrypts and parses a wire string back into a payload. Every
// failure mode (bad base64, wrong key, tampered tag, malformed JSON,
// missing fields) collapses into the same generic invalid-token error so
// the API cannot be used as a decryption oracle.
func (c *Codec) Decode(tokenString string) (*models.TokenPayload, error) {
	combined, err := base64.StdEncoding.DecodeString(tokenString)
	if err != nil {
		return nil, store.ErrInvalidToken
	}

	plaintext := combined
	if c.key != nil {
		if len(combined) < gcmNonceSize+gcmTagSize {
			return nil, store.ErrInvalidToken
		}

		block, err := aes.NewCipher(c.key)
		if err != nil {
			return nil, store.ErrInvalidToken
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, store.ErrInvalidToken
		}

		iv := combined[:gcmNonceSize]
		plaintext, err = gcm.Open(nil, iv, combined[gcmNonceSize:], nil)
		if err != nil {
			return nil, store.ErrInvalidToken
		}
	}

	var payload models.TokenPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, store.ErrInvalidToken
	}
	if err := validatePayload(&payload); err != nil {
		zap.L().Warn("Token missing required fields", zap.Error(err))
		return nil, store.ErrInvalidToken
	}

	return &payload, nil
}

func validatePayload(p *models.TokenPayload) error {
	switch {
	case p.UserId == "":
		return fmt.Errorf("missing userId")
	case p.WalletId == "":
		return fmt.Errorf("missing walletId")
	case p.Amount <= 0:
		return fmt.Errorf("missing or non-positive amount")
	case p.TimestampMillis <= 0:
		return fmt.Errorf("missing timestamp")
	case p.Nonce == "":
		return fmt.Errorf("missing nonce")
	case p.DeviceId == "":
		return fmt.Errorf("missing deviceId")
	case p.Signature == "":
		return fmt.Errorf("missing signature")
	}
	return nil
}
