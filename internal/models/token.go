package models

// TokenPayload is the plaintext content of a payment token produced by a
// payer device. It exists only on the wire (encrypted and base64-encoded)
// and is never persisted; the nonce alone survives in used_nonces.
// Amount is in integer minor currency units.
type TokenPayload struct {
	UserId          string `json:"userId"`
	WalletId        string `json:"walletId"`
	Amount          int64  `json:"amount"`
	TimestampMillis int64  `json:"timestamp"`
	Nonce           string `json:"nonce"`
	DeviceId        string `json:"deviceId"`
	Signature       string `json:"signature"`
}
