package models

import "time"

// SessionStatus is the lifecycle state of a receiver-initiated payment session.
type SessionStatus string

const (
	SessionPending    SessionStatus = "PENDING"
	SessionWaiting    SessionStatus = "WAITING"
	SessionProcessing SessionStatus = "PROCESSING"
	SessionCompleted  SessionStatus = "COMPLETED"
	SessionFailed     SessionStatus = "FAILED"
	SessionExpired    SessionStatus = "EXPIRED"
)

// Terminal reports whether no further transition is defined out of s.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionCompleted, SessionFailed, SessionExpired:
		return true
	}
	return false
}

// Session is a receiver-initiated payment request: the merchant announces an
// amount before the payer taps. Sessions live only in memory; after a restart
// the receiver simply re-creates one.
type Session struct {
	Id               string        `json:"sessionId"`
	ReceiverUserId   string        `json:"-"`
	ReceiverWalletId string        `json:"receiverWalletId"`
	Amount           int64         `json:"amount"`
	Status           SessionStatus `json:"status"`
	Description      string        `json:"description,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	ExpiresAt        time.Time     `json:"expiresAt"`
}
