package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"nfc-wallet-go/internal/models"

	"go.uber.org/zap"
)

// Registry owns the in-memory payment sessions a receiver opens before a
// payer taps. It is injected wherever sessions are needed, never a package
// singleton, and its contents are deliberately lost on restart: the
// receiver just opens a new session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	ttl      time.Duration
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*models.Session),
		ttl:      ttl,
	}
}

// Create opens a PENDING session for the receiver's wallet.
func (r *Registry) Create(receiverUserId, receiverWalletId string, amount int64, description string) (*models.Session, error) {
	buf := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := time.Now()
	session := &models.Session{
		Id:               "SES_" + hex.EncodeToString(buf),
		ReceiverUserId:   receiverUserId,
		ReceiverWalletId: receiverWalletId,
		Amount:           amount,
		Status:           models.SessionPending,
		Description:      description,
		CreatedAt:        now,
		ExpiresAt:        now.Add(r.ttl),
	}

	r.mu.Lock()
	r.sessions[session.Id] = session
	r.mu.Unlock()

	zap.L().Info("Payment session created",
		zap.String("session_id", session.Id),
		zap.String("receiver_wallet_id", receiverWalletId),
		zap.Int64("amount", amount))

	return session, nil
}

// Get returns a copy of the session, marking it EXPIRED lazily if its
// deadline has passed and no terminal state was reached first.
func (r *Registry) Get(sessionId string) (*models.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionId]
	if !ok {
		return nil, false
	}
	if !session.Status.Terminal() && time.Now().After(session.ExpiresAt) {
		session.Status = models.SessionExpired
	}

	copied := *session
	return &copied, true
}

// UpdateStatus transitions a session. Updates on terminal sessions are
// no-ops rather than errors: the sweep and the settlement flow may race
// harmlessly.
func (r *Registry) UpdateStatus(sessionId string, status models.SessionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionId]
	if !ok || session.Status.Terminal() {
		return
	}
	session.Status = status
}

// Sweep drops every session past its deadline and returns how many went.
func (r *Registry) Sweep() int {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	cleaned := 0
	for id, session := range r.sessions {
		if now.After(session.ExpiresAt) {
			delete(r.sessions, id)
			cleaned++
		}
	}
	return cleaned
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Run sweeps expired sessions on the given interval until ctx is done.
// Meant to be started as the owner's background goroutine; it never blocks
// foreground calls beyond the map lock.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if cleaned := r.Sweep(); cleaned > 0 {
				zap.L().Debug("Swept expired sessions", zap.Int("count", cleaned))
			}
		}
	}
}
