package api

import (
	"context"
	"fmt"

	"nfc-wallet-go/internal/database"
	"nfc-wallet-go/internal/session"
	"nfc-wallet-go/internal/settlement"
)

// Service wires the HTTP surface to the settlement engine, the wallet store
// and the session registry. Authentication happens upstream; handlers trust
// the X-User-Id header an external auth layer has already verified.
type Service struct {
	db       *database.Service
	engine   *settlement.Engine
	sessions *session.Registry
}

func NewService(db *database.Service, engine *settlement.Engine, sessions *session.Registry) *Service {
	return &Service{
		db:       db,
		engine:   engine,
		sessions: sessions,
	}
}

func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
