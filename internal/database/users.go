package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nfc-wallet-go/internal/models"
)

// CreateUser inserts a wallet owner. Existing ids are left untouched.
func (s *Service) CreateUser(ctx context.Context, userId, name, email string) error {
	if _, err := s.db.ExecContext(ctx, queryInsertUser, userId, name, email); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx, queryGetUserById, userId).
		Scan(&user.Id, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
