package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrUserNotFound = errors.New("store: user not found")

type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAnonymous  bool
	// Provider and ProviderSubject identify a federated account; both are
	// empty for password and anonymous accounts.
	Provider        string
	ProviderSubject string
	CreatedAt       time.Time
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, is_anonymous, provider, provider_subject)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Email, user.DisplayName, user.PasswordHash, user.IsAnonymous, user.Provider, user.ProviderSubject)
	if err != nil {
		return mapError(fmt.Errorf("insert user: %w", err))
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, is_anonymous, provider, provider_subject, created_at
		FROM users WHERE email=$1
	`, email))
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, is_anonymous, provider, provider_subject, created_at
		FROM users WHERE id=$1
	`, id))
}

func (s *PostgresStore) scanUser(row *sql.Row) (User, error) {
	var u User
	var createdAt sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.IsAnonymous, &u.Provider, &u.ProviderSubject, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, mapError(fmt.Errorf("scan user: %w", err))
	}
	if createdAt.Valid {
		u.CreatedAt = createdAt.Time
	}
	return u, nil
}
