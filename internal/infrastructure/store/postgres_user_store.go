package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/dearher/bagstore/internal/readmodel"
)

var ErrUserNotFound = readmodel.ErrUserNotFound

// PostgresUserStore serves the users table: credentials and role documents.
type PostgresUserStore struct {
	db *sqlx.DB
}

func NewPostgresUserStore(db *sqlx.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) GetUserByEmail(ctx context.Context, email string) (*readmodel.UserReadModel, error) {
	var u readmodel.UserReadModel
	query := `SELECT id, email, password_hash, name, role, is_active, created_at, updated_at
        FROM users WHERE lower(email) = $1 LIMIT 1`
	if err := s.db.GetContext(ctx, &u, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (s *PostgresUserStore) GetUserByID(ctx context.Context, id string) (*readmodel.UserReadModel, error) {
	var u readmodel.UserReadModel
	query := `SELECT id, email, password_hash, name, role, is_active, created_at, updated_at
        FROM users WHERE id::text = $1`
	if err := s.db.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetRole returns the role recorded for userID. Inactive accounts have no role.
func (s *PostgresUserStore) GetRole(ctx context.Context, userID string) (string, error) {
	var role string
	query := `SELECT role FROM users WHERE id::text = $1 AND is_active`
	if err := s.db.GetContext(ctx, &role, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

// UpsertUser inserts u or, when the email exists, replaces its password,
// name and role.
func (s *PostgresUserStore) UpsertUser(ctx context.Context, u *readmodel.UserReadModel) error {
	query := `
        INSERT INTO users (id, email, password_hash, name, role, is_active, created_at, updated_at)
        VALUES (:id, :email, :password_hash, :name, :role, :is_active, :created_at, :updated_at)
        ON CONFLICT (lower(email)) DO UPDATE
        SET password_hash = EXCLUDED.password_hash,
            name = EXCLUDED.name,
            role = EXCLUDED.role,
            is_active = EXCLUDED.is_active,
            updated_at = EXCLUDED.updated_at
    `
	if _, err := s.db.NamedExecContext(ctx, query, u); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
