package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/presence-app/presence/pkg/models"
)

// Sentinel errors surfaced to services so they can map them to HTTP statuses
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Health checks the underlying database connection
func (r *Repository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

// isUniqueViolation reports whether err is a Postgres unique constraint error
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Users

// CreateUser creates a new user record
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `
		INSERT INTO users (id, pseudo, email, password_hash, email_verified, verification_token_hash, verification_expiry, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		user.ID, user.Pseudo, user.Email, user.PasswordHash, user.EmailVerified,
		nullIfEmpty(user.VerificationTokenHash), user.VerificationExpiry, user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("user %s/%s: %w", user.Email, user.Pseudo, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id string) (*models.User, error) {
	return r.getUserWhere(ctx, "id = $1", id)
}

// GetUserByEmail retrieves a user by email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUserWhere(ctx, "email = $1", email)
}

// GetUserByPseudo retrieves a user by pseudo
func (r *Repository) GetUserByPseudo(ctx context.Context, pseudo string) (*models.User, error) {
	return r.getUserWhere(ctx, "pseudo = $1", pseudo)
}

// GetUserByVerificationToken retrieves a user by the hash of a verification token
func (r *Repository) GetUserByVerificationToken(ctx context.Context, tokenHash string) (*models.User, error) {
	return r.getUserWhere(ctx, "verification_token_hash = $1", tokenHash)
}

func (r *Repository) getUserWhere(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var user models.User
	var tokenHash *string

	query := `
		SELECT id, pseudo, email, password_hash, email_verified, verification_token_hash,
		       verification_expiry, role, last_login, created_at, updated_at
		FROM users
		WHERE ` + where

	err := r.db.Pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Pseudo, &user.Email, &user.PasswordHash, &user.EmailVerified,
		&tokenHash, &user.VerificationExpiry, &user.Role, &user.LastLogin,
		&user.CreatedAt, &user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if tokenHash != nil {
		user.VerificationTokenHash = *tokenHash
	}

	return &user, nil
}

// UpdateLastLogin records a successful login time
func (r *Repository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	query := `UPDATE users SET last_login = $2, updated_at = now() WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, userID, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	return nil
}

// MarkEmailVerified flips the user to verified and clears the one-shot token fields
func (r *Repository) MarkEmailVerified(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET email_verified = TRUE, verification_token_hash = NULL,
		    verification_expiry = NULL, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	return nil
}

// ExpireVerificationTokens clears verification token fields whose expiry has
// passed. The accounts themselves are kept; a user can request a fresh token.
func (r *Repository) ExpireVerificationTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users
		SET verification_token_hash = NULL, verification_expiry = NULL, updated_at = now()
		WHERE verification_token_hash IS NOT NULL AND verification_expiry < $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire verification tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
