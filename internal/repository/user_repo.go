package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blogapp/internal/database"
	"blogapp/internal/models"
)

// ErrDuplicate is returned when an insert or update hits a unique constraint
var ErrDuplicate = errors.New("duplicate value")

// UserRepository handles database operations for user accounts
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *UserRepository) WithTx(tx database.DBTX) *UserRepository {
	return &UserRepository{db: tx}
}

const userColumns = `id, email, display_name, password_hash, role, password_changed_at,
	reset_token_hash, reset_token_expires, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user      models.User
		role      string
		changedAt sql.NullTime
		resetHash sql.NullString
		resetExp  sql.NullTime
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&role,
		&changedAt,
		&resetHash,
		&resetExp,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = models.Role(role)
	if changedAt.Valid {
		t := changedAt.Time.UTC()
		user.PasswordChangedAt = &t
	}
	if resetHash.Valid {
		h := resetHash.String
		user.ResetTokenHash = &h
	}
	if resetExp.Valid {
		t := resetExp.Time.UTC()
		user.ResetTokenExpires = &t
	}
	return &user, nil
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CreateUser inserts a new user. Email and display name must already be normalized.
func (r *UserRepository) CreateUser(ctx context.Context, email, displayName, passwordHash string, role models.Role) (*models.User, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO users (email, display_name, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, email, displayName, passwordHash, string(role), now, now)
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &models.User{
		ID:           id,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// GetUserByEmail retrieves a user by normalized email address
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetUserByDisplayName retrieves a user by display name
func (r *UserRepository) GetUserByDisplayName(ctx context.Context, displayName string) (*models.User, error) {
	return r.getOne(ctx, "display_name = ?", displayName)
}

// GetUserByResetTokenHash retrieves the user holding a reset token hash, expired or not
func (r *UserRepository) GetUserByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	return r.getOne(ctx, "reset_token_hash = ?", tokenHash)
}

// UpdatePassword stores a new hash, records when it changed and drops any pending reset
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string, changedAt time.Time) error {
	query := `
		UPDATE users
		SET password_hash = ?, password_changed_at = ?, reset_token_hash = NULL, reset_token_expires = NULL, updated_at = ?
		WHERE id = ?
	`
	return r.execOne(ctx, "update password", query, passwordHash, changedAt.UTC(), time.Now().UTC(), userID)
}

// SetResetToken stores a reset token hash and its expiry together
func (r *UserRepository) SetResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	query := `UPDATE users SET reset_token_hash = ?, reset_token_expires = ? WHERE id = ?`
	return r.execOne(ctx, "set reset token", query, tokenHash, expiresAt.UTC(), userID)
}

// ClearResetToken removes any pending reset token
func (r *UserRepository) ClearResetToken(ctx context.Context, userID int64) error {
	query := `UPDATE users SET reset_token_hash = NULL, reset_token_expires = NULL WHERE id = ?`
	return r.execOne(ctx, "clear reset token", query, userID)
}

// ConsumeResetToken clears the reset token only if it still matches tokenHash.
// It returns false when another request consumed or replaced it first.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, userID int64, tokenHash string) (bool, error) {
	query := `
		UPDATE users SET reset_token_hash = NULL, reset_token_expires = NULL
		WHERE id = ? AND reset_token_hash = ?
	`
	result, err := r.db.ExecContext(ctx, query, userID, tokenHash)
	if err != nil {
		return false, fmt.Errorf("failed to consume reset token: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to consume reset token: %w", err)
	}
	return n == 1, nil
}

// ClearExpiredResetTokens drops reset tokens that expired before now
func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users SET reset_token_hash = NULL, reset_token_expires = NULL
		WHERE reset_token_expires IS NOT NULL AND reset_token_expires < ?
	`
	result, err := r.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens: %w", err)
	}
	return result.RowsAffected()
}

// UpdateProfile changes the public fields of a user
func (r *UserRepository) UpdateProfile(ctx context.Context, userID int64, email, displayName string) error {
	query := `UPDATE users SET email = ?, display_name = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, email, displayName, time.Now().UTC(), userID)
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdateRole sets the role of the user with the given email
func (r *UserRepository) UpdateRole(ctx context.Context, email string, role models.Role) error {
	query := `UPDATE users SET role = ?, updated_at = ? WHERE email = ?`
	return r.execOne(ctx, "update role", query, string(role), time.Now().UTC(), email)
}

// DeleteUser removes a user
func (r *UserRepository) DeleteUser(ctx context.Context, userID int64) error {
	return r.execOne(ctx, "delete user", `DELETE FROM users WHERE id = ?`, userID)
}

// execOne runs a statement that must touch exactly one row
func (r *UserRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to %s: %w", op, sql.ErrNoRows)
	}
	return nil
}
