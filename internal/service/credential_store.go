package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogapp/internal/database"
	"blogapp/internal/models"
	"blogapp/internal/repository"
	"blogapp/internal/security"
	"blogapp/internal/validation"
)

// DefaultResetTokenTTL is how long a password reset token stays usable
const DefaultResetTokenTTL = 10 * time.Minute

// passwordChangeSkew backdates the password-changed timestamp so a session
// minted right after the change is not considered stale.
const passwordChangeSkew = time.Millisecond

// NewUser is the input for account creation
type NewUser struct {
	Email           string
	DisplayName     string
	Password        string
	PasswordConfirm string
}

// CredentialStore owns user credentials: creation, password changes and
// the reset token fields. It is the only code that writes password hashes.
type CredentialStore struct {
	users    *repository.UserRepository
	hasher   security.PasswordHasher
	resetTTL time.Duration
	now      func() time.Time
}

// NewCredentialStore creates a credential store. A non-positive resetTTL
// falls back to DefaultResetTokenTTL.
func NewCredentialStore(users *repository.UserRepository, hasher security.PasswordHasher, resetTTL time.Duration) *CredentialStore {
	if resetTTL <= 0 {
		resetTTL = DefaultResetTokenTTL
	}
	return &CredentialStore{
		users:    users,
		hasher:   hasher,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// WithTx returns a store whose writes go through tx
func (s *CredentialStore) WithTx(tx database.DBTX) *CredentialStore {
	txStore := *s
	txStore.users = s.users.WithTx(tx)
	return &txStore
}

// CreateUser validates the input, hashes the password and stores a new
// account with the default role.
func (s *CredentialStore) CreateUser(ctx context.Context, input NewUser) (*models.User, error) {
	if err := validation.ValidateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := validation.ValidateDisplayName(input.DisplayName); err != nil {
		return nil, err
	}
	if err := validation.ValidatePasswordConfirm(input.Password, input.PasswordConfirm); err != nil {
		return nil, err
	}

	email := validation.NormalizeEmail(input.Email)
	displayName := strings.TrimSpace(input.DisplayName)

	if err := s.checkAvailable(ctx, 0, email, displayName); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, email, displayName, hash, models.RoleUser)
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent signup
		return nil, s.duplicateError(ctx, 0, email)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail returns the user with the given address, or nil
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.users.GetUserByEmail(ctx, validation.NormalizeEmail(email))
}

// FindByID returns the user with the given id, or nil
func (s *CredentialStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// UpdatePassword re-hashes the password, records the change time and drops
// any pending reset. Sessions issued before the call become stale.
func (s *CredentialStore) UpdatePassword(ctx context.Context, userID int64, password string) error {
	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	return s.setPasswordHash(ctx, userID, hash)
}

func (s *CredentialStore) hashPassword(password string) (string, error) {
	if err := validation.ValidatePassword(password); err != nil {
		return "", err
	}
	return s.hasher.Hash(password)
}

func (s *CredentialStore) setPasswordHash(ctx context.Context, userID int64, hash string) error {
	changedAt := s.now().UTC().Truncate(time.Millisecond).Add(-passwordChangeSkew)
	err := s.users.UpdatePassword(ctx, userID, hash, changedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}

// BeginReset issues a reset token for user and returns its plaintext. Only
// the hash is stored. Any earlier pending token is replaced.
func (s *CredentialStore) BeginReset(ctx context.Context, user *models.User) (string, error) {
	plaintext, hash, err := security.GenerateResetToken()
	if err != nil {
		return "", err
	}
	expiresAt := s.now().Add(s.resetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, hash, expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return plaintext, nil
}

// ClearReset removes a pending reset token
func (s *CredentialStore) ClearReset(ctx context.Context, userID int64) error {
	err := s.users.ClearResetToken(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}

// ConsumeReset looks up the user holding plaintext and clears the token.
// Unknown, expired and already consumed tokens all return ErrInvalidResetToken.
func (s *CredentialStore) ConsumeReset(ctx context.Context, plaintext string) (*models.User, error) {
	if plaintext == "" {
		return nil, ErrInvalidResetToken
	}
	hash := security.HashResetToken(plaintext)

	user, err := s.users.GetUserByResetTokenHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.HasPendingReset(s.now()) {
		return nil, ErrInvalidResetToken
	}

	consumed, err := s.users.ConsumeResetToken(ctx, user.ID, hash)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrInvalidResetToken
	}

	user.ResetTokenHash = nil
	user.ResetTokenExpires = nil
	return user, nil
}

// PurgeExpiredResets clears reset tokens that can no longer be used
func (s *CredentialStore) PurgeExpiredResets(ctx context.Context) (int64, error) {
	return s.users.ClearExpiredResetTokens(ctx, s.now())
}

// checkAvailable reports ErrEmailTaken or ErrDisplayNameTaken when another
// account (not selfID) already uses the value.
func (s *CredentialStore) checkAvailable(ctx context.Context, selfID int64, email, displayName string) error {
	if email != "" {
		existing, err := s.users.GetUserByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil && existing.ID != selfID {
			return ErrEmailTaken
		}
	}
	if displayName != "" {
		existing, err := s.users.GetUserByDisplayName(ctx, displayName)
		if err != nil {
			return fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil && existing.ID != selfID {
			return ErrDisplayNameTaken
		}
	}
	return nil
}

// duplicateError works out which unique column a failed write collided with
func (s *CredentialStore) duplicateError(ctx context.Context, selfID int64, email string) error {
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err == nil && existing != nil && existing.ID != selfID {
		return ErrEmailTaken
	}
	return ErrDisplayNameTaken
}
