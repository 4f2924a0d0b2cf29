package service

import (
	"context"
	"fmt"
	"strings"

	"blogapp/internal/database"
	"blogapp/internal/validation"

	"go.uber.org/zap"
)

// ResetPath is the route a reset token is submitted to, relative to the base URL
const ResetPath = "/api/users/resetPassword/"

// PasswordResetFlow issues reset tokens by email and exchanges them for a
// new password.
type PasswordResetFlow struct {
	db     *database.DB
	store  *CredentialStore
	auth   *AuthService
	mailer Mailer
	logger *zap.Logger
}

// NewPasswordResetFlow creates a password reset flow
func NewPasswordResetFlow(db *database.DB, store *CredentialStore, auth *AuthService, mailer Mailer, logger *zap.Logger) *PasswordResetFlow {
	return &PasswordResetFlow{
		db:     db,
		store:  store,
		auth:   auth,
		mailer: mailer,
		logger: logger,
	}
}

// Request emails a reset link to the account registered under email. An
// unknown address returns nil without issuing a token so the response does
// not reveal which addresses exist. If delivery fails the token is cleared
// again and ErrDeliveryFailed is returned.
func (f *PasswordResetFlow) Request(ctx context.Context, email, baseURL string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}

	user, err := f.store.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		f.logger.Debug("password reset requested for unknown email")
		return nil
	}

	plaintext, err := f.store.BeginReset(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	resetURL := strings.TrimRight(baseURL, "/") + ResetPath + plaintext
	msg := Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Your password reset token (valid for only %d min)", int(f.store.resetTTL.Minutes())),
		Body: fmt.Sprintf("Forgot your password? Submit a POST request with your password and passwordConfirm to: %s\n"+
			"If you didn't forget your password, please ignore this email!", resetURL),
	}

	if err := f.mailer.Send(ctx, msg); err != nil {
		f.logger.Error("failed to deliver reset email", zap.Int64("user_id", user.ID), zap.Error(err))
		if clearErr := f.store.ClearReset(ctx, user.ID); clearErr != nil {
			f.logger.Error("failed to roll back reset token", zap.Int64("user_id", user.ID), zap.Error(clearErr))
		}
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	f.logger.Info("password reset token sent", zap.Int64("user_id", user.ID))
	return nil
}

// Reset consumes a reset token, sets the new password and returns a fresh
// session. The token is consumed and the password replaced in one
// transaction, so a failed update leaves the token usable.
func (f *PasswordResetFlow) Reset(ctx context.Context, token, password, confirm string) (*Session, error) {
	if err := validation.ValidatePasswordConfirm(password, confirm); err != nil {
		return nil, err
	}
	hash, err := f.store.hashPassword(password)
	if err != nil {
		return nil, err
	}

	var userID int64
	err = f.db.WithTx(ctx, func(ctx context.Context, tx *database.Tx) error {
		store := f.store.WithTx(tx)
		user, err := store.ConsumeReset(ctx, token)
		if err != nil {
			return err
		}
		userID = user.ID
		return store.setPasswordHash(ctx, user.ID, hash)
	})
	if err != nil {
		return nil, err
	}

	user, err := f.store.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	if user == nil {
		return nil, ErrUserGone
	}
	f.logger.Info("password reset completed", zap.Int64("user_id", user.ID))
	return f.auth.IssueSession(user)
}
