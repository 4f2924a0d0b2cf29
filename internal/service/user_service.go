package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"blogapp/internal/database"
	"blogapp/internal/models"
	"blogapp/internal/repository"
	"blogapp/internal/security"
	"blogapp/internal/validation"

	"go.uber.org/zap"
)

// ProfileUpdate carries the fields updateMe may change. Nil fields are left alone.
type ProfileUpdate struct {
	Email       *string
	DisplayName *string
}

// UserService handles account management outside of credentials
type UserService struct {
	db     *database.DB
	store  *CredentialStore
	users  *repository.UserRepository
	posts  *repository.PostRepository
	policy security.Policy
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(db *database.DB, store *CredentialStore, users *repository.UserRepository, posts *repository.PostRepository, policy security.Policy, logger *zap.Logger) *UserService {
	return &UserService{
		db:     db,
		store:  store,
		users:  users,
		posts:  posts,
		policy: policy,
		logger: logger,
	}
}

// UpdateMe changes the principal's email or display name. A display name
// change is copied onto the principal's posts in the same transaction.
func (s *UserService) UpdateMe(ctx context.Context, principal *models.User, update ProfileUpdate) (*models.User, error) {
	if err := s.policy.Authorize(principal, security.ActionUpdateSelf, 0); err != nil {
		return nil, err
	}

	email := principal.Email
	if update.Email != nil {
		if err := validation.ValidateEmail(*update.Email); err != nil {
			return nil, err
		}
		email = validation.NormalizeEmail(*update.Email)
	}
	displayName := principal.DisplayName
	if update.DisplayName != nil {
		if err := validation.ValidateDisplayName(*update.DisplayName); err != nil {
			return nil, err
		}
		displayName = strings.TrimSpace(*update.DisplayName)
	}

	if err := s.store.checkAvailable(ctx, principal.ID, email, displayName); err != nil {
		return nil, err
	}

	err := s.db.WithTx(ctx, func(ctx context.Context, tx *database.Tx) error {
		if err := s.users.WithTx(tx).UpdateProfile(ctx, principal.ID, email, displayName); err != nil {
			return err
		}
		if displayName == principal.DisplayName {
			return nil
		}
		return s.posts.WithTx(tx).RenameAuthor(ctx, principal.ID, displayName)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, s.store.duplicateError(ctx, principal.ID, email)
	}
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// DeleteMe removes the principal's account together with their posts
func (s *UserService) DeleteMe(ctx context.Context, principal *models.User) error {
	if err := s.policy.Authorize(principal, security.ActionDeleteSelf, 0); err != nil {
		return err
	}

	var removed int64
	err := s.db.WithTx(ctx, func(ctx context.Context, tx *database.Tx) error {
		n, err := s.posts.WithTx(tx).DeletePostsByAuthor(ctx, principal.ID)
		if err != nil {
			return err
		}
		removed = n
		return s.users.WithTx(tx).DeleteUser(ctx, principal.ID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", principal.ID, err)
	}

	s.logger.Info("user deleted", zap.Int64("user_id", principal.ID), zap.Int64("posts_removed", removed))
	return nil
}

// SetRole changes the role of the account registered under email
func (s *UserService) SetRole(ctx context.Context, email string, role models.Role) error {
	if !role.Valid() {
		return validation.ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", role)}
	}
	err := s.users.UpdateRole(ctx, validation.NormalizeEmail(email), role)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	s.logger.Info("user role changed", zap.String("role", string(role)))
	return nil
}
