package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"blogapp/internal/models"
	"blogapp/internal/security"
	"blogapp/internal/validation"

	"go.uber.org/zap"
)

// Session is the result of a successful authentication
type Session struct {
	Token     string
	User      *models.User
	ExpiresAt time.Time
}

// AuthService handles signup, login and session validation
type AuthService struct {
	store  *CredentialStore
	hasher security.PasswordHasher
	tokens *security.TokenService
	policy security.Policy
	logger *zap.Logger

	// dummyHash is compared against when the email is unknown so a failed
	// login takes as long as a wrong password.
	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new auth service
func NewAuthService(store *CredentialStore, hasher security.PasswordHasher, tokens *security.TokenService, policy security.Policy, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		policy: policy,
		logger: logger,
	}
}

// Signup creates an account and logs it in
func (s *AuthService) Signup(ctx context.Context, input NewUser) (*Session, error) {
	user, err := s.store.CreateUser(ctx, input)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user signed up", zap.Int64("user_id", user.ID))
	return s.IssueSession(user)
}

// Login checks an email and password pair and issues a session
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, validation.ValidationError{Field: "email", Message: "Please provide email and password"}
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		s.hasher.Verify(password, s.unknownUserHash())
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.IssueSession(user)
}

// Authenticate turns a bearer token into the user it was issued to. It
// fails with ErrInvalidSession, ErrUserGone or ErrStaleSession.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	user, err := s.store.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	if user == nil {
		return nil, ErrUserGone
	}
	if user.ChangedPasswordAfter(claims.IssuedAt) {
		return nil, ErrStaleSession
	}
	return user, nil
}

// ChangePassword replaces the principal's password after checking the
// current one and returns a fresh session. Older sessions become stale.
// An empty confirm is treated as matching newPassword.
func (s *AuthService) ChangePassword(ctx context.Context, principal *models.User, current, newPassword, confirm string) (*Session, error) {
	if err := s.policy.Authorize(principal, security.ActionChangePassword, 0); err != nil {
		return nil, err
	}
	if current == "" {
		return nil, validation.ValidationError{Field: "password", Message: "Please provide your current password"}
	}
	if confirm == "" {
		confirm = newPassword
	}
	if err := validation.ValidatePasswordConfirm(newPassword, confirm); err != nil {
		return nil, err
	}

	if !s.hasher.Verify(current, principal.PasswordHash) {
		return nil, ErrWrongPassword
	}

	if err := s.store.UpdatePassword(ctx, principal.ID, newPassword); err != nil {
		return nil, err
	}

	user, err := s.store.FindByID(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	if user == nil {
		return nil, ErrUserGone
	}
	s.logger.Info("password changed", zap.Int64("user_id", user.ID))
	return s.IssueSession(user)
}

// IssueSession mints a token for user
func (s *AuthService) IssueSession(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		User:      user,
		ExpiresAt: time.Now().Add(s.tokens.TTL()),
	}, nil
}

func (s *AuthService) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			s.logger.Warn("failed to prepare dummy password hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
