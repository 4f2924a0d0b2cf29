package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"blogapp/internal/database"
	"blogapp/internal/models"
	"blogapp/internal/repository"
	"blogapp/internal/security"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now().UTC().Truncate(time.Millisecond)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// testEnv wires every service against a fresh SQLite database
type testEnv struct {
	db     *database.DB
	clock  *fakeClock
	mailer *fakeMailer
	users  *repository.UserRepository
	posts  *repository.PostRepository
	tokens *security.TokenService
	store  *CredentialStore
	auth   *AuthService
	reset  *PasswordResetFlow
	post   *PostService
	user   *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), zap.NewNop()))

	clock := newFakeClock()
	tokens, err := security.NewTokenService(security.TokenConfig{
		Secret: []byte(testSecret),
		TTL:    time.Hour,
		Issuer: "blogapp",
		Now:    clock.Now,
	})
	require.NoError(t, err)

	logger := zap.NewNop()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	policy := security.DefaultPolicy()
	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)

	store := NewCredentialStore(users, hasher, DefaultResetTokenTTL)
	store.now = clock.Now
	auth := NewAuthService(store, hasher, tokens, policy, logger)
	mailer := &fakeMailer{}

	return &testEnv{
		db:     db,
		clock:  clock,
		mailer: mailer,
		users:  users,
		posts:  posts,
		tokens: tokens,
		store:  store,
		auth:   auth,
		reset:  NewPasswordResetFlow(db, store, auth, mailer, logger),
		post:   NewPostService(posts, policy),
		user:   NewUserService(db, store, users, posts, policy, logger),
	}
}

func (e *testEnv) signup(t *testing.T, email, name, password string) *Session {
	t.Helper()
	session, err := e.auth.Signup(context.Background(), NewUser{
		Email:           email,
		DisplayName:     name,
		Password:        password,
		PasswordConfirm: password,
	})
	require.NoError(t, err)
	return session
}

func (e *testEnv) admin(t *testing.T, email, name string) *models.User {
	t.Helper()
	session := e.signup(t, email, name, "adminpass1")
	require.NoError(t, e.user.SetRole(context.Background(), email, models.RoleAdmin))
	user, err := e.store.FindByID(context.Background(), session.User.ID)
	require.NoError(t, err)
	return user
}
