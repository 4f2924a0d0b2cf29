package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"blogapp/internal/database"
	"blogapp/internal/models"
	"blogapp/internal/repository"
	"blogapp/internal/security"
	"blogapp/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type captureMailer struct {
	mu   sync.Mutex
	sent []service.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg service.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type testServer struct {
	db      *database.DB
	store   *service.CredentialStore
	users   *service.UserService
	mailer  *captureMailer
	handler http.Handler
}

type serverOption func(*Routes)

func withLimiter(l security.Limiter) serverOption {
	return func(rt *Routes) {
		rt.Middleware.limiter = l
	}
}

func withBodyLimit(n int64) serverOption {
	return func(rt *Routes) {
		rt.MaxBodyBytes = n
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), zap.NewNop()))

	tokens, err := security.NewTokenService(security.TokenConfig{
		Secret: []byte(testSecret),
		TTL:    time.Hour,
		Issuer: "blogapp",
	})
	require.NoError(t, err)

	logger := zap.NewNop()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	policy := security.DefaultPolicy()
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)

	store := service.NewCredentialStore(userRepo, hasher, service.DefaultResetTokenTTL)
	auth := service.NewAuthService(store, hasher, tokens, policy, logger)
	mailer := &captureMailer{}
	reset := service.NewPasswordResetFlow(db, store, auth, mailer, logger)
	users := service.NewUserService(db, store, userRepo, postRepo, policy, logger)
	posts := service.NewPostService(postRepo, policy)

	responder := NewResponder(false, logger)
	cookies := CookieSettings{Expiry: time.Hour}

	routes := Routes{
		Middleware:   NewMiddleware(auth, nil, responder),
		Auth:         NewAuthHandler(auth, reset, cookies, "http://blog.test", responder),
		Users:        NewUserHandler(users, cookies, responder),
		Posts:        NewPostHandler(posts, responder),
		Health:       NewHealthHandler(db, nil, responder),
		MaxBodyBytes: 1 << 20,
	}
	for _, opt := range opts {
		opt(&routes)
	}

	return &testServer{
		db:      db,
		store:   store,
		users:   users,
		mailer:  mailer,
		handler: NewRouter(routes),
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// signup registers an account and returns its session token and id
func (s *testServer) signup(t *testing.T, email, name string) (string, int64) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/users/signup", "", map[string]string{
		"email":           email,
		"displayName":     name,
		"password":        "password123",
		"passwordConfirm": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token, resp.Data.User.ID
}

func (s *testServer) promote(t *testing.T, email string) {
	t.Helper()
	require.NoError(t, s.users.SetRole(context.Background(), email, models.RoleAdmin))
}

func (s *testServer) createPost(t *testing.T, token, title string) int64 {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/posts", token, map[string]any{
		"title":   title,
		"content": "Some words about " + title,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data models.Post `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data.ID
}

type errorEnvelope struct {
	Status string `json:"status"`
	Error  struct {
		Kind    string         `json:"kind"`
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}
