package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"blogapp/internal/apperrors"
	"blogapp/internal/models"
	"blogapp/internal/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRequireAuthMissingToken(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/posts", "", map[string]string{"title": "t", "content": "c"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeError(t, rec)
	assert.Equal(t, apperrors.CodeUnauthenticated, env.Error.Code)
	assert.Equal(t, MsgNotLoggedIn, env.Error.Message)
}

func TestRequireAuthRejectsNonBearerScheme(t *testing.T) {
	srv := newTestServer(t)
	token, _ := srv.signup(t, "ann@example.com", "ann")

	req := httptest.NewRequest(http.MethodPatch, "/api/users/updateMe", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Basic "+token)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperrors.CodeUnauthenticated, decodeError(t, rec).Error.Code)
}

func TestRequireAuthInvalidToken(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPatch, "/api/users/updateMe", "not.a.token", map[string]string{})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperrors.CodeInvalidSession, decodeError(t, rec).Error.Code)
}

func TestRequireAuthForeignSignature(t *testing.T) {
	srv := newTestServer(t)
	_, id := srv.signup(t, "ann@example.com", "ann")

	other, err := security.NewTokenService(security.TokenConfig{
		Secret: []byte("another-secret-another-secret-32"),
		TTL:    time.Hour,
		Issuer: "blogapp",
	})
	require.NoError(t, err)
	forged, err := other.Issue(id)
	require.NoError(t, err)

	rec := srv.do(t, http.MethodPatch, "/api/users/updateMe", forged, map[string]string{})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperrors.CodeInvalidSession, decodeError(t, rec).Error.Code)
}

func TestRequireAuthUserGone(t *testing.T) {
	srv := newTestServer(t)
	token, _ := srv.signup(t, "ann@example.com", "ann")

	rec := srv.do(t, http.MethodDelete, "/api/users/deleteMe", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodPatch, "/api/users/updateMe", token, map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperrors.CodeUserGone, decodeError(t, rec).Error.Code)
}

func TestRequireAuthStaleSession(t *testing.T) {
	srv := newTestServer(t)
	_, id := srv.signup(t, "ann@example.com", "ann")

	earlier, err := security.NewTokenService(security.TokenConfig{
		Secret: []byte(testSecret),
		TTL:    time.Hour,
		Issuer: "blogapp",
		Now:    func() time.Time { return time.Now().Add(-time.Minute) },
	})
	require.NoError(t, err)
	oldToken, err := earlier.Issue(id)
	require.NoError(t, err)

	require.NoError(t, srv.store.UpdatePassword(context.Background(), id, "brandnewpass1"))

	rec := srv.do(t, http.MethodPatch, "/api/users/updateMe", oldToken, map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperrors.CodeStaleSession, decodeError(t, rec).Error.Code)
}

func TestRestrictTo(t *testing.T) {
	mw := NewMiddleware(nil, nil, NewResponder(false, zap.NewNop()))
	called := false
	next := func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}
	adminOnly := mw.RestrictTo(models.RoleAdmin)(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), &models.User{ID: 1, Role: models.RoleUser}))
	rec := httptest.NewRecorder()
	adminOnly(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), &models.User{ID: 2, Role: models.RoleAdmin}))
	rec = httptest.NewRecorder()
	adminOnly(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestRestrictToWithoutPrincipal(t *testing.T) {
	mw := NewMiddleware(nil, nil, NewResponder(false, zap.NewNop()))
	h := mw.RestrictTo(models.RoleUser, models.RoleAdmin)(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := security.NewRateLimiter(2, time.Minute)
	t.Cleanup(limiter.Stop)
	srv := newTestServer(t, withLimiter(limiter))

	for i := 0; i < 2; i++ {
		rec := srv.do(t, http.MethodGet, "/api/posts", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := srv.do(t, http.MethodGet, "/api/posts", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, apperrors.CodeRateLimited, decodeError(t, rec).Error.Code)

	// Health checks sit outside the API limiter
	rec = srv.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBodyLimit(t *testing.T) {
	srv := newTestServer(t, withBodyLimit(64))

	rec := srv.do(t, http.MethodPost, "/api/users/signup", "", map[string]string{
		"email":           "ann@example.com",
		"displayName":     strings.Repeat("a", 200),
		"password":        "password123",
		"passwordConfirm": "password123",
	})

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, MsgBodyTooLarge, decodeError(t, rec).Error.Message)
}

func TestRecoverer(t *testing.T) {
	mw := NewMiddleware(nil, nil, NewResponder(true, zap.NewNop()))
	h := mw.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeError(t, rec)
	assert.Equal(t, string(apperrors.KindInternal), env.Error.Kind)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestResponseHeaders(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/posts", "", nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get(apperrors.RequestIDHeader))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestPrincipalFromContextEmpty(t *testing.T) {
	assert.Nil(t, PrincipalFromContext(context.Background()))
}
