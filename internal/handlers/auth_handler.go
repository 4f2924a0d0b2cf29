package handlers

import (
	"net/http"
	"time"

	"blogapp/internal/models"
	"blogapp/internal/security"
	"blogapp/internal/service"
)

// CookieSettings controls the session cookie mirrored next to the token
type CookieSettings struct {
	Expiry time.Duration
	// Secure forces the Secure flag even on plain HTTP requests
	Secure bool
}

// AuthHandler handles signup, login and password routes
type AuthHandler struct {
	authService *service.AuthService
	resetFlow   *service.PasswordResetFlow
	cookies     CookieSettings
	baseURL     string
	*Responder
}

// NewAuthHandler creates a new auth handler. When baseURL is empty reset
// links point at the host the request came in on.
func NewAuthHandler(authService *service.AuthService, resetFlow *service.PasswordResetFlow, cookies CookieSettings, baseURL string, responder *Responder) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		resetFlow:   resetFlow,
		cookies:     cookies,
		baseURL:     baseURL,
		Responder:   responder,
	}
}

type sessionData struct {
	User *models.User `json:"user"`
}

type sessionResponse struct {
	Status string      `json:"status"`
	Token  string      `json:"token"`
	Data   sessionData `json:"data"`
}

type signupRequest struct {
	Email           string `json:"email"`
	DisplayName     string `json:"displayName"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type updatePasswordRequest struct {
	Password        string `json:"password"`
	NewPassword     string `json:"newPassword"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// Signup creates an account. Roles in the body are ignored.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	session, err := h.authService.Signup(r.Context(), service.NewUser{
		Email:           req.Email,
		DisplayName:     req.DisplayName,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.sendSession(w, r, http.StatusCreated, session)
}

// Login exchanges an email and password for a session
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.sendSession(w, r, http.StatusOK, session)
}

// ForgotPassword emails a reset link. The answer is the same whether or not
// the address belongs to an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	if err := h.resetFlow.Request(r.Context(), req.Email, h.resetBaseURL(r)); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, r, http.StatusOK, map[string]string{
		"status":  "success",
		"message": MsgResetRequested,
	})
}

// ResetPassword sets a new password using the token from the reset email
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	session, err := h.resetFlow.Reset(r.Context(), r.PathValue("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.sendSession(w, r, http.StatusOK, session)
}

// UpdatePassword changes the logged in user's password
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	principal := PrincipalFromContext(r.Context())
	session, err := h.authService.ChangePassword(r.Context(), principal, req.Password, req.NewPassword, req.PasswordConfirm)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.sendSession(w, r, http.StatusOK, session)
}

func (h *AuthHandler) sendSession(w http.ResponseWriter, r *http.Request, status int, session *service.Session) {
	cookie := security.CreateSessionCookie(r, SessionCookieName, session.Token, time.Now().Add(h.cookies.Expiry), h.cookies.Secure)
	http.SetCookie(w, cookie)

	h.respondWithJSON(w, r, status, sessionResponse{
		Status: "success",
		Token:  session.Token,
		Data:   sessionData{User: session.User},
	})
}

func (h *AuthHandler) resetBaseURL(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if security.IsSecureRequest(r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

