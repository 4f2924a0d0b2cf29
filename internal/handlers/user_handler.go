package handlers

import (
	"net/http"

	"blogapp/internal/apperrors"
	"blogapp/internal/security"
	"blogapp/internal/service"
)

// UserHandler handles the logged in user's own account
type UserHandler struct {
	userService *service.UserService
	cookies     CookieSettings
	*Responder
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService, cookies CookieSettings, responder *Responder) *UserHandler {
	return &UserHandler{
		userService: userService,
		cookies:     cookies,
		Responder:   responder,
	}
}

type updateMeRequest struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"displayName"`

	// Rejected when present
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	NewPassword     string `json:"newPassword"`
}

// UpdateMe changes email or display name
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	if req.Password != "" || req.PasswordConfirm != "" || req.NewPassword != "" {
		h.respondWithError(w, r, apperrors.BadRequest(MsgNotPasswordRoute))
		return
	}

	user, err := h.userService.UpdateMe(r.Context(), PrincipalFromContext(r.Context()), service.ProfileUpdate{
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, r, http.StatusOK, map[string]any{
		"status": "success",
		"data":   sessionData{User: user},
	})
}

// DeleteMe removes the account and its posts and clears the session cookie
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.DeleteMe(r.Context(), PrincipalFromContext(r.Context())); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName, h.cookies.Secure))
	w.WriteHeader(http.StatusNoContent)
}
