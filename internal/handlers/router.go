package handlers

import (
	"net/http"

	"blogapp/internal/apperrors"
	"blogapp/internal/models"
)

// Routes bundles the handlers the router mounts
type Routes struct {
	Middleware   *Middleware
	Auth         *AuthHandler
	Users        *UserHandler
	Posts        *PostHandler
	Health       *HealthHandler
	MaxBodyBytes int64
}

// NewRouter builds the HTTP handler for the whole API
func NewRouter(rt Routes) http.Handler {
	mw := rt.Middleware
	anyRole := mw.RestrictTo(models.RoleUser, models.RoleAdmin)

	api := http.NewServeMux()

	// Accounts
	api.HandleFunc("POST /api/users/signup", rt.Auth.Signup)
	api.HandleFunc("POST /api/users/login", rt.Auth.Login)
	api.HandleFunc("POST /api/users/forgetPassword", rt.Auth.ForgotPassword)
	api.HandleFunc("POST /api/users/resetPassword/{token}", rt.Auth.ResetPassword)
	api.HandleFunc("PATCH /api/users/updatePassword", mw.RequireAuth(rt.Auth.UpdatePassword))
	api.HandleFunc("PATCH /api/users/updateMe", mw.RequireAuth(rt.Users.UpdateMe))
	api.HandleFunc("DELETE /api/users/deleteMe", mw.RequireAuth(rt.Users.DeleteMe))

	// Posts
	api.HandleFunc("GET /api/posts", rt.Posts.ListPosts)
	api.HandleFunc("POST /api/posts", mw.RequireAuth(rt.Posts.CreatePost))
	api.HandleFunc("GET /api/posts/{id}", rt.Posts.GetPost)
	api.HandleFunc("PATCH /api/posts/{id}", mw.RequireAuth(anyRole(rt.Posts.UpdatePost)))
	api.HandleFunc("DELETE /api/posts/{id}", mw.RequireAuth(anyRole(rt.Posts.DeletePost)))

	api.HandleFunc("/", mw.NotFound)

	mux := http.NewServeMux()
	mux.Handle("/api/", Chain(api, mw.RateLimit, BodyLimit(rt.MaxBodyBytes)))
	mux.HandleFunc("GET /healthz", rt.Health.Health)
	mux.HandleFunc("/", mw.NotFound)

	return Chain(mux,
		mw.Recoverer,
		apperrors.RequestIDMiddleware,
		mw.Logging,
		SecurityHeaders,
	)
}

// NotFound answers unknown routes
func (rs *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	rs.respondWithError(w, r, apperrors.NotFound("Can't find "+r.URL.Path+" on this server"))
}
