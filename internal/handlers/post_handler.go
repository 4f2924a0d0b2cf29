package handlers

import (
	"net/http"
	"strconv"

	"blogapp/internal/apperrors"
	"blogapp/internal/models"
	"blogapp/internal/service"
)

// PostHandler handles post routes
type PostHandler struct {
	postService *service.PostService
	*Responder
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService *service.PostService, responder *Responder) *PostHandler {
	return &PostHandler{
		postService: postService,
		Responder:   responder,
	}
}

type createPostRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// ListPosts returns a page of posts (?page=1&limit=20)
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	posts, err := h.postService.List(r.Context(), page, limit)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, r, http.StatusOK, map[string]any{
		"status":  "success",
		"results": len(posts),
		"data":    posts,
	})
}

// CreatePost publishes a post for the logged in user
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	post, err := h.postService.Create(r.Context(), PrincipalFromContext(r.Context()), service.PostInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, r, http.StatusCreated, map[string]any{
		"status": "success",
		"data":   post,
	})
}

// GetPost returns a single post
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	post, err := h.postService.Get(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, r, http.StatusOK, map[string]any{
		"status": "success",
		"data":   post,
	})
}

// UpdatePost applies a partial update to a post the user wrote
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	var update models.PostUpdate
	if err := decodeJSON(r, &update); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	post, err := h.postService.Update(r.Context(), PrincipalFromContext(r.Context()), id, update)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, r, http.StatusOK, map[string]any{
		"status": "success",
		"data":   post,
	})
}

// DeletePost removes a post
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	if err := h.postService.Delete(r.Context(), PrincipalFromContext(r.Context()), id); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PostHandler) postID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondWithError(w, r, apperrors.BadRequest("Invalid post ID"))
		return 0, false
	}
	return id, true
}
