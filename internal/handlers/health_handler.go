package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *database.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports whether the service can reach its backing stores
type HealthHandler struct {
	db      Pinger
	redis   *redis.Client
	timeout time.Duration
	*Responder
}

// NewHealthHandler creates a health handler. redis may be nil.
func NewHealthHandler(db Pinger, redisClient *redis.Client, responder *Responder) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redisClient,
		timeout:   2 * time.Second,
		Responder: responder,
	}
}

type componentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health answers 200 when every component is reachable and 503 otherwise
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	components := map[string]componentHealth{
		"database": check(h.db.PingContext(ctx)),
	}
	if h.redis != nil {
		components["redis"] = check(h.redis.Ping(ctx).Err())
	}

	status, code := "healthy", http.StatusOK
	for _, c := range components {
		if c.Status != "healthy" {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
	}

	h.respondWithJSON(w, r, code, map[string]any{
		"status":     status,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"components": components,
	})
}

func check(err error) componentHealth {
	if err != nil {
		return componentHealth{Status: "unhealthy", Message: err.Error()}
	}
	return componentHealth{Status: "healthy"}
}
