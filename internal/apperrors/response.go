package apperrors

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the HTTP header for request ID
	RequestIDHeader = "X-Request-ID"

	statusFail  = "fail"
	statusError = "error"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// ErrorResponse is the JSON structure returned to clients
type ErrorResponse struct {
	Status string    `json:"status"`
	Error  ErrorBody `json:"error"`
}

// ErrorBody contains the error details
type ErrorBody struct {
	Kind      Kind           `json:"kind"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Writer renders errors. In production mode server error messages are
// replaced by a generic text and causes are never rendered.
type Writer struct {
	Production bool
}

// WriteError writes an error response to the HTTP response writer
func (wr Writer) WriteError(w http.ResponseWriter, requestID string, err error) {
	appErr := As(err)

	body := ErrorBody{
		Kind:      appErr.Kind,
		Code:      appErr.Code,
		Message:   appErr.Message,
		RequestID: requestID,
		Details:   appErr.Details,
	}

	status := statusFail
	if appErr.IsServerError() {
		status = statusError
		if wr.Production && appErr.Kind == KindInternal {
			body.Message = "Something went wrong"
			body.Details = nil
		}
	}

	if !wr.Production && appErr.Cause != nil {
		details := make(map[string]any, len(body.Details)+1)
		for k, v := range body.Details {
			details[k] = v
		}
		details["cause"] = appErr.Cause.Error()
		body.Details = details
	}

	WriteJSON(w, requestID, appErr.HTTPStatus, ErrorResponse{Status: status, Error: body})
}

// WriteJSON writes a JSON response with the request ID header
func WriteJSON(w http.ResponseWriter, requestID string, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set(RequestIDHeader, requestID)
	}
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// GenerateRequestID generates a new unique request ID
func GenerateRequestID() string {
	return uuid.New().String()
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// RequestIDMiddleware injects a request ID into the context and response headers
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = GenerateRequestID()
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
	})
}
