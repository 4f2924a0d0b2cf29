package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"blogapp/internal/apperrors"
	"blogapp/internal/security"
	"blogapp/internal/service"
	"blogapp/internal/validation"

	"go.uber.org/zap"
)

// Responder writes JSON bodies and error responses for every handler
type Responder struct {
	errors apperrors.Writer
	logger *zap.Logger
}

// NewResponder creates a responder. Production hides internal error details.
func NewResponder(production bool, logger *zap.Logger) *Responder {
	return &Responder{
		errors: apperrors.Writer{Production: production},
		logger: logger,
	}
}

func (rs *Responder) respondWithJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), status, data)
}

func (rs *Responder) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.As(toAppError(err))
	requestID := apperrors.GetRequestID(r.Context())

	if appErr.IsServerError() {
		rs.logger.Error("request failed",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("code", appErr.Code),
			zap.Error(err),
		)
	}

	rs.errors.WriteError(w, requestID, appErr)
}

// toAppError translates service and validation errors into the API taxonomy.
// Errors it does not know are returned unchanged and end up as InternalError.
func toAppError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var verr validation.ValidationError
	if errors.As(err, &verr) {
		return apperrors.FieldError(verr.Field, verr.Message)
	}

	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return apperrors.DuplicateField("email", "This email is already registered")
	case errors.Is(err, service.ErrDisplayNameTaken):
		return apperrors.DuplicateField("displayName", "This display name is already taken")
	case errors.Is(err, service.ErrTitleTaken):
		return apperrors.DuplicateField("title", "A post with this title already exists")

	case errors.Is(err, service.ErrInvalidCredentials):
		return apperrors.InvalidCredentials()
	case errors.Is(err, service.ErrWrongPassword):
		return apperrors.Unauthenticated(apperrors.CodeInvalidCredentials, MsgWrongPassword)
	case errors.Is(err, service.ErrInvalidSession):
		return apperrors.Unauthenticated(apperrors.CodeInvalidSession, MsgInvalidSession)
	case errors.Is(err, service.ErrUserGone):
		return apperrors.Unauthenticated(apperrors.CodeUserGone, MsgUserGone)
	case errors.Is(err, service.ErrStaleSession):
		return apperrors.Unauthenticated(apperrors.CodeStaleSession, MsgStaleSession)

	case errors.Is(err, security.ErrForbidden):
		return apperrors.Forbidden(MsgForbidden)

	case errors.Is(err, service.ErrInvalidResetToken):
		return apperrors.New(apperrors.KindValidation, apperrors.CodeInvalidResetToken, MsgInvalidResetToken, http.StatusBadRequest)
	case errors.Is(err, service.ErrDeliveryFailed):
		return apperrors.DeliveryError(MsgDeliveryFailed).WithCause(err)

	case errors.Is(err, service.ErrPostNotFound):
		return apperrors.NotFound("No post found with that ID")
	case errors.Is(err, service.ErrUserNotFound):
		return apperrors.NotFound("No user found with that ID")
	}
	return err
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return apperrors.New(apperrors.KindValidation, apperrors.CodeInvalidRequest, MsgBodyTooLarge, http.StatusRequestEntityTooLarge)
	case errors.Is(err, io.EOF):
		return apperrors.BadRequest("Request body is empty")
	default:
		return apperrors.BadRequest(MsgInvalidJSON).WithCause(fmt.Errorf("decode body: %w", err))
	}
}
