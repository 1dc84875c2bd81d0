package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/taskhub/task-api/internal/core/domain"
)

// Error codes exposed in the envelope. Fixed strings, never derived from
// internal error text.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeConflict           = "CONFLICT"
	CodeAuthFailed         = "AUTH_FAILED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeForbidden          = "FORBIDDEN"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeNotFound           = "NOT_FOUND"
	CodeRateLimited        = "RATE_LIMITED"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeInternal           = "INTERNAL"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

// errorResponse is the canonical envelope for all API errors:
// {"error":{"code":..., "message":..., "details":...}}.
type errorResponse struct {
	Error errorBody `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to fixed status codes and error codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders the uniform JSON envelope on every failure path.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, errorResponse{Error: body})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorBody) {
	// Domain errors → deterministic status and code. Middleware attaches them
	// to echo.HTTPError via SetInternal, so unwrap before the type switch.
	if status, body, ok := resolveDomainError(err); ok {
		return status, body
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorBody{
			Code:    codeForStatus(he.Code),
			Message: fmt.Sprintf("%v", he.Message),
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorBody{
		Code:    CodeInternal,
		Message: "internal server error",
	}
}

func resolveDomainError(err error) (int, errorBody, bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorBody{Code: CodeAuthFailed, Message: "invalid credentials"}, true
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, errorBody{Code: CodeConflict, Message: "email already registered"}, true
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, errorBody{Code: CodeInvalidToken, Message: "invalid token"}, true
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorBody{Code: CodeUnauthenticated, Message: "authentication required"}, true
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorBody{Code: CodeForbidden, Message: "access forbidden"}, true
	case errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusBadRequest, errorBody{Code: CodeValidation, Message: "invalid task status"}, true
	case errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusNotFound, errorBody{Code: CodeNotFound, Message: "task not found"}, true
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, errorBody{Code: CodeNotFound, Message: "user not found"}, true
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, errorBody{Code: CodeRateLimited, Message: "too many login attempts"}, true
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, errorBody{Code: CodeStorageUnavailable, Message: "storage unavailable"}, true
	}
	return 0, errorBody{}, false
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeRateLimited
	default:
		return CodeInternal
	}
}
