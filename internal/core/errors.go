// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrUpstream     = errors.New("upstream service error")
	ErrRateLimited  = errors.New("rate limited")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenRevoked = errors.New("token revoked")
)

// AppError carries the HTTP status and machine-readable code for an error
// that is safe to show to the caller.
type AppError struct {
	Err     error
	Message string
	Status  int
	Code    string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, status int, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Status:  status,
		Code:    code,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		resource+" not found",
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, "UNAUTHORIZED")
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func ConflictError(message string) *AppError {
	return NewAppError(ErrConflict, message, http.StatusConflict, "CONFLICT")
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, "VALIDATION_ERROR")
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		field+" already exists",
		http.StatusConflict,
		"DUPLICATE",
	)
}

func UpstreamError(message string) *AppError {
	return NewAppError(ErrUpstream, message, http.StatusBadGateway, "UPSTREAM_ERROR")
}

func RateLimitedError(retryAfterSecs int) *AppError {
	return NewAppError(
		ErrRateLimited,
		fmt.Sprintf("too many requests, retry after %d seconds", retryAfterSecs),
		http.StatusTooManyRequests,
		"RATE_LIMITED",
	)
}

func TokenExpiredError() *AppError {
	return NewAppError(ErrTokenExpired, "token has expired", http.StatusUnauthorized, "TOKEN_EXPIRED")
}

func TokenInvalidError() *AppError {
	return NewAppError(ErrTokenInvalid, "invalid token", http.StatusUnauthorized, "TOKEN_INVALID")
}

func TokenRevokedError() *AppError {
	return NewAppError(ErrTokenRevoked, "token has been revoked", http.StatusUnauthorized, "TOKEN_REVOKED")
}

// ToAppError converts a wrapped sentinel into the matching AppError. The
// message of the outermost wrap is kept so callers see which operation
// failed. Unknown errors become a generic 500.
func ToAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NewAppError(err, "resource not found", http.StatusNotFound, "NOT_FOUND")
	case errors.Is(err, ErrUnauthorized):
		return NewAppError(err, "authentication required", http.StatusUnauthorized, "UNAUTHORIZED")
	case errors.Is(err, ErrForbidden):
		return NewAppError(err, "access denied", http.StatusForbidden, "FORBIDDEN")
	case errors.Is(err, ErrConflict):
		return NewAppError(err, err.Error(), http.StatusConflict, "CONFLICT")
	case errors.Is(err, ErrInvalidInput):
		return NewAppError(err, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
	case errors.Is(err, ErrDuplicateKey):
		return NewAppError(err, "resource already exists", http.StatusConflict, "DUPLICATE")
	case errors.Is(err, ErrRateLimited):
		return NewAppError(err, "too many requests", http.StatusTooManyRequests, "RATE_LIMITED")
	case errors.Is(err, ErrUpstream):
		return NewAppError(err, "upstream service unavailable", http.StatusBadGateway, "UPSTREAM_ERROR")
	case errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenRevoked):
		return NewAppError(err, "invalid or expired session", http.StatusUnauthorized, "UNAUTHORIZED")
	}

	return NewAppError(err, "internal server error", http.StatusInternalServerError, "INTERNAL_ERROR")
}
