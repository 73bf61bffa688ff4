package engine

import (
	"errors"

	"formhub-backend/internal/access"
	"formhub-backend/internal/action"
	"formhub-backend/internal/store"
)

type AppError struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

// UnauthorizedError is the uniform authorization failure. Deliberately used
// for missing documents too: callers cannot tell "no such form" from "no
// permission", so denied requests leak nothing about what exists.
func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func BadConfigurationError(msg string) *AppError {
	return &AppError{Code: "BAD_CONFIGURATION", Status: 400, Message: msg}
}

func StoreUnavailableError(msg string) *AppError {
	return &AppError{Code: "STORE_ERROR", Status: 500, Message: msg}
}

func ValidationError(msg string) *AppError {
	return &AppError{Code: "VALIDATION_FAILED", Status: 422, Message: msg}
}

// mapError translates core-layer failures into the response taxonomy.
// Only four error kinds cross this boundary: authorization failures, bad
// action configuration, store failures, and action execution errors.
func mapError(err error) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, store.ErrNotFound):
		return UnauthorizedError("Unauthorized")
	case errors.Is(err, action.ErrBadConfig):
		return BadConfigurationError(err.Error())
	case errors.Is(err, access.ErrRoleResolution):
		return StoreUnavailableError("Role lookup failed")
	case errors.Is(err, store.ErrStore):
		return StoreUnavailableError("Store lookup failed")
	default:
		return &AppError{Code: "ACTION_FAILED", Status: 400, Message: err.Error()}
	}
}
