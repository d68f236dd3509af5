package common

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adreel/adreel/internal/creative"
	"github.com/adreel/adreel/internal/scenejob"
)

// ErrBadRequest returns a 400 Bad Request error.
func ErrBadRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// ErrNotFound returns a 404 Not Found error.
func ErrNotFound(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusNotFound, msg)
}

// ErrConflict returns a 409 Conflict error.
func ErrConflict(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusConflict, msg)
}

// ErrInternal returns a 500 Internal Server Error.
func ErrInternal(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusInternalServerError, msg)
}

// ServiceError maps pipeline errors onto HTTP errors: validation failures
// become 400, missing sessions 404, stage-order violations 409, and
// anything else a 500.
func ServiceError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, creative.ErrValidation), errors.Is(err, scenejob.ErrValidation):
		return ErrBadRequest(err.Error())
	case errors.Is(err, creative.ErrNotFound):
		return ErrNotFound("session not found")
	case errors.Is(err, creative.ErrPrecondition):
		return ErrConflict(err.Error())
	default:
		return ErrInternal("internal error")
	}
}
