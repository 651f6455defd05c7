package api

import (
	"errors"
	"net/http"

	"github.com/inkpress/storybook-api/internal/generation"
	"github.com/inkpress/storybook-api/internal/pipeline"
	"github.com/inkpress/storybook-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, store.ErrProjectNotFound),
		errors.Is(err, store.ErrPhotoNotFound),
		errors.Is(err, store.ErrPageNotFound),
		errors.Is(err, store.ErrIllustrationNotFound),
		errors.Is(err, pipeline.ErrNoRun):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, pipeline.ErrRunActive),
		errors.Is(err, pipeline.ErrNotFailed):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Upstream throttling
	case errors.Is(err, generation.ErrRateLimited):
		return http.StatusTooManyRequests

	case errors.Is(err, generation.ErrQuotaExhausted):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, store.ErrProjectNotFound):
		return "Project not found"

	case errors.Is(err, store.ErrPhotoNotFound):
		return "Photo not found"

	case errors.Is(err, store.ErrPageNotFound):
		return "Page not found"

	case errors.Is(err, store.ErrIllustrationNotFound):
		return "Illustration not found"

	case errors.Is(err, pipeline.ErrNoRun):
		return "No generation run for this project"

	case errors.Is(err, pipeline.ErrRunActive):
		return "Generation is already running for this project"

	case errors.Is(err, pipeline.ErrNotFailed):
		return "Generation can only be retried after a failure"

	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, generation.ErrRateLimited):
		return "Generation backend is rate limiting requests, try again shortly"

	case errors.Is(err, generation.ErrQuotaExhausted):
		return "Generation quota is exhausted"

	default:
		return "An unexpected error occurred"
	}
}
