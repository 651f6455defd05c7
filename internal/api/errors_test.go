package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/inkpress/storybook-api/internal/generation"
	"github.com/inkpress/storybook-api/internal/pipeline"
	"github.com/inkpress/storybook-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{
			name:           "nil error",
			err:            nil,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "project not found",
			err:            store.ErrProjectNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "wrapped project not found",
			err:            fmt.Errorf("loading project: %w", store.ErrProjectNotFound),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "photo not found",
			err:            store.ErrPhotoNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "page not found",
			err:            store.ErrPageNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "illustration not found",
			err:            store.ErrIllustrationNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "no generation run",
			err:            pipeline.ErrNoRun,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "run already active",
			err:            pipeline.ErrRunActive,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "retry of a non-failed run",
			err:            pipeline.ErrNotFailed,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "duplicate entity",
			err:            store.ErrDuplicate,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "invalid entity",
			err:            store.ErrInvalidEntity,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "upstream rate limit",
			err:            generation.ErrRateLimited,
			expectedStatus: http.StatusTooManyRequests,
		},
		{
			name:           "upstream quota exhausted",
			err:            generation.ErrQuotaExhausted,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "unknown error",
			err:            errors.New("something broke"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expectedStatus, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		err             error
		expectedMessage string
	}{
		{
			name:            "nil error",
			err:             nil,
			expectedMessage: "An unexpected error occurred",
		},
		{
			name:            "project not found",
			err:             store.ErrProjectNotFound,
			expectedMessage: "Project not found",
		},
		{
			name:            "wrapped run active",
			err:             fmt.Errorf("starting run: %w", pipeline.ErrRunActive),
			expectedMessage: "Generation is already running for this project",
		},
		{
			name:            "retry of a non-failed run",
			err:             pipeline.ErrNotFailed,
			expectedMessage: "Generation can only be retried after a failure",
		},
		{
			name:            "rate limited",
			err:             generation.ErrRateLimited,
			expectedMessage: "Generation backend is rate limiting requests, try again shortly",
		},
		{
			name:            "unknown error hides internals",
			err:             errors.New("pq: connection refused host=10.0.0.3"),
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			message := GetSafeErrorMessage(tt.err)
			assert.Equal(t, tt.expectedMessage, message)
			assert.NotContains(t, message, "10.0.0.3")
		})
	}
}
