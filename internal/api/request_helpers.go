package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/api/shared"
)

// ErrInvalidPathID is returned when a path parameter is missing or not a
// valid UUID.
var ErrInvalidPathID = errors.New("invalid path identifier")

// getPathUUID extracts a UUID from the URL path parameters.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, ErrInvalidPathID
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, ErrInvalidPathID
	}

	return id, nil
}

// requireProjectID extracts the project ID path parameter, writing a 400
// response and returning false when it is missing or malformed.
func requireProjectID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	projectID, err := getPathUUID(r, "projectID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project ID")
		return uuid.Nil, false
	}
	return projectID, true
}

// HandleAPIError writes a sanitized error response derived from err. The
// optional fallbackMessage replaces the generic message for errors outside
// the known taxonomy.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if fallbackMessage != "" && message == "An unexpected error occurred" {
		message = fallbackMessage
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
