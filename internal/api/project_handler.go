package api

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/inkpress/storybook-api/internal/api/shared"
	"github.com/inkpress/storybook-api/internal/domain"
	"github.com/inkpress/storybook-api/internal/store"
)

// ProjectHandler handles project-related HTTP requests
type ProjectHandler struct {
	projects  store.ProjectStore
	validator *validator.Validate
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(projects store.ProjectStore) *ProjectHandler {
	return &ProjectHandler{
		projects:  projects,
		validator: validator.New(),
	}
}

// CreateProject handles POST /api/projects requests
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	project, err := domain.NewProject(req.Title)
	if err != nil {
		HandleAPIError(w, r, err, "Invalid project data")
		return
	}

	if err := h.projects.Create(r.Context(), project); err != nil {
		slog.Error("failed to create project", "error", err)
		HandleAPIError(w, r, err, "Failed to create project")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, projectToResponse(project))
}

// GetProject handles GET /api/projects/{projectID} requests
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requireProjectID(w, r)
	if !ok {
		return
	}

	project, err := h.projects.GetByID(r.Context(), projectID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load project")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, projectToResponse(project))
}

// UpdateTranscript handles PUT /api/projects/{projectID}/transcript requests
func (h *ProjectHandler) UpdateTranscript(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requireProjectID(w, r)
	if !ok {
		return
	}

	var req UpdateTranscriptRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if err := h.projects.UpdateTranscript(r.Context(), projectID, req.Transcript); err != nil {
		HandleAPIError(w, r, err, "Failed to update transcript")
		return
	}

	// Once a transcript exists the project moves into the interview-done
	// stage unless generation has already advanced it further.
	project, err := h.projects.GetByID(r.Context(), projectID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load project")
		return
	}
	if project.Status == domain.ProjectStatusUpload {
		if err := h.projects.UpdateStatus(r.Context(), projectID, domain.ProjectStatusInterview); err != nil {
			slog.Warn("failed to advance project status", "error", err, "project_id", projectID)
		} else {
			project.Status = domain.ProjectStatusInterview
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, projectToResponse(project))
}

// projectToResponse converts a domain.Project to a ProjectResponse
func projectToResponse(project *domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:         project.ID,
		Title:      project.Title,
		Status:     string(project.Status),
		Transcript: project.Transcript,
		CreatedAt:  project.CreatedAt,
		UpdatedAt:  project.UpdatedAt,
	}
}
