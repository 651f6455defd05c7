package api

import (
	"log/slog"
	"net/http"

	"github.com/inkpress/storybook-api/internal/api/shared"
	"github.com/inkpress/storybook-api/internal/pipeline"
	"github.com/inkpress/storybook-api/internal/platform/storage"
	"github.com/inkpress/storybook-api/internal/store"
)

// GenerationHandler exposes the generation pipeline's start, stop, skip
// and retry controls plus the status and page read endpoints.
type GenerationHandler struct {
	manager       *pipeline.Manager
	pages         store.PageStore
	illustrations store.IllustrationStore
	objects       storage.ObjectStore
}

// NewGenerationHandler creates a new GenerationHandler
func NewGenerationHandler(
	manager *pipeline.Manager,
	pages store.PageStore,
	illustrations store.IllustrationStore,
	objects storage.ObjectStore,
) *GenerationHandler {
	return &GenerationHandler{
		manager:       manager,
		pages:         pages,
		illustrations: illustrations,
		objects:       objects,
	}
}

// StartGeneration handles POST /api/projects/{projectID}/generation
// requests. The run executes in the background; the 202 response carries
// its initial status.
func (h *GenerationHandler) StartGeneration(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requireProjectID(w, r)
	if !ok {
		return
	}

	run, err := h.manager.Start(r.Context(), projectID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start generation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, statusToResponse(run.Status()))
}

// GenerationStatus handles GET /api/projects/{projectID}/generation requests
func (h *GenerationHandler) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requireProjectID(w, r)
	if !ok {
		return
	}

	run, found := h.manager.Get(projectID)
	if !found {
		HandleAPIError(w, r, pipeline.ErrNoRun, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, statusToResponse(run.Status()))
}

// StopGeneration handles POST /api/projects/{projectID}/generation/stop
// requests. The in-flight chunk settles; nothing further starts.
func (h *GenerationHandler) StopGeneration(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requireProjectID(w, r)
	if !ok {
		return
	}

	if err := h.manager.Stop(projectID); err != nil {
		HandleAPIError(w, r, err, "Failed to stop generation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, map[string]string{"status": "stopping"})
}

// SkipGeneration handles POST /api/projects/{projectID}/generation/skip
// requests. Waiters are released; generation continues in the background.
func (h *GenerationHandler) SkipGeneration(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requireProjectID(w, r)
	if !ok {
		return
	}

	if err := h.manager.Skip(projectID); err != nil {
		HandleAPIError(w, r, err, "Failed to skip generation wait")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "skipped"})
}

// RetryGeneration handles POST /api/projects/{projectID}/generation/retry
// requests. Only valid after a failed run; the new run recomputes its work
// from persisted state.
func (h *GenerationHandler) RetryGeneration(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requireProjectID(w, r)
	if !ok {
		return
	}

	run, err := h.manager.Retry(r.Context(), projectID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retry generation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, statusToResponse(run.Status()))
}

// ListPages handles GET /api/projects/{projectID}/pages requests. Pages
// are returned in order with all illustration variants attached.
func (h *GenerationHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requireProjectID(w, r)
	if !ok {
		return
	}

	pages, err := h.pages.FindByProject(r.Context(), projectID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load pages")
		return
	}

	responses := make([]PageResponse, 0, len(pages))
	for _, page := range pages {
		illustrations, err := h.illustrations.FindByPage(r.Context(), page.ID)
		if err != nil {
			HandleAPIError(w, r, err, "Failed to load illustrations")
			return
		}

		variants := make([]IllustrationResponse, 0, len(illustrations))
		for _, illustration := range illustrations {
			url, err := h.objects.PresignedURL(r.Context(), illustration.StoragePath)
			if err != nil {
				slog.Warn("failed to presign illustration",
					"error", err, "illustration_id", illustration.ID)
				url = ""
			}
			variants = append(variants, IllustrationResponse{
				ID:         illustration.ID,
				IsSelected: illustration.IsSelected,
				URL:        url,
				CreatedAt:  illustration.CreatedAt,
			})
		}

		responses = append(responses, PageResponse{
			ID:                 page.ID,
			PageNumber:         page.PageNumber,
			PageType:           string(page.PageType),
			TextContent:        page.TextContent,
			IllustrationPrompt: page.IllustrationPrompt,
			SceneDescription:   page.SceneDescription,
			IsApproved:         page.IsApproved,
			Illustrations:      variants,
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// SelectIllustration handles
// PUT /api/projects/{projectID}/pages/{pageID}/illustrations/{illustrationID}/select
// requests, making the given variant the page's selected illustration.
func (h *GenerationHandler) SelectIllustration(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireProjectID(w, r); !ok {
		return
	}

	pageID, err := getPathUUID(r, "pageID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid page ID")
		return
	}
	illustrationID, err := getPathUUID(r, "illustrationID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid illustration ID")
		return
	}

	if err := h.illustrations.SelectExclusive(r.Context(), illustrationID, pageID); err != nil {
		HandleAPIError(w, r, err, "Failed to select illustration")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "selected"})
}

func statusToResponse(s pipeline.Status) GenerationStatusResponse {
	return GenerationStatusResponse{
		Phase:            string(s.Phase),
		TotalPages:       s.TotalPages,
		IllustratedCount: s.IllustratedCount,
		FailedCount:      s.FailedCount,
		Retryable:        s.Retryable,
		Stopped:          s.Stopped,
	}
}
