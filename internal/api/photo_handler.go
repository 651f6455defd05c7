package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/inkpress/storybook-api/internal/api/shared"
	"github.com/inkpress/storybook-api/internal/domain"
	"github.com/inkpress/storybook-api/internal/platform/storage"
	"github.com/inkpress/storybook-api/internal/store"
	"github.com/inkpress/storybook-api/internal/upload"
)

// maxUploadBytes bounds one multipart upload request. Individual photos
// from phone cameras run 5-15 MB; a batch of a couple dozen fits well
// under this.
const maxUploadBytes = 512 << 20

// PhotoHandler handles photo upload and listing requests
type PhotoHandler struct {
	queue   *upload.Queue
	photos  store.PhotoStore
	objects storage.ObjectStore
}

// NewPhotoHandler creates a new PhotoHandler
func NewPhotoHandler(queue *upload.Queue, photos store.PhotoStore, objects storage.ObjectStore) *PhotoHandler {
	return &PhotoHandler{
		queue:   queue,
		photos:  photos,
		objects: objects,
	}
}

// UploadPhotos handles POST /api/projects/{projectID}/photos requests.
// The multipart form may carry any number of files under the "photos"
// field. The request returns 202 immediately; the actual uploads drain in
// the background and are reported through the progress endpoint.
func (h *PhotoHandler) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requireProjectID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "No photos in request")
		return
	}

	tasks := make([]domain.UploadTask, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Unreadable file in request")
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Unreadable file in request")
			return
		}

		tasks = append(tasks, domain.UploadTask{
			Filename: header.Filename,
			Data:     data,
		})
	}

	if err := h.queue.Enqueue(r.Context(), projectID, tasks); err != nil {
		slog.Error("failed to enqueue uploads", "error", err, "project_id", projectID)
		HandleAPIError(w, r, err, "Failed to enqueue uploads")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, uploadProgressToResponse(h.queue.Progress(projectID)))
}

// UploadProgress handles GET /api/projects/{projectID}/photos/progress requests
func (h *PhotoHandler) UploadProgress(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requireProjectID(w, r)
	if !ok {
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, uploadProgressToResponse(h.queue.Progress(projectID)))
}

// ListPhotos handles GET /api/projects/{projectID}/photos requests
func (h *PhotoHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	projectID, ok := requireProjectID(w, r)
	if !ok {
		return
	}

	photos, err := h.photos.FindByProject(r.Context(), projectID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load photos")
		return
	}

	responses := make([]PhotoResponse, 0, len(photos))
	for _, photo := range photos {
		url, err := h.objects.PresignedURL(r.Context(), photo.StoragePath)
		if err != nil {
			slog.Warn("failed to presign photo",
				"error", err, "photo_id", photo.ID)
			url = ""
		}
		responses = append(responses, PhotoResponse{
			ID:         photo.ID,
			SortOrder:  photo.SortOrder,
			Caption:    photo.Caption,
			IsFavorite: photo.IsFavorite,
			URL:        url,
			CreatedAt:  photo.CreatedAt,
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

func uploadProgressToResponse(p upload.Progress) UploadProgressResponse {
	return UploadProgressResponse{
		Total:     p.Total,
		Completed: p.Completed,
		Failed:    p.Failed,
		Active:    p.Active,
	}
}
