package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Photo
var (
	ErrEmptyPhotoID          = errors.New("photo ID cannot be empty")
	ErrEmptyPhotoProjectID   = errors.New("photo project ID cannot be empty")
	ErrEmptyPhotoStoragePath = errors.New("photo storage path cannot be empty")
	ErrNegativePhotoOrder    = errors.New("photo sort order cannot be negative")
)

// Photo represents one user-supplied photo that has been uploaded to object
// storage. A Photo row is created only on successful upload; it is immutable
// afterwards except for caption, favorite flag and deletion by the review UI.
type Photo struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	StoragePath string    `json:"storage_path"`
	SortOrder   int       `json:"sort_order"`
	Caption     string    `json:"caption,omitempty"`
	IsFavorite  bool      `json:"is_favorite"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewPhoto creates a new Photo for the given project, storage path and sort
// order. Returns an error if validation fails.
func NewPhoto(projectID uuid.UUID, storagePath string, sortOrder int) (*Photo, error) {
	photo := &Photo{
		ID:          uuid.New(),
		ProjectID:   projectID,
		StoragePath: storagePath,
		SortOrder:   sortOrder,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := photo.Validate(); err != nil {
		return nil, err
	}

	return photo, nil
}

// Validate checks if the Photo has valid data.
func (p *Photo) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyPhotoID
	}

	if p.ProjectID == uuid.Nil {
		return ErrEmptyPhotoProjectID
	}

	if p.StoragePath == "" {
		return ErrEmptyPhotoStoragePath
	}

	if p.SortOrder < 0 {
		return ErrNegativePhotoOrder
	}

	return nil
}

// UploadTask is the ephemeral unit of work handed to the upload queue. It is
// never persisted; a task either becomes a Photo row on success or is
// reported as a permanent per-file failure after the retry pass.
type UploadTask struct {
	// Filename is the original client-side file name, used to derive the
	// object name and content type.
	Filename string

	// Data is the raw file content.
	Data []byte

	// TargetSortOrder is the position the resulting Photo should occupy,
	// assigned at enqueue time so concurrent batches never collide.
	TargetSortOrder int
}
