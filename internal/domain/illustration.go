package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Illustration
var (
	ErrEmptyIllustrationID          = errors.New("illustration ID cannot be empty")
	ErrEmptyIllustrationPageID      = errors.New("illustration page ID cannot be empty")
	ErrEmptyIllustrationProjectID   = errors.New("illustration project ID cannot be empty")
	ErrEmptyIllustrationStoragePath = errors.New("illustration storage path cannot be empty")
)

// Illustration represents one generated image belonging to exactly one page.
// Multiple illustrations per page are variants; at most one of them is
// selected for display at a time. Selection is enforced by the pipeline, not
// by a database constraint.
type Illustration struct {
	ID          uuid.UUID `json:"id"`
	PageID      uuid.UUID `json:"page_id"`
	ProjectID   uuid.UUID `json:"project_id"`
	StoragePath string    `json:"storage_path"`
	IsSelected  bool      `json:"is_selected"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewIllustration creates a new Illustration for the given page. Returns an
// error if validation fails.
func NewIllustration(pageID, projectID uuid.UUID, storagePath string) (*Illustration, error) {
	illustration := &Illustration{
		ID:          uuid.New(),
		PageID:      pageID,
		ProjectID:   projectID,
		StoragePath: storagePath,
		CreatedAt:   time.Now().UTC(),
	}

	if err := illustration.Validate(); err != nil {
		return nil, err
	}

	return illustration, nil
}

// Validate checks if the Illustration has valid data.
func (i *Illustration) Validate() error {
	if i.ID == uuid.Nil {
		return ErrEmptyIllustrationID
	}

	if i.PageID == uuid.Nil {
		return ErrEmptyIllustrationPageID
	}

	if i.ProjectID == uuid.Nil {
		return ErrEmptyIllustrationProjectID
	}

	if i.StoragePath == "" {
		return ErrEmptyIllustrationStoragePath
	}

	return nil
}
