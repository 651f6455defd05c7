package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/domain"
)

// PhotoStore defines the interface for photo data persistence.
type PhotoStore interface {
	// Create saves a new photo to the store.
	// It handles domain validation internally.
	// Returns ErrInvalidEntity if the project does not exist.
	Create(ctx context.Context, photo *domain.Photo) error

	// GetByID retrieves a photo by its unique ID.
	// Returns ErrPhotoNotFound if the photo does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Photo, error)

	// FindByProject retrieves all photos for a project ordered by sort order.
	// Returns an empty slice if the project has no photos.
	FindByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Photo, error)

	// CountByProject returns the number of photos stored for a project.
	// The upload queue uses this server-confirmed count as the base for new
	// sort orders.
	CountByProject(ctx context.Context, projectID uuid.UUID) (int, error)

	// UpdateCaption sets the caption of an existing photo.
	// Returns ErrPhotoNotFound if the photo does not exist.
	UpdateCaption(ctx context.Context, id uuid.UUID, caption string) error

	// WithTx returns a new PhotoStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PhotoStore
}
