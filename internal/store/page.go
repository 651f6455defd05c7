package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/domain"
)

// PageStore defines the interface for page data persistence.
type PageStore interface {
	// ReplaceAll atomically deletes every existing page for the project and
	// inserts the given set. Regeneration invalidates all prior pages, so
	// the page set is only ever written as a complete ordered replacement.
	// Illustrations belonging to deleted pages are removed by cascade.
	ReplaceAll(ctx context.Context, projectID uuid.UUID, pages []*domain.Page) error

	// GetByID retrieves a page by its unique ID.
	// Returns ErrPageNotFound if the page does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Page, error)

	// FindByProject retrieves all pages for a project ordered by page number.
	// Returns an empty slice if the project has no pages.
	FindByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Page, error)

	// CountByProject returns the number of pages stored for a project.
	CountByProject(ctx context.Context, projectID uuid.UUID) (int, error)

	// WithTx returns a new PageStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PageStore
}
