package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/domain"
)

// IllustrationStore defines the interface for illustration data persistence.
type IllustrationStore interface {
	// Create saves a new illustration to the store.
	// It handles domain validation internally.
	// Returns ErrInvalidEntity if the page does not exist.
	Create(ctx context.Context, illustration *domain.Illustration) error

	// FindByPage retrieves all illustrations for a page, oldest first.
	// Returns an empty slice if the page has no illustrations.
	FindByPage(ctx context.Context, pageID uuid.UUID) ([]*domain.Illustration, error)

	// CountByPage returns per-page illustration counts for the whole
	// project. Pages with zero illustrations are absent from the map; the
	// resume inspector combines this with the page list to find them.
	CountByPage(ctx context.Context, projectID uuid.UUID) (map[uuid.UUID]int, error)

	// SelectExclusive marks the given illustration as selected and clears
	// the selected flag on every other illustration of the same page, in a
	// single statement pair. This is how the at-most-one-selected invariant
	// is maintained.
	SelectExclusive(ctx context.Context, id, pageID uuid.UUID) error

	// WithTx returns a new IllustrationStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) IllustrationStore
}
