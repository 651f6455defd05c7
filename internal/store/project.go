package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/domain"
)

// ProjectStore defines the interface for project data persistence.
type ProjectStore interface {
	// Create saves a new project to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, project *domain.Project) error

	// GetByID retrieves a project by its unique ID.
	// Returns ErrProjectNotFound if the project does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)

	// UpdateStatus updates the status of an existing project.
	// Returns ErrProjectNotFound if the project does not exist.
	// Returns validation errors if the status is invalid.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ProjectStatus) error

	// UpdateTranscript replaces the project's interview transcript.
	// Returns ErrProjectNotFound if the project does not exist.
	UpdateTranscript(ctx context.Context, id uuid.UUID, transcript string) error

	// WithTx returns a new ProjectStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) ProjectStore
}
