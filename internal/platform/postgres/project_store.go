package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/domain"
	"github.com/inkpress/storybook-api/internal/platform/logger"
	"github.com/inkpress/storybook-api/internal/store"
)

// PostgresProjectStore implements the store.ProjectStore interface
// using a PostgreSQL database as the storage backend.
type PostgresProjectStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProjectStore creates a new PostgreSQL implementation of the
// ProjectStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresProjectStore(db store.DBTX, logger *slog.Logger) *PostgresProjectStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresProjectStore{
		db:     db,
		logger: logger.With(slog.String("component", "project_store")),
	}
}

// Ensure PostgresProjectStore implements store.ProjectStore interface
var _ store.ProjectStore = (*PostgresProjectStore)(nil)

// Create implements store.ProjectStore.Create
func (s *PostgresProjectStore) Create(ctx context.Context, project *domain.Project) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := project.Validate(); err != nil {
		log.Warn("project validation failed during create",
			slog.String("error", err.Error()),
			slog.String("project_id", project.ID.String()))
		return err
	}

	query := `
		INSERT INTO projects (id, title, status, transcript, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		project.ID,
		project.Title,
		project.Status,
		project.Transcript,
		project.CreatedAt,
		project.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create project",
			slog.String("error", err.Error()),
			slog.String("project_id", project.ID.String()))
		return MapError(err)
	}

	log.Info("project created successfully",
		slog.String("project_id", project.ID.String()),
		slog.String("status", string(project.Status)))
	return nil
}

// GetByID implements store.ProjectStore.GetByID
// Returns store.ErrProjectNotFound if the project does not exist.
func (s *PostgresProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, title, status, transcript, created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	var project domain.Project
	var status string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID,
		&project.Title,
		&status,
		&project.Transcript,
		&project.CreatedAt,
		&project.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("project not found", slog.String("project_id", id.String()))
			return nil, store.ErrProjectNotFound
		}
		log.Error("failed to get project by ID",
			slog.String("error", err.Error()),
			slog.String("project_id", id.String()))
		return nil, MapError(err)
	}

	project.Status = domain.ProjectStatus(status)
	return &project, nil
}

// UpdateStatus implements store.ProjectStore.UpdateStatus
// Returns store.ErrProjectNotFound if the project does not exist.
func (s *PostgresProjectStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.ProjectStatus,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate the status before touching the database.
	tempProject := &domain.Project{
		ID:        id,
		Title:     "temp",
		Status:    status,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := tempProject.Validate(); err != nil {
		log.Warn("project validation failed during status update",
			slog.String("error", err.Error()),
			slog.String("project_id", id.String()),
			slog.String("status", string(status)))
		return err
	}

	query := `
		UPDATE projects
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update project status",
			slog.String("error", err.Error()),
			slog.String("project_id", id.String()),
			slog.String("status", string(status)))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("project_id", id.String()))
		return err
	}

	if rowsAffected == 0 {
		log.Debug("project not found for status update",
			slog.String("project_id", id.String()))
		return store.ErrProjectNotFound
	}

	log.Info("project status updated successfully",
		slog.String("project_id", id.String()),
		slog.String("status", string(status)))
	return nil
}

// UpdateTranscript implements store.ProjectStore.UpdateTranscript
// Returns store.ErrProjectNotFound if the project does not exist.
func (s *PostgresProjectStore) UpdateTranscript(
	ctx context.Context,
	id uuid.UUID,
	transcript string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE projects
		SET transcript = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, transcript, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update project transcript",
			slog.String("error", err.Error()),
			slog.String("project_id", id.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return store.ErrProjectNotFound
	}

	log.Debug("project transcript updated",
		slog.String("project_id", id.String()),
		slog.Int("transcript_length", len(transcript)))
	return nil
}

// WithTx implements store.ProjectStore.WithTx
func (s *PostgresProjectStore) WithTx(tx *sql.Tx) store.ProjectStore {
	return &PostgresProjectStore{
		db:     tx,
		logger: s.logger,
	}
}
