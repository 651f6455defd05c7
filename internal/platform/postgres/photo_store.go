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

// PostgresPhotoStore implements the store.PhotoStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPhotoStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPhotoStore creates a new PostgreSQL implementation of the
// PhotoStore interface. If logger is nil, a default logger will be used.
func NewPostgresPhotoStore(db store.DBTX, logger *slog.Logger) *PostgresPhotoStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPhotoStore{
		db:     db,
		logger: logger.With(slog.String("component", "photo_store")),
	}
}

// Ensure PostgresPhotoStore implements store.PhotoStore interface
var _ store.PhotoStore = (*PostgresPhotoStore)(nil)

// Create implements store.PhotoStore.Create
// Returns store.ErrInvalidEntity if the project doesn't exist (foreign key violation).
func (s *PostgresPhotoStore) Create(ctx context.Context, photo *domain.Photo) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := photo.Validate(); err != nil {
		log.Warn("photo validation failed during create",
			slog.String("error", err.Error()),
			slog.String("photo_id", photo.ID.String()))
		return err
	}

	query := `
		INSERT INTO photos (id, project_id, storage_path, sort_order, caption, is_favorite, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		photo.ID,
		photo.ProjectID,
		photo.StoragePath,
		photo.SortOrder,
		photo.Caption,
		photo.IsFavorite,
		photo.CreatedAt,
		photo.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create photo",
			slog.String("error", err.Error()),
			slog.String("photo_id", photo.ID.String()),
			slog.String("project_id", photo.ProjectID.String()))
		return MapError(err)
	}

	log.Info("photo created successfully",
		slog.String("photo_id", photo.ID.String()),
		slog.String("project_id", photo.ProjectID.String()),
		slog.Int("sort_order", photo.SortOrder))
	return nil
}

// GetByID implements store.PhotoStore.GetByID
// Returns store.ErrPhotoNotFound if the photo does not exist.
func (s *PostgresPhotoStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Photo, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, project_id, storage_path, sort_order, caption, is_favorite, created_at, updated_at
		FROM photos
		WHERE id = $1
	`

	var photo domain.Photo
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&photo.ID,
		&photo.ProjectID,
		&photo.StoragePath,
		&photo.SortOrder,
		&photo.Caption,
		&photo.IsFavorite,
		&photo.CreatedAt,
		&photo.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("photo not found", slog.String("photo_id", id.String()))
			return nil, store.ErrPhotoNotFound
		}
		log.Error("failed to get photo by ID",
			slog.String("error", err.Error()),
			slog.String("photo_id", id.String()))
		return nil, MapError(err)
	}

	return &photo, nil
}

// FindByProject implements store.PhotoStore.FindByProject
func (s *PostgresPhotoStore) FindByProject(
	ctx context.Context,
	projectID uuid.UUID,
) ([]*domain.Photo, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, project_id, storage_path, sort_order, caption, is_favorite, created_at, updated_at
		FROM photos
		WHERE project_id = $1
		ORDER BY sort_order ASC
	`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		log.Error("failed to query photos by project",
			slog.String("error", err.Error()),
			slog.String("project_id", projectID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var photos []*domain.Photo
	for rows.Next() {
		var photo domain.Photo
		err := rows.Scan(
			&photo.ID,
			&photo.ProjectID,
			&photo.StoragePath,
			&photo.SortOrder,
			&photo.Caption,
			&photo.IsFavorite,
			&photo.CreatedAt,
			&photo.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan photo row", slog.String("error", err.Error()))
			return nil, err
		}
		photos = append(photos, &photo)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	if photos == nil {
		photos = []*domain.Photo{}
	}

	return photos, nil
}

// CountByProject implements store.PhotoStore.CountByProject
func (s *PostgresPhotoStore) CountByProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT COUNT(*) FROM photos WHERE project_id = $1`

	var count int
	if err := s.db.QueryRowContext(ctx, query, projectID).Scan(&count); err != nil {
		log.Error("failed to count photos by project",
			slog.String("error", err.Error()),
			slog.String("project_id", projectID.String()))
		return 0, MapError(err)
	}

	return count, nil
}

// UpdateCaption implements store.PhotoStore.UpdateCaption
// Returns store.ErrPhotoNotFound if the photo does not exist.
func (s *PostgresPhotoStore) UpdateCaption(ctx context.Context, id uuid.UUID, caption string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE photos
		SET caption = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, caption, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update photo caption",
			slog.String("error", err.Error()),
			slog.String("photo_id", id.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("photo_id", id.String()))
		return err
	}

	if rowsAffected == 0 {
		log.Debug("photo not found for caption update",
			slog.String("photo_id", id.String()))
		return store.ErrPhotoNotFound
	}

	log.Debug("photo caption updated",
		slog.String("photo_id", id.String()))
	return nil
}

// WithTx implements store.PhotoStore.WithTx
func (s *PostgresPhotoStore) WithTx(tx *sql.Tx) store.PhotoStore {
	return &PostgresPhotoStore{
		db:     tx,
		logger: s.logger,
	}
}
