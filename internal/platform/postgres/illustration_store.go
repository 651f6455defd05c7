package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/domain"
	"github.com/inkpress/storybook-api/internal/platform/logger"
	"github.com/inkpress/storybook-api/internal/store"
)

// PostgresIllustrationStore implements the store.IllustrationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresIllustrationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresIllustrationStore creates a new PostgreSQL implementation of
// the IllustrationStore interface. If logger is nil, a default logger will
// be used.
func NewPostgresIllustrationStore(db store.DBTX, logger *slog.Logger) *PostgresIllustrationStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresIllustrationStore{
		db:     db,
		logger: logger.With(slog.String("component", "illustration_store")),
	}
}

// Ensure PostgresIllustrationStore implements store.IllustrationStore interface
var _ store.IllustrationStore = (*PostgresIllustrationStore)(nil)

// Create implements store.IllustrationStore.Create
// Returns store.ErrInvalidEntity if the page doesn't exist (foreign key violation).
func (s *PostgresIllustrationStore) Create(
	ctx context.Context,
	illustration *domain.Illustration,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := illustration.Validate(); err != nil {
		log.Warn("illustration validation failed during create",
			slog.String("error", err.Error()),
			slog.String("illustration_id", illustration.ID.String()))
		return err
	}

	query := `
		INSERT INTO illustrations (id, page_id, project_id, storage_path, is_selected, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		illustration.ID,
		illustration.PageID,
		illustration.ProjectID,
		illustration.StoragePath,
		illustration.IsSelected,
		illustration.CreatedAt,
	)

	if err != nil {
		log.Error("failed to create illustration",
			slog.String("error", err.Error()),
			slog.String("illustration_id", illustration.ID.String()),
			slog.String("page_id", illustration.PageID.String()))
		return MapError(err)
	}

	log.Info("illustration created successfully",
		slog.String("illustration_id", illustration.ID.String()),
		slog.String("page_id", illustration.PageID.String()),
		slog.Bool("is_selected", illustration.IsSelected))
	return nil
}

// FindByPage implements store.IllustrationStore.FindByPage
func (s *PostgresIllustrationStore) FindByPage(
	ctx context.Context,
	pageID uuid.UUID,
) ([]*domain.Illustration, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, page_id, project_id, storage_path, is_selected, created_at
		FROM illustrations
		WHERE page_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, pageID)
	if err != nil {
		log.Error("failed to query illustrations by page",
			slog.String("error", err.Error()),
			slog.String("page_id", pageID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var illustrations []*domain.Illustration
	for rows.Next() {
		var illustration domain.Illustration
		err := rows.Scan(
			&illustration.ID,
			&illustration.PageID,
			&illustration.ProjectID,
			&illustration.StoragePath,
			&illustration.IsSelected,
			&illustration.CreatedAt,
		)
		if err != nil {
			log.Error("failed to scan illustration row", slog.String("error", err.Error()))
			return nil, err
		}
		illustrations = append(illustrations, &illustration)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	if illustrations == nil {
		illustrations = []*domain.Illustration{}
	}

	return illustrations, nil
}

// CountByPage implements store.IllustrationStore.CountByPage
// Pages with zero illustrations do not appear in the returned map.
func (s *PostgresIllustrationStore) CountByPage(
	ctx context.Context,
	projectID uuid.UUID,
) (map[uuid.UUID]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT page_id, COUNT(*)
		FROM illustrations
		WHERE project_id = $1
		GROUP BY page_id
	`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		log.Error("failed to count illustrations by page",
			slog.String("error", err.Error()),
			slog.String("project_id", projectID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var pageID uuid.UUID
		var count int
		if err := rows.Scan(&pageID, &count); err != nil {
			log.Error("failed to scan count row", slog.String("error", err.Error()))
			return nil, err
		}
		counts[pageID] = count
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return counts, nil
}

// SelectExclusive implements store.IllustrationStore.SelectExclusive
// Clearing siblings first and then setting the target keeps at most one
// selected illustration per page even when invoked repeatedly.
func (s *PostgresIllustrationStore) SelectExclusive(ctx context.Context, id, pageID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	clearQuery := `UPDATE illustrations SET is_selected = FALSE WHERE page_id = $1 AND id <> $2`
	if _, err := s.db.ExecContext(ctx, clearQuery, pageID, id); err != nil {
		log.Error("failed to clear sibling selection",
			slog.String("error", err.Error()),
			slog.String("page_id", pageID.String()))
		return MapError(err)
	}

	selectQuery := `UPDATE illustrations SET is_selected = TRUE WHERE id = $1`
	result, err := s.db.ExecContext(ctx, selectQuery, id)
	if err != nil {
		log.Error("failed to select illustration",
			slog.String("error", err.Error()),
			slog.String("illustration_id", id.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		log.Debug("illustration not found for selection",
			slog.String("illustration_id", id.String()))
		return store.ErrIllustrationNotFound
	}

	log.Debug("illustration selected",
		slog.String("illustration_id", id.String()),
		slog.String("page_id", pageID.String()))
	return nil
}

// WithTx implements store.IllustrationStore.WithTx
func (s *PostgresIllustrationStore) WithTx(tx *sql.Tx) store.IllustrationStore {
	return &PostgresIllustrationStore{
		db:     tx,
		logger: s.logger,
	}
}
