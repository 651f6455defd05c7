package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/domain"
	"github.com/inkpress/storybook-api/internal/platform/logger"
	"github.com/inkpress/storybook-api/internal/store"
)

// PostgresPageStore implements the store.PageStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPageStore creates a new PostgreSQL implementation of the
// PageStore interface. If logger is nil, a default logger will be used.
func NewPostgresPageStore(db store.DBTX, logger *slog.Logger) *PostgresPageStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPageStore{
		db:     db,
		logger: logger.With(slog.String("component", "page_store")),
	}
}

// Ensure PostgresPageStore implements store.PageStore interface
var _ store.PageStore = (*PostgresPageStore)(nil)

// ReplaceAll implements store.PageStore.ReplaceAll
// When the store is backed by a plain connection, the delete and the
// inserts run inside a single transaction so a failure mid-insert leaves
// the prior page set untouched. A store already scoped to a transaction
// via WithTx runs the statements on that transaction directly.
func (s *PostgresPageStore) ReplaceAll(
	ctx context.Context,
	projectID uuid.UUID,
	pages []*domain.Page,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, page := range pages {
		if err := page.Validate(); err != nil {
			log.Warn("page validation failed during replace",
				slog.String("error", err.Error()),
				slog.String("page_id", page.ID.String()))
			return err
		}
		if page.ProjectID != projectID {
			return fmt.Errorf("%w: page %s belongs to project %s, not %s",
				store.ErrInvalidEntity, page.ID, page.ProjectID, projectID)
		}
	}

	if db, ok := s.db.(*sql.DB); ok {
		return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			return s.replaceAllOn(ctx, tx, log, projectID, pages)
		})
	}
	return s.replaceAllOn(ctx, s.db, log, projectID, pages)
}

// replaceAllOn runs the delete-then-insert sequence on the given DBTX.
func (s *PostgresPageStore) replaceAllOn(
	ctx context.Context,
	db store.DBTX,
	log *slog.Logger,
	projectID uuid.UUID,
	pages []*domain.Page,
) error {
	// Regeneration invalidates all prior pages; illustrations cascade.
	deleteQuery := `DELETE FROM pages WHERE project_id = $1`
	if _, err := db.ExecContext(ctx, deleteQuery, projectID); err != nil {
		log.Error("failed to delete existing pages",
			slog.String("error", err.Error()),
			slog.String("project_id", projectID.String()))
		return MapError(err)
	}

	insertQuery := `
		INSERT INTO pages (id, project_id, page_number, page_type, text_content,
			illustration_prompt, scene_description, is_approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, page := range pages {
		_, err := db.ExecContext(
			ctx,
			insertQuery,
			page.ID,
			page.ProjectID,
			page.PageNumber,
			page.PageType,
			page.TextContent,
			page.IllustrationPrompt,
			page.SceneDescription,
			page.IsApproved,
			page.CreatedAt,
			page.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to insert page",
				slog.String("error", err.Error()),
				slog.String("page_id", page.ID.String()),
				slog.Int("page_number", page.PageNumber))
			return MapError(err)
		}
	}

	log.Info("page set replaced",
		slog.String("project_id", projectID.String()),
		slog.Int("page_count", len(pages)))
	return nil
}

// GetByID implements store.PageStore.GetByID
// Returns store.ErrPageNotFound if the page does not exist.
func (s *PostgresPageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Page, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, project_id, page_number, page_type, text_content,
			illustration_prompt, scene_description, is_approved, created_at, updated_at
		FROM pages
		WHERE id = $1
	`

	var page domain.Page
	var pageType string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&page.ID,
		&page.ProjectID,
		&page.PageNumber,
		&pageType,
		&page.TextContent,
		&page.IllustrationPrompt,
		&page.SceneDescription,
		&page.IsApproved,
		&page.CreatedAt,
		&page.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("page not found", slog.String("page_id", id.String()))
			return nil, store.ErrPageNotFound
		}
		log.Error("failed to get page by ID",
			slog.String("error", err.Error()),
			slog.String("page_id", id.String()))
		return nil, MapError(err)
	}

	page.PageType = domain.PageType(pageType)
	return &page, nil
}

// FindByProject implements store.PageStore.FindByProject
func (s *PostgresPageStore) FindByProject(
	ctx context.Context,
	projectID uuid.UUID,
) ([]*domain.Page, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, project_id, page_number, page_type, text_content,
			illustration_prompt, scene_description, is_approved, created_at, updated_at
		FROM pages
		WHERE project_id = $1
		ORDER BY page_number ASC
	`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		log.Error("failed to query pages by project",
			slog.String("error", err.Error()),
			slog.String("project_id", projectID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var pages []*domain.Page
	for rows.Next() {
		var page domain.Page
		var pageType string

		err := rows.Scan(
			&page.ID,
			&page.ProjectID,
			&page.PageNumber,
			&pageType,
			&page.TextContent,
			&page.IllustrationPrompt,
			&page.SceneDescription,
			&page.IsApproved,
			&page.CreatedAt,
			&page.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan page row", slog.String("error", err.Error()))
			return nil, err
		}

		page.PageType = domain.PageType(pageType)
		pages = append(pages, &page)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	if pages == nil {
		pages = []*domain.Page{}
	}

	return pages, nil
}

// CountByProject implements store.PageStore.CountByProject
func (s *PostgresPageStore) CountByProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT COUNT(*) FROM pages WHERE project_id = $1`

	var count int
	if err := s.db.QueryRowContext(ctx, query, projectID).Scan(&count); err != nil {
		log.Error("failed to count pages by project",
			slog.String("error", err.Error()),
			slog.String("project_id", projectID.String()))
		return 0, MapError(err)
	}

	return count, nil
}

// WithTx implements store.PageStore.WithTx
func (s *PostgresPageStore) WithTx(tx *sql.Tx) store.PageStore {
	return &PostgresPageStore{
		db:     tx,
		logger: s.logger,
	}
}
