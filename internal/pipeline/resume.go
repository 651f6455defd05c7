package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/domain"
	"github.com/inkpress/storybook-api/internal/store"
)

// Classification is the entry decision computed at pipeline start.
type Classification string

const (
	// ClassificationFresh means no pages exist; the run starts with story
	// generation.
	ClassificationFresh Classification = "fresh"

	// ClassificationIncomplete means pages exist but some still lack
	// their first illustration; the run enters the illustrations phase
	// directly and never re-requests story generation.
	ClassificationIncomplete Classification = "illustrations_incomplete"

	// ClassificationComplete means every page has at least one
	// illustration; the run reports done without any remote call.
	ClassificationComplete Classification = "complete"
)

// ResumeState is the classification plus the work lists derived from
// persisted pages and illustration counts. There is no stored job record;
// this is recomputed from data on every pipeline start.
type ResumeState struct {
	Classification   Classification
	TotalPages       int
	IllustratedCount int

	// InitialWork holds pages with zero illustrations. These block phase
	// completion.
	InitialWork []*domain.Page

	// VariantWork holds pages that have at least one illustration but
	// fewer than the variant target. Never blocks phase completion.
	VariantWork []*domain.Page
}

// Inspector derives a ResumeState from the page and illustration stores.
type Inspector struct {
	logger        *slog.Logger
	pages         store.PageStore
	illustrations store.IllustrationStore
}

// NewInspector creates an Inspector.
func NewInspector(logger *slog.Logger, pages store.PageStore, illustrations store.IllustrationStore) (*Inspector, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if pages == nil {
		return nil, errors.New("page store cannot be nil")
	}
	if illustrations == nil {
		return nil, errors.New("illustration store cannot be nil")
	}

	return &Inspector{
		logger:        logger.With(slog.String("component", "resume_inspector")),
		pages:         pages,
		illustrations: illustrations,
	}, nil
}

// Inspect reads the project's pages and per-page illustration counts and
// classifies the project. The result is never cached; callers invoke this
// on every pipeline start.
func (i *Inspector) Inspect(ctx context.Context, projectID uuid.UUID) (*ResumeState, error) {
	pages, err := i.pages.FindByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}

	if len(pages) == 0 {
		return &ResumeState{Classification: ClassificationFresh}, nil
	}

	counts, err := i.illustrations.CountByPage(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to count illustrations: %w", err)
	}

	state := &ResumeState{TotalPages: len(pages)}
	for _, page := range pages {
		switch n := counts[page.ID]; {
		case n == 0:
			state.InitialWork = append(state.InitialWork, page)
		case n < variantTarget:
			state.IllustratedCount++
			state.VariantWork = append(state.VariantWork, page)
		default:
			state.IllustratedCount++
		}
	}

	if len(state.InitialWork) > 0 {
		state.Classification = ClassificationIncomplete
	} else {
		state.Classification = ClassificationComplete
	}

	i.logger.DebugContext(ctx, "resume state computed",
		slog.String("project_id", projectID.String()),
		slog.String("classification", string(state.Classification)),
		slog.Int("total_pages", state.TotalPages),
		slog.Int("initial_work", len(state.InitialWork)),
		slog.Int("variant_work", len(state.VariantWork)))

	return state, nil
}
