package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/domain"
)

// variantStagger is the fixed delay between consecutive variant requests.
// Variants run one at a time; there is no fan-out.
const variantStagger = 2500 * time.Millisecond

// Scheduler fires best-effort variant illustration work after the main
// pipeline is done with a project. It runs detached from any request or
// run lifecycle: stopping the pipeline does not stop variant generation,
// and failures are swallowed because every scheduled page already has at
// least one usable illustration.
type Scheduler struct {
	logger   *slog.Logger
	pipeline *Pipeline
	stagger  time.Duration

	wg sync.WaitGroup
}

func newScheduler(logger *slog.Logger, pipeline *Pipeline) *Scheduler {
	return &Scheduler{
		logger:   logger.With(slog.String("component", "variant_scheduler")),
		pipeline: pipeline,
		stagger:  variantStagger,
	}
}

// Schedule fires one staggered variant request per page and returns
// immediately. Pages are re-checked against current persisted state before
// each request so duplicate schedules converge instead of overshooting.
func (s *Scheduler) Schedule(projectID uuid.UUID, pages []*domain.Page) {
	if len(pages) == 0 {
		return
	}

	s.logger.Info("scheduling variant work",
		slog.String("project_id", projectID.String()),
		slog.Int("page_count", len(pages)))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// Deliberately not derived from any caller context.
		ctx := context.Background()

		for _, page := range pages {
			time.Sleep(s.stagger)

			counts, err := s.pipeline.illustrations.CountByPage(ctx, projectID)
			if err != nil {
				s.logger.Debug("variant precheck failed, skipping page",
					slog.String("page_id", page.ID.String()),
					slog.String("error", err.Error()))
				continue
			}
			if counts[page.ID] >= variantTarget {
				continue
			}

			if err := s.pipeline.illustrateOnce(ctx, projectID, page, true); err != nil {
				s.logger.Debug("variant generation failed",
					slog.String("page_id", page.ID.String()),
					slog.String("error", err.Error()))
			}
		}
	}()
}
