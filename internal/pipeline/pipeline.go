package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/batch"
	"github.com/inkpress/storybook-api/internal/domain"
	"github.com/inkpress/storybook-api/internal/events"
	"github.com/inkpress/storybook-api/internal/generation"
	"github.com/inkpress/storybook-api/internal/platform/storage"
	"github.com/inkpress/storybook-api/internal/store"
)

// Phase is one stage of the generation state machine.
type Phase string

const (
	// PhaseLoading covers resume inspection at run start.
	PhaseLoading Phase = "loading"

	// PhaseStory is the single text-generation call plus page persistence.
	PhaseStory Phase = "story"

	// PhaseIllustrations drives chunked illustration generation over
	// pages that have none yet.
	PhaseIllustrations Phase = "illustrations"

	// PhaseDone is the terminal success state.
	PhaseDone Phase = "done"

	// PhaseFailed is the terminal failure state, reachable from story and
	// illustrations.
	PhaseFailed Phase = "failed"
)

// Fixed fan-out and pacing. Illustrations run three at a time with a short
// inter-chunk pause; each page accumulates up to variantTarget variants.
const (
	illustrationConcurrency = 3
	illustrationChunkDelay  = 50 * time.Millisecond
	variantTarget           = 3
)

// Status is a snapshot of one generation run.
type Status struct {
	Phase            Phase `json:"phase"`
	TotalPages       int   `json:"total_pages"`
	IllustratedCount int   `json:"illustrated_count"`
	FailedCount      int   `json:"failed_count"`

	// Retryable is set when the run failed for a reason worth retrying.
	Retryable bool `json:"retryable,omitempty"`

	// Stopped is set when the run was cancelled between chunks. The
	// project remains resumable; already-produced work is kept.
	Stopped bool `json:"stopped,omitempty"`
}

// Run is the handle for one in-flight or finished generation run. Its
// status is recomputed state, never a persisted job record.
type Run struct {
	projectID uuid.UUID
	cancel    context.CancelFunc

	mu     sync.RWMutex
	status Status

	done     chan struct{}
	skip     chan struct{}
	skipOnce sync.Once
}

func newRun(projectID uuid.UUID, cancel context.CancelFunc) *Run {
	return &Run{
		projectID: projectID,
		cancel:    cancel,
		status:    Status{Phase: PhaseLoading},
		done:      make(chan struct{}),
		skip:      make(chan struct{}),
	}
}

// ProjectID returns the project this run belongs to.
func (r *Run) ProjectID() uuid.UUID { return r.projectID }

// Status returns a snapshot of the run's current state.
func (r *Run) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Done returns a channel closed when the run finishes.
func (r *Run) Done() <-chan struct{} { return r.done }

// Finished reports whether the run has completed, failed or stopped.
func (r *Run) Finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Stop requests cooperative cancellation. The current chunk settles;
// no further chunks start. Already-produced pages and illustrations are
// never discarded.
func (r *Run) Stop() {
	r.cancel()
}

// Skip releases waiters without cancelling: generation keeps running to
// completion in the background even though the caller has moved on.
func (r *Run) Skip() {
	r.skipOnce.Do(func() { close(r.skip) })
}

// Wait blocks until the run finishes, is skipped, or ctx is done, and
// returns the status at that moment.
func (r *Run) Wait(ctx context.Context) Status {
	select {
	case <-r.done:
	case <-r.skip:
	case <-ctx.Done():
	}
	return r.Status()
}

func (r *Run) update(fn func(s *Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.status)
}

// Pipeline executes generation runs. It owns the phase transitions for a
// run; callers interact through the Manager.
type Pipeline struct {
	logger        *slog.Logger
	projects      store.ProjectStore
	pages         store.PageStore
	illustrations store.IllustrationStore
	objects       storage.ObjectStore
	story         generation.StoryGenerator
	illustrator   generation.Illustrator
	emitter       events.EventEmitter
	inspector     *Inspector
	variants      *Scheduler
}

// NewPipeline creates a Pipeline.
func NewPipeline(
	logger *slog.Logger,
	projects store.ProjectStore,
	pages store.PageStore,
	illustrations store.IllustrationStore,
	objects storage.ObjectStore,
	story generation.StoryGenerator,
	illustrator generation.Illustrator,
	emitter events.EventEmitter,
) (*Pipeline, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if projects == nil {
		return nil, errors.New("project store cannot be nil")
	}
	if pages == nil {
		return nil, errors.New("page store cannot be nil")
	}
	if illustrations == nil {
		return nil, errors.New("illustration store cannot be nil")
	}
	if objects == nil {
		return nil, errors.New("object store cannot be nil")
	}
	if story == nil {
		return nil, errors.New("story generator cannot be nil")
	}
	if illustrator == nil {
		return nil, errors.New("illustrator cannot be nil")
	}
	if emitter == nil {
		return nil, errors.New("event emitter cannot be nil")
	}

	inspector, err := NewInspector(logger, pages, illustrations)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		logger:        logger.With(slog.String("component", "generation_pipeline")),
		projects:      projects,
		pages:         pages,
		illustrations: illustrations,
		objects:       objects,
		story:         story,
		illustrator:   illustrator,
		emitter:       emitter,
		inspector:     inspector,
	}
	p.variants = newScheduler(logger, p)
	return p, nil
}

// execute drives one run to a terminal state. It owns run's status; no
// other goroutine writes it while execute is active.
func (p *Pipeline) execute(ctx context.Context, run *Run) {
	defer close(run.done)

	log := p.logger.With(slog.String("project_id", run.projectID.String()))

	p.setPhase(ctx, run, PhaseLoading, "")

	state, err := p.inspector.Inspect(ctx, run.projectID)
	if err != nil {
		log.Error("resume inspection failed", slog.String("error", err.Error()))
		p.fail(ctx, run, true)
		return
	}

	switch state.Classification {
	case ClassificationComplete:
		run.update(func(s *Status) {
			s.TotalPages = state.TotalPages
			s.IllustratedCount = state.IllustratedCount
		})
		p.variants.Schedule(run.projectID, state.VariantWork)
		p.finishDone(ctx, run, log)
		return

	case ClassificationFresh:
		pages, err := p.runStory(ctx, run, log)
		if err != nil {
			p.fail(ctx, run, generation.IsRetryable(err))
			return
		}
		state = &ResumeState{
			Classification: ClassificationIncomplete,
			TotalPages:     len(pages),
			InitialWork:    pages,
		}
	}

	p.runIllustrations(ctx, run, log, state)
}

// runStory invokes text generation once and persists the returned pages as
// a complete replacement set.
func (p *Pipeline) runStory(ctx context.Context, run *Run, log *slog.Logger) ([]*domain.Page, error) {
	p.setPhase(ctx, run, PhaseStory, "")

	pages, err := p.story.GeneratePages(ctx, run.projectID)
	if err != nil {
		log.Error("story generation failed", slog.String("error", err.Error()))
		return nil, err
	}

	if err := p.pages.ReplaceAll(ctx, run.projectID, pages); err != nil {
		log.Error("failed to persist pages", slog.String("error", err.Error()))
		return nil, err
	}

	log.Info("story persisted", slog.Int("page_count", len(pages)))
	return pages, nil
}

// runIllustrations drives the chunked runner over pages needing their
// first illustration, then hands variant work to the background scheduler.
func (p *Pipeline) runIllustrations(ctx context.Context, run *Run, log *slog.Logger, state *ResumeState) {
	run.update(func(s *Status) {
		s.TotalPages = state.TotalPages
		s.IllustratedCount = state.IllustratedCount
	})
	p.setPhase(ctx, run, PhaseIllustrations, "")

	if len(state.InitialWork) == 0 {
		p.variants.Schedule(run.projectID, state.VariantWork)
		p.finishDone(ctx, run, log)
		return
	}

	result := batch.Run(ctx, state.InitialWork, func(ctx context.Context, page *domain.Page) error {
		return p.illustrateOnce(ctx, run.projectID, page, false)
	}, batch.Options{
		Concurrency: illustrationConcurrency,
		ChunkDelay:  illustrationChunkDelay,
		OnChunkDone: func(succeeded, failed, remaining int) {
			run.update(func(s *Status) {
				s.IllustratedCount = state.IllustratedCount + succeeded
				s.FailedCount = failed
			})
			p.emitPageProgress(ctx, run)
		},
	})

	if result.Cancelled {
		log.Info("illustration phase stopped",
			slog.Int("completed", len(result.Succeeded)),
			slog.Int("skipped", len(result.Skipped)))
		run.update(func(s *Status) { s.Stopped = true })
		return
	}

	if len(result.Succeeded) == 0 {
		log.Error("illustration phase produced nothing usable",
			slog.Int("failed", len(result.Failed)))
		p.fail(ctx, run, true)
		return
	}

	if len(result.Failed) > 0 {
		log.Warn("illustration phase completed with failures",
			slog.Int("completed", len(result.Succeeded)),
			slog.Int("failed", len(result.Failed)))
	}

	// Variant work is recomputed from a fresh read so that the scheduler
	// sees the pages just illustrated as well.
	if fresh, err := p.inspector.Inspect(ctx, run.projectID); err == nil {
		p.variants.Schedule(run.projectID, fresh.VariantWork)
	} else {
		log.Warn("skipping variant scheduling", slog.String("error", err.Error()))
	}

	p.finishDone(ctx, run, log)
}

// illustrateOnce generates, stores and persists one illustration for the
// page. Non-variant work always claims selection; variant work claims it
// only when the page has no selected illustration yet.
func (p *Pipeline) illustrateOnce(ctx context.Context, projectID uuid.UUID, page *domain.Page, variant bool) error {
	imageBytes, err := p.illustrator.Illustrate(ctx, page)
	if err != nil {
		return err
	}

	objectName := illustrationObjectName(projectID, page.ID)
	if _, err := p.objects.Put(ctx, objectName, bytes.NewReader(imageBytes), int64(len(imageBytes))); err != nil {
		return fmt.Errorf("failed to store illustration: %w", err)
	}

	illustration, err := domain.NewIllustration(page.ID, projectID, objectName)
	if err != nil {
		return err
	}
	if err := p.illustrations.Create(ctx, illustration); err != nil {
		return fmt.Errorf("failed to persist illustration: %w", err)
	}

	claimSelection := !variant
	if variant {
		siblings, err := p.illustrations.FindByPage(ctx, page.ID)
		if err != nil {
			return fmt.Errorf("failed to check page selection: %w", err)
		}
		claimSelection = true
		for _, sibling := range siblings {
			if sibling.IsSelected {
				claimSelection = false
				break
			}
		}
	}

	if claimSelection {
		if err := p.illustrations.SelectExclusive(ctx, illustration.ID, page.ID); err != nil {
			return fmt.Errorf("failed to select illustration: %w", err)
		}
	}

	return nil
}

// finishDone transitions the run to done and advances the project status
// to review.
func (p *Pipeline) finishDone(ctx context.Context, run *Run, log *slog.Logger) {
	if err := p.projects.UpdateStatus(ctx, run.projectID, domain.ProjectStatusReview); err != nil {
		log.Error("failed to advance project status", slog.String("error", err.Error()))
	}
	p.setPhase(ctx, run, PhaseDone, "")

	status := run.Status()
	log.Info("generation run complete",
		slog.Int("total_pages", status.TotalPages),
		slog.Int("illustrated", status.IllustratedCount),
		slog.Int("failed", status.FailedCount))
}

func (p *Pipeline) fail(ctx context.Context, run *Run, retryable bool) {
	run.update(func(s *Status) { s.Retryable = retryable })
	p.setPhase(ctx, run, PhaseFailed, "")
}

func (p *Pipeline) setPhase(ctx context.Context, run *Run, phase Phase, detail string) {
	run.update(func(s *Status) { s.Phase = phase })

	event, err := events.NewProgressEvent(events.EventPhaseChanged, run.projectID, events.PhaseChangedPayload{
		Phase:  string(phase),
		Detail: detail,
	})
	if err != nil {
		p.logger.Warn("failed to build phase event", slog.String("error", err.Error()))
		return
	}
	if err := p.emitter.EmitEvent(ctx, event); err != nil {
		p.logger.Warn("failed to emit phase event", slog.String("error", err.Error()))
	}
}

func (p *Pipeline) emitPageProgress(ctx context.Context, run *Run) {
	status := run.Status()
	event, err := events.NewProgressEvent(events.EventPageProgress, run.projectID, events.PageProgressPayload{
		Completed: status.IllustratedCount,
		Failed:    status.FailedCount,
		Total:     status.TotalPages,
	})
	if err != nil {
		p.logger.Warn("failed to build page progress event", slog.String("error", err.Error()))
		return
	}
	if err := p.emitter.EmitEvent(ctx, event); err != nil {
		p.logger.Warn("failed to emit page progress event", slog.String("error", err.Error()))
	}
}

// illustrationObjectName derives the object storage key for a new
// illustration.
func illustrationObjectName(projectID, pageID uuid.UUID) string {
	return fmt.Sprintf("projects/%s/illustrations/%s/%s.png", projectID, pageID, uuid.New())
}
