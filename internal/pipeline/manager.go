package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/domain"
	"github.com/inkpress/storybook-api/internal/store"
)

// Control errors returned by the Manager.
var (
	// ErrRunActive is returned when a run is already active for the project.
	ErrRunActive = errors.New("generation run already active for project")

	// ErrNoRun is returned when no run exists for the project.
	ErrNoRun = errors.New("no generation run for project")

	// ErrNotFailed is returned when retry is requested for a run that is
	// not in the failed phase.
	ErrNotFailed = errors.New("generation run is not in the failed phase")
)

// Manager enforces the single-flight rule: at most one generation run per
// project at any instant. The guard is in-memory only; two server
// instances driving the same project is an accepted limitation of the
// deployment model, not something this guard defends against.
type Manager struct {
	logger   *slog.Logger
	pipeline *Pipeline
	projects store.ProjectStore

	mu   sync.Mutex
	runs map[uuid.UUID]*Run
}

// NewManager creates a Manager.
func NewManager(logger *slog.Logger, pipeline *Pipeline, projects store.ProjectStore) (*Manager, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if pipeline == nil {
		return nil, errors.New("pipeline cannot be nil")
	}
	if projects == nil {
		return nil, errors.New("project store cannot be nil")
	}

	return &Manager{
		logger:   logger.With(slog.String("component", "pipeline_manager")),
		pipeline: pipeline,
		projects: projects,
		runs:     make(map[uuid.UUID]*Run),
	}, nil
}

// Start begins a generation run for the project. The run executes on its
// own context, detached from ctx, so the caller can disconnect without
// cancelling it. Returns ErrRunActive when a run is already in flight.
func (m *Manager) Start(ctx context.Context, projectID uuid.UUID) (*Run, error) {
	if _, err := m.projects.GetByID(ctx, projectID); err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	m.mu.Lock()
	if existing, ok := m.runs[projectID]; ok && !existing.Finished() {
		m.mu.Unlock()
		return nil, ErrRunActive
	}

	runCtx, cancel := context.WithCancel(context.Background())
	run := newRun(projectID, cancel)
	m.runs[projectID] = run
	m.mu.Unlock()

	if err := m.projects.UpdateStatus(ctx, projectID, domain.ProjectStatusGenerating); err != nil {
		m.logger.Warn("failed to mark project generating",
			slog.String("project_id", projectID.String()),
			slog.String("error", err.Error()))
	}

	m.logger.Info("starting generation run", slog.String("project_id", projectID.String()))
	go m.pipeline.execute(runCtx, run)

	return run, nil
}

// Get returns the most recent run for the project, if any.
func (m *Manager) Get(projectID uuid.UUID) (*Run, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[projectID]
	return run, ok
}

// Stop requests cooperative cancellation of the project's active run.
func (m *Manager) Stop(projectID uuid.UUID) error {
	run, ok := m.Get(projectID)
	if !ok || run.Finished() {
		return ErrNoRun
	}
	run.Stop()
	return nil
}

// Skip releases waiters of the project's active run without stopping it.
func (m *Manager) Skip(projectID uuid.UUID) error {
	run, ok := m.Get(projectID)
	if !ok || run.Finished() {
		return ErrNoRun
	}
	run.Skip()
	return nil
}

// Retry restarts generation after a failed run. The new run recomputes its
// work from current persisted state rather than from a remembered failure
// list, so retry is safe to call repeatedly.
func (m *Manager) Retry(ctx context.Context, projectID uuid.UUID) (*Run, error) {
	run, ok := m.Get(projectID)
	if !ok {
		return nil, ErrNoRun
	}
	if !run.Finished() {
		return nil, ErrRunActive
	}
	if run.Status().Phase != PhaseFailed {
		return nil, ErrNotFailed
	}

	return m.Start(ctx, projectID)
}

// ConsumeChanges applies change notifications from the persistence
// substrate until ctx is done. Notifications are at-least-once and
// possibly duplicated, so every update is an idempotent recomputation
// from a fresh read, never incremental trust of the payload.
func (m *Manager) ConsumeChanges(ctx context.Context, listener store.ChangeListener) {
	for {
		select {
		case <-ctx.Done():
			return
		case notification, ok := <-listener.Notifications():
			if !ok {
				return
			}
			m.handleChange(ctx, notification)
		}
	}
}

func (m *Manager) handleChange(ctx context.Context, n store.ChangeNotification) {
	if n.Table != "pages" && n.Table != "illustrations" {
		return
	}

	run, ok := m.Get(n.ProjectID)
	if !ok || run.Finished() {
		return
	}

	state, err := m.pipeline.inspector.Inspect(ctx, n.ProjectID)
	if err != nil {
		m.logger.Debug("change-driven recompute failed",
			slog.String("project_id", n.ProjectID.String()),
			slog.String("error", err.Error()))
		return
	}

	run.update(func(s *Status) {
		s.TotalPages = state.TotalPages
		s.IllustratedCount = state.IllustratedCount
	})
}
