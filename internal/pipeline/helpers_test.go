package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/domain"
	"github.com/inkpress/storybook-api/internal/events"
	"github.com/inkpress/storybook-api/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProjectStore is an in-memory ProjectStore.
type fakeProjectStore struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*domain.Project
}

func newFakeProjectStore() *fakeProjectStore {
	return &fakeProjectStore{projects: make(map[uuid.UUID]*domain.Project)}
}

func (s *fakeProjectStore) Create(ctx context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *project
	s.projects[project.ID] = &copied
	return nil
}

func (s *fakeProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	copied := *project
	return &copied, nil
}

func (s *fakeProjectStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ProjectStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return store.ErrProjectNotFound
	}
	project.Status = status
	return nil
}

func (s *fakeProjectStore) UpdateTranscript(ctx context.Context, id uuid.UUID, transcript string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return store.ErrProjectNotFound
	}
	project.Transcript = transcript
	return nil
}

func (s *fakeProjectStore) WithTx(tx *sql.Tx) store.ProjectStore { return s }

// fakePageStore is an in-memory PageStore.
type fakePageStore struct {
	mu    sync.Mutex
	pages map[uuid.UUID]*domain.Page
}

func newFakePageStore() *fakePageStore {
	return &fakePageStore{pages: make(map[uuid.UUID]*domain.Page)}
}

func (s *fakePageStore) ReplaceAll(ctx context.Context, projectID uuid.UUID, pages []*domain.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, page := range s.pages {
		if page.ProjectID == projectID {
			delete(s.pages, id)
		}
	}
	for _, page := range pages {
		copied := *page
		s.pages[page.ID] = &copied
	}
	return nil
}

func (s *fakePageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[id]
	if !ok {
		return nil, store.ErrPageNotFound
	}
	copied := *page
	return &copied, nil
}

func (s *fakePageStore) FindByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.Page
	for _, page := range s.pages {
		if page.ProjectID == projectID {
			copied := *page
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PageNumber < result[j].PageNumber })
	return result, nil
}

func (s *fakePageStore) CountByProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	pages, _ := s.FindByProject(ctx, projectID)
	return len(pages), nil
}

func (s *fakePageStore) WithTx(tx *sql.Tx) store.PageStore { return s }

// fakeIllustrationStore is an in-memory IllustrationStore enforcing the
// same exclusive-selection semantics as the real one.
type fakeIllustrationStore struct {
	mu            sync.Mutex
	illustrations map[uuid.UUID]*domain.Illustration
}

func newFakeIllustrationStore() *fakeIllustrationStore {
	return &fakeIllustrationStore{illustrations: make(map[uuid.UUID]*domain.Illustration)}
}

func (s *fakeIllustrationStore) Create(ctx context.Context, illustration *domain.Illustration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *illustration
	s.illustrations[illustration.ID] = &copied
	return nil
}

func (s *fakeIllustrationStore) FindByPage(ctx context.Context, pageID uuid.UUID) ([]*domain.Illustration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.Illustration
	for _, illustration := range s.illustrations {
		if illustration.PageID == pageID {
			copied := *illustration
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *fakeIllustrationStore) CountByPage(ctx context.Context, projectID uuid.UUID) (map[uuid.UUID]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[uuid.UUID]int)
	for _, illustration := range s.illustrations {
		if illustration.ProjectID == projectID {
			counts[illustration.PageID]++
		}
	}
	return counts, nil
}

func (s *fakeIllustrationStore) SelectExclusive(ctx context.Context, id, pageID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.illustrations[id]
	if !ok {
		return store.ErrIllustrationNotFound
	}
	for _, illustration := range s.illustrations {
		if illustration.PageID == pageID {
			illustration.IsSelected = false
		}
	}
	target.IsSelected = true
	return nil
}

func (s *fakeIllustrationStore) WithTx(tx *sql.Tx) store.IllustrationStore { return s }

func (s *fakeIllustrationStore) selectedCount(pageID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, illustration := range s.illustrations {
		if illustration.PageID == pageID && illustration.IsSelected {
			count++
		}
	}
	return count
}

// memObjectStore is an in-memory object store.
type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte)}
}

func (s *memObjectStore) Put(ctx context.Context, objectName string, reader io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectName] = data
	return objectName, nil
}

func (s *memObjectStore) PresignedURL(ctx context.Context, objectName string) (string, error) {
	return "https://storage.test/" + objectName, nil
}

// fakeStoryGenerator returns a configured page set and counts calls.
type fakeStoryGenerator struct {
	mu        sync.Mutex
	calls     int
	pageCount int
	err       error
}

func (g *fakeStoryGenerator) GeneratePages(ctx context.Context, projectID uuid.UUID) ([]*domain.Page, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if g.err != nil {
		return nil, g.err
	}

	pages := make([]*domain.Page, g.pageCount)
	for i := range pages {
		page, err := domain.NewPage(projectID, i+1, domain.PageTypeStory)
		if err != nil {
			return nil, err
		}
		page.TextContent = fmt.Sprintf("page %d", i+1)
		page.IllustrationPrompt = fmt.Sprintf("scene %d", i+1)
		pages[i] = page
	}
	return pages, nil
}

func (g *fakeStoryGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// fakeIllustrator paints deterministic bytes and can be told to fail for
// specific page numbers, permanently or a limited number of times.
type fakeIllustrator struct {
	mu       sync.Mutex
	calls    map[int]int   // calls per page number
	failures map[int]int   // remaining failures per page number; -1 is permanent
	delay    time.Duration // per-call latency
	onCall   func(pageNumber int)
}

func newFakeIllustrator() *fakeIllustrator {
	return &fakeIllustrator{
		calls:    make(map[int]int),
		failures: make(map[int]int),
	}
}

func (il *fakeIllustrator) failAlways(pageNumber int) {
	il.mu.Lock()
	defer il.mu.Unlock()
	il.failures[pageNumber] = -1
}

func (il *fakeIllustrator) Illustrate(ctx context.Context, page *domain.Page) ([]byte, error) {
	il.mu.Lock()
	il.calls[page.PageNumber]++
	remaining := il.failures[page.PageNumber]
	if remaining > 0 {
		il.failures[page.PageNumber]--
	}
	onCall := il.onCall
	delay := il.delay
	il.mu.Unlock()

	if onCall != nil {
		onCall(page.PageNumber)
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if remaining != 0 {
		return nil, errors.New("simulated illustration failure")
	}
	return []byte("png-bytes"), nil
}

func (il *fakeIllustrator) totalCalls() int {
	il.mu.Lock()
	defer il.mu.Unlock()
	total := 0
	for _, n := range il.calls {
		total += n
	}
	return total
}

func (il *fakeIllustrator) callsFor(pageNumber int) int {
	il.mu.Lock()
	defer il.mu.Unlock()
	return il.calls[pageNumber]
}

// testEnv bundles a pipeline with its fakes.
type testEnv struct {
	projects      *fakeProjectStore
	pages         *fakePageStore
	illustrations *fakeIllustrationStore
	objects       *memObjectStore
	story         *fakeStoryGenerator
	illustrator   *fakeIllustrator
	pipeline      *Pipeline
	manager       *Manager
}

func newTestEnv(pageCount int) (*testEnv, error) {
	env := &testEnv{
		projects:      newFakeProjectStore(),
		pages:         newFakePageStore(),
		illustrations: newFakeIllustrationStore(),
		objects:       newMemObjectStore(),
		story:         &fakeStoryGenerator{pageCount: pageCount},
		illustrator:   newFakeIllustrator(),
	}

	emitter := events.NewInMemoryEventEmitter(discardLogger())
	p, err := NewPipeline(
		discardLogger(),
		env.projects,
		env.pages,
		env.illustrations,
		env.objects,
		env.story,
		env.illustrator,
		emitter,
	)
	if err != nil {
		return nil, err
	}
	// Park variant work far in the future so run-level assertions are not
	// perturbed; variant tests shorten this themselves.
	p.variants.stagger = time.Hour

	m, err := NewManager(discardLogger(), p, env.projects)
	if err != nil {
		return nil, err
	}

	env.pipeline = p
	env.manager = m
	return env, nil
}

func (env *testEnv) newProject(transcript string) (*domain.Project, error) {
	project, err := domain.NewProject("Test Book")
	if err != nil {
		return nil, err
	}
	project.Transcript = transcript
	if err := env.projects.Create(context.Background(), project); err != nil {
		return nil, err
	}
	return project, nil
}
