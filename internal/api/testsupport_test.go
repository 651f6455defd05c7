package api

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/domain"
	"github.com/inkpress/storybook-api/internal/events"
	"github.com/inkpress/storybook-api/internal/pipeline"
	"github.com/inkpress/storybook-api/internal/store"
	"github.com/inkpress/storybook-api/internal/upload"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// In-memory store fakes shared by the handler tests.

type memProjectStore struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*domain.Project
}

func newMemProjectStore() *memProjectStore {
	return &memProjectStore{projects: make(map[uuid.UUID]*domain.Project)}
}

func (s *memProjectStore) Create(ctx context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *project
	s.projects[project.ID] = &copied
	return nil
}

func (s *memProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	copied := *project
	return &copied, nil
}

func (s *memProjectStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ProjectStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return store.ErrProjectNotFound
	}
	project.Status = status
	return nil
}

func (s *memProjectStore) UpdateTranscript(ctx context.Context, id uuid.UUID, transcript string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return store.ErrProjectNotFound
	}
	project.Transcript = transcript
	return nil
}

func (s *memProjectStore) WithTx(tx *sql.Tx) store.ProjectStore { return s }

type memPhotoStore struct {
	mu     sync.Mutex
	photos map[uuid.UUID]*domain.Photo
}

func newMemPhotoStore() *memPhotoStore {
	return &memPhotoStore{photos: make(map[uuid.UUID]*domain.Photo)}
}

func (s *memPhotoStore) Create(ctx context.Context, photo *domain.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *photo
	s.photos[photo.ID] = &copied
	return nil
}

func (s *memPhotoStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	photo, ok := s.photos[id]
	if !ok {
		return nil, store.ErrPhotoNotFound
	}
	copied := *photo
	return &copied, nil
}

func (s *memPhotoStore) FindByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.Photo
	for _, photo := range s.photos {
		if photo.ProjectID == projectID {
			copied := *photo
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SortOrder < result[j].SortOrder })
	return result, nil
}

func (s *memPhotoStore) CountByProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	photos, _ := s.FindByProject(ctx, projectID)
	return len(photos), nil
}

func (s *memPhotoStore) UpdateCaption(ctx context.Context, id uuid.UUID, caption string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	photo, ok := s.photos[id]
	if !ok {
		return store.ErrPhotoNotFound
	}
	photo.Caption = caption
	return nil
}

func (s *memPhotoStore) WithTx(tx *sql.Tx) store.PhotoStore { return s }

type memPageStore struct {
	mu    sync.Mutex
	pages map[uuid.UUID]*domain.Page
}

func newMemPageStore() *memPageStore {
	return &memPageStore{pages: make(map[uuid.UUID]*domain.Page)}
}

func (s *memPageStore) ReplaceAll(ctx context.Context, projectID uuid.UUID, pages []*domain.Page) error {
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

func (s *memPageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[id]
	if !ok {
		return nil, store.ErrPageNotFound
	}
	copied := *page
	return &copied, nil
}

func (s *memPageStore) FindByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Page, error) {
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

func (s *memPageStore) CountByProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	pages, _ := s.FindByProject(ctx, projectID)
	return len(pages), nil
}

func (s *memPageStore) WithTx(tx *sql.Tx) store.PageStore { return s }

type memIllustrationStore struct {
	mu            sync.Mutex
	illustrations map[uuid.UUID]*domain.Illustration
}

func newMemIllustrationStore() *memIllustrationStore {
	return &memIllustrationStore{illustrations: make(map[uuid.UUID]*domain.Illustration)}
}

func (s *memIllustrationStore) Create(ctx context.Context, illustration *domain.Illustration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *illustration
	s.illustrations[illustration.ID] = &copied
	return nil
}

func (s *memIllustrationStore) FindByPage(ctx context.Context, pageID uuid.UUID) ([]*domain.Illustration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.Illustration
	for _, illustration := range s.illustrations {
		if illustration.PageID == pageID {
			copied := *illustration
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *memIllustrationStore) CountByPage(ctx context.Context, projectID uuid.UUID) (map[uuid.UUID]int, error) {
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

func (s *memIllustrationStore) SelectExclusive(ctx context.Context, id, pageID uuid.UUID) error {
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

func (s *memIllustrationStore) WithTx(tx *sql.Tx) store.IllustrationStore { return s }

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

type stubStoryGenerator struct {
	pageCount int
}

func (g *stubStoryGenerator) GeneratePages(ctx context.Context, projectID uuid.UUID) ([]*domain.Page, error) {
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

type stubIllustrator struct{}

func (il *stubIllustrator) Illustrate(ctx context.Context, page *domain.Page) ([]byte, error) {
	return []byte("png-bytes"), nil
}

// handlerEnv wires the full handler stack over in-memory fakes.
type handlerEnv struct {
	projects      *memProjectStore
	photos        *memPhotoStore
	pages         *memPageStore
	illustrations *memIllustrationStore
	objects       *memObjectStore
	queue         *upload.Queue
	manager       *pipeline.Manager
	router        http.Handler
}

func newHandlerEnv(pageCount int) (*handlerEnv, error) {
	env := &handlerEnv{
		projects:      newMemProjectStore(),
		photos:        newMemPhotoStore(),
		pages:         newMemPageStore(),
		illustrations: newMemIllustrationStore(),
		objects:       newMemObjectStore(),
	}

	emitter := events.NewInMemoryEventEmitter(discardLogger())

	queue, err := upload.NewQueue(discardLogger(), env.photos, env.objects, nil, emitter)
	if err != nil {
		return nil, err
	}
	env.queue = queue

	p, err := pipeline.NewPipeline(
		discardLogger(),
		env.projects,
		env.pages,
		env.illustrations,
		env.objects,
		&stubStoryGenerator{pageCount: pageCount},
		&stubIllustrator{},
		emitter,
	)
	if err != nil {
		return nil, err
	}

	manager, err := pipeline.NewManager(discardLogger(), p, env.projects)
	if err != nil {
		return nil, err
	}
	env.manager = manager

	projectHandler := NewProjectHandler(env.projects)
	photoHandler := NewPhotoHandler(env.queue, env.photos, env.objects)
	generationHandler := NewGenerationHandler(env.manager, env.pages, env.illustrations, env.objects)

	r := chi.NewRouter()
	r.Route("/api/projects", func(r chi.Router) {
		r.Post("/", projectHandler.CreateProject)
		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", projectHandler.GetProject)
			r.Put("/transcript", projectHandler.UpdateTranscript)
			r.Post("/photos", photoHandler.UploadPhotos)
			r.Get("/photos", photoHandler.ListPhotos)
			r.Get("/photos/progress", photoHandler.UploadProgress)
			r.Post("/generation", generationHandler.StartGeneration)
			r.Get("/generation", generationHandler.GenerationStatus)
			r.Post("/generation/stop", generationHandler.StopGeneration)
			r.Post("/generation/skip", generationHandler.SkipGeneration)
			r.Post("/generation/retry", generationHandler.RetryGeneration)
			r.Get("/pages", generationHandler.ListPages)
			r.Put("/pages/{pageID}/illustrations/{illustrationID}/select", generationHandler.SelectIllustration)
		})
	})
	env.router = r

	return env, nil
}

func (env *handlerEnv) seedProject(transcript string) (*domain.Project, error) {
	project, err := domain.NewProject("Handler Test Book")
	if err != nil {
		return nil, err
	}
	project.Transcript = transcript
	if err := env.projects.Create(context.Background(), project); err != nil {
		return nil, err
	}
	return project, nil
}
