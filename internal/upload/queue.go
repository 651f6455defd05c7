package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
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

// Fixed pacing constants for the drain passes. Uploads run at a fixed
// fan-out of three; the retry pass doubles the inter-chunk delay to ride
// out transient storage throttling.
const (
	uploadConcurrency = 3
	mainPassDelay     = 150 * time.Millisecond
	retryPassDelay    = 300 * time.Millisecond
	captionItemDelay  = 200 * time.Millisecond
)

// Progress is the aggregate upload state for one project.
type Progress struct {
	Total     int  `json:"total"`
	Completed int  `json:"completed"`
	Failed    int  `json:"failed"`
	Active    bool `json:"active"`
}

// attempt tracks one upload task through the drain passes. The Photo field
// is populated by the task's own goroutine on success, so no two
// goroutines ever touch the same attempt.
type attempt struct {
	task  domain.UploadTask
	photo *domain.Photo
}

// projectQueue is the per-project pending list plus the drain guard. At
// most one drain loop per project is active at a time; Enqueue appends to
// pending and the active loop picks new items up on its next pass.
type projectQueue struct {
	pending         []domain.UploadTask
	draining        bool
	nextSortOrder   int
	sortInitialized bool
	progress        Progress
}

// Queue accepts file uploads, drains them through the chunked runner, and
// runs a sequential best-effort captioning pass over what succeeded.
type Queue struct {
	logger    *slog.Logger
	photos    store.PhotoStore
	objects   storage.ObjectStore
	captioner generation.Captioner
	emitter   events.EventEmitter

	mu       sync.Mutex
	projects map[uuid.UUID]*projectQueue
}

// NewQueue creates an upload queue. The captioner may be nil, in which
// case the captioning pass is skipped entirely.
func NewQueue(
	logger *slog.Logger,
	photos store.PhotoStore,
	objects storage.ObjectStore,
	captioner generation.Captioner,
	emitter events.EventEmitter,
) (*Queue, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if photos == nil {
		return nil, errors.New("photo store cannot be nil")
	}
	if objects == nil {
		return nil, errors.New("object store cannot be nil")
	}
	if emitter == nil {
		return nil, errors.New("event emitter cannot be nil")
	}

	return &Queue{
		logger:    logger.With(slog.String("component", "upload_queue")),
		photos:    photos,
		objects:   objects,
		captioner: captioner,
		emitter:   emitter,
		projects:  make(map[uuid.UUID]*projectQueue),
	}, nil
}

// Enqueue appends tasks to the project's pending list and starts a drain
// loop if none is active. Each task is assigned a sort order derived from
// the server-confirmed photo count plus an in-batch offset, so overlapping
// enqueues never collide on order.
//
// The drain itself runs detached from ctx; ctx only scopes the initial
// photo count lookup.
func (q *Queue) Enqueue(ctx context.Context, projectID uuid.UUID, tasks []domain.UploadTask) error {
	if len(tasks) == 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	pq := q.projects[projectID]
	if pq == nil {
		pq = &projectQueue{}
		q.projects[projectID] = pq
	}

	if !pq.sortInitialized {
		count, err := q.photos.CountByProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to count existing photos: %w", err)
		}
		pq.nextSortOrder = count
		pq.sortInitialized = true
	}

	for i := range tasks {
		tasks[i].TargetSortOrder = pq.nextSortOrder
		pq.nextSortOrder++
	}

	pq.pending = append(pq.pending, tasks...)

	if !pq.draining {
		// A fresh drain cycle reports its own aggregate, not history.
		pq.progress = Progress{}
	}
	pq.progress.Total += len(tasks)
	pq.progress.Active = true

	if !pq.draining {
		pq.draining = true
		go q.drain(projectID, pq)
	}

	return nil
}

// Progress returns the aggregate upload progress for the project.
func (q *Queue) Progress(projectID uuid.UUID) Progress {
	q.mu.Lock()
	defer q.mu.Unlock()

	pq := q.projects[projectID]
	if pq == nil {
		return Progress{}
	}
	return pq.progress
}

// drain is the single active loop for one project. It repeatedly snapshots
// the pending list, runs the main and retry passes, captions what
// succeeded, and exits only once the pending list is empty.
func (q *Queue) drain(projectID uuid.UUID, pq *projectQueue) {
	ctx := context.Background()
	log := q.logger.With(slog.String("project_id", projectID.String()))

	for {
		q.mu.Lock()
		tasks := pq.pending
		pq.pending = nil
		if len(tasks) == 0 {
			pq.draining = false
			pq.sortInitialized = false
			pq.progress.Active = false
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()

		succeeded, failed := q.runPasses(ctx, log, projectID, tasks)

		q.mu.Lock()
		pq.progress.Completed += len(succeeded)
		pq.progress.Failed += len(failed)
		progress := pq.progress
		q.mu.Unlock()

		q.emitProgress(ctx, projectID, progress)

		if len(failed) > 0 {
			log.Warn("some uploads failed permanently",
				slog.Int("failed", len(failed)),
				slog.Int("completed", len(succeeded)))
		}

		q.captionPass(ctx, log, projectID, succeeded)
	}
}

// runPasses runs the main chunked pass and one retry pass over whatever
// failed, returning the settled attempts partitioned by outcome.
func (q *Queue) runPasses(
	ctx context.Context,
	log *slog.Logger,
	projectID uuid.UUID,
	tasks []domain.UploadTask,
) (succeeded []*attempt, failed []*attempt) {
	attempts := make([]*attempt, len(tasks))
	for i := range tasks {
		attempts[i] = &attempt{task: tasks[i]}
	}

	op := func(ctx context.Context, a *attempt) error {
		return q.uploadOne(ctx, projectID, a)
	}

	main := batch.Run(ctx, attempts, op, batch.Options{
		Concurrency: uploadConcurrency,
		ChunkDelay:  mainPassDelay,
	})
	succeeded = main.Succeeded

	if len(main.Failed) == 0 {
		return succeeded, nil
	}

	retryable := make([]*attempt, 0, len(main.Failed))
	for _, f := range main.Failed {
		log.Warn("upload failed, queuing for retry pass",
			slog.String("filename", f.Item.task.Filename),
			slog.String("error", f.Err.Error()))
		retryable = append(retryable, f.Item)
	}

	retry := batch.Run(ctx, retryable, op, batch.Options{
		Concurrency: uploadConcurrency,
		ChunkDelay:  retryPassDelay,
	})
	succeeded = append(succeeded, retry.Succeeded...)

	for _, f := range retry.Failed {
		log.Error("upload failed permanently",
			slog.String("filename", f.Item.task.Filename),
			slog.String("error", f.Err.Error()))
		failed = append(failed, f.Item)
	}

	return succeeded, failed
}

// uploadOne stores the task's bytes in object storage and creates the
// Photo row. A Photo exists only when both steps succeeded.
func (q *Queue) uploadOne(ctx context.Context, projectID uuid.UUID, a *attempt) error {
	objectName := photoObjectName(projectID, a.task.Filename)

	if _, err := q.objects.Put(ctx, objectName, bytes.NewReader(a.task.Data), int64(len(a.task.Data))); err != nil {
		return fmt.Errorf("failed to store object: %w", err)
	}

	photo, err := domain.NewPhoto(projectID, objectName, a.task.TargetSortOrder)
	if err != nil {
		return err
	}

	if err := q.photos.Create(ctx, photo); err != nil {
		return fmt.Errorf("failed to persist photo: %w", err)
	}

	a.photo = photo
	return nil
}

// captionPass annotates successful uploads one at a time with a small
// inter-item delay. Captioning is best effort: failures are logged and the
// pass moves on.
func (q *Queue) captionPass(ctx context.Context, log *slog.Logger, projectID uuid.UUID, succeeded []*attempt) {
	if q.captioner == nil || len(succeeded) == 0 {
		return
	}

	for i, a := range succeeded {
		if i > 0 {
			time.Sleep(captionItemDelay)
		}

		url, err := q.objects.PresignedURL(ctx, a.photo.StoragePath)
		if err != nil {
			log.Warn("failed to presign photo for captioning",
				slog.String("photo_id", a.photo.ID.String()),
				slog.String("error", err.Error()))
			continue
		}

		caption, err := q.captioner.Caption(ctx, url)
		if err != nil {
			log.Warn("captioning failed",
				slog.String("photo_id", a.photo.ID.String()),
				slog.String("error", err.Error()))
			continue
		}

		if err := q.photos.UpdateCaption(ctx, a.photo.ID, caption); err != nil {
			log.Warn("failed to persist caption",
				slog.String("photo_id", a.photo.ID.String()),
				slog.String("error", err.Error()))
		}
	}
}

func (q *Queue) emitProgress(ctx context.Context, projectID uuid.UUID, progress Progress) {
	event, err := events.NewProgressEvent(events.EventUploadProgress, projectID, events.UploadProgressPayload{
		Completed: progress.Completed,
		Failed:    progress.Failed,
		Total:     progress.Total,
	})
	if err != nil {
		q.logger.Warn("failed to build upload progress event", slog.String("error", err.Error()))
		return
	}
	if err := q.emitter.EmitEvent(ctx, event); err != nil {
		q.logger.Warn("failed to emit upload progress event", slog.String("error", err.Error()))
	}
}

// photoObjectName derives the object storage key for an uploaded photo.
func photoObjectName(projectID uuid.UUID, filename string) string {
	ext := path.Ext(filename)
	return fmt.Sprintf("projects/%s/photos/%s%s", projectID, uuid.New(), ext)
}
