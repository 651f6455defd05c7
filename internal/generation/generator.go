package generation

import (
	"context"

	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/domain"
)

// StoryGenerator defines the interface for generating the complete page set
// of a book. This interface is a boundary between the application core and
// the external text-generation service: the server side resolves the
// project's transcript, photos and prior appearance data from the project
// ID alone.
type StoryGenerator interface {
	// GeneratePages produces the full ordered page set for the project.
	// Calling it again is safe: the result always fully replaces any prior
	// page set. Errors are mapped onto this package's taxonomy so callers
	// can distinguish retryable from terminal failures with IsRetryable.
	GeneratePages(ctx context.Context, projectID uuid.UUID) ([]*domain.Page, error)
}

// Illustrator defines the interface for generating one illustration image.
type Illustrator interface {
	// Illustrate generates a single image for the page's illustration
	// prompt and returns the raw image bytes. Invoking it again for the
	// same page is expected; each call yields an independent image.
	Illustrate(ctx context.Context, page *domain.Page) ([]byte, error)
}

// Captioner defines the interface for the best-effort photo captioning
// call. Failures never block the caller.
type Captioner interface {
	// Caption produces a short description of the photo at the given URL.
	Caption(ctx context.Context, photoURL string) (string, error)
}
