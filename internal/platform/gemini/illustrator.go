package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inkpress/storybook-api/internal/config"
	"github.com/inkpress/storybook-api/internal/domain"
	"github.com/inkpress/storybook-api/internal/generation"
	"google.golang.org/genai"
)

// Illustrator implements generation.Illustrator using an Imagen model.
// Each call produces a single rendered illustration for one page.
type Illustrator struct {
	logger *slog.Logger
	config config.LLMConfig
	client *genai.Client
}

// NewIllustrator creates a new Illustrator. Returns an error wrapping
// generation.ErrInvalidConfig if the configuration is unusable.
func NewIllustrator(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
) (*Illustrator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.IllustrationModel == "" {
		return nil, fmt.Errorf("%w: illustration model name cannot be empty",
			generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Illustrator{
		logger: logger.With(slog.String("component", "illustrator")),
		config: cfg,
		client: client,
	}, nil
}

// Ensure Illustrator implements generation.Illustrator
var _ generation.Illustrator = (*Illustrator)(nil)

// Illustrate implements generation.Illustrator.Illustrate
func (il *Illustrator) Illustrate(ctx context.Context, page *domain.Page) ([]byte, error) {
	if page == nil {
		return nil, errors.New("page cannot be nil")
	}
	if page.IllustrationPrompt == "" {
		return nil, ErrEmptyPrompt
	}

	il.logger.DebugContext(ctx, "rendering illustration",
		slog.String("page_id", page.ID.String()),
		slog.Int("page_number", page.PageNumber))

	result, err := il.client.Models.GenerateImages(
		ctx,
		il.config.IllustrationModel,
		page.IllustrationPrompt,
		&genai.GenerateImagesConfig{
			NumberOfImages: 1,
		},
	)
	if err != nil {
		return nil, mapAPIError(err)
	}

	if len(result.GeneratedImages) == 0 || result.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("%w: model returned no images", generation.ErrContentBlocked)
	}

	imageBytes := result.GeneratedImages[0].Image.ImageBytes
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("%w: model returned an empty image", generation.ErrInvalidResponse)
	}

	return imageBytes, nil
}
