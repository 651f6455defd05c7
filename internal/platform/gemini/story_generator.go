package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/inkpress/storybook-api/internal/config"
	"github.com/inkpress/storybook-api/internal/domain"
	"github.com/inkpress/storybook-api/internal/generation"
	"github.com/inkpress/storybook-api/internal/store"
	"google.golang.org/genai"
)

// storyPromptTemplate is the prompt used to turn an interview transcript
// and photo captions into a complete page set. The model is instructed to
// answer with JSON matching ResponseSchema.
const storyPromptTemplate = `You are writing a warm, personal illustrated book titled "{{.Title}}".

It is based on this interview transcript:

{{.Transcript}}
{{if .PhotoCaptions}}
The reader supplied photos with these descriptions:
{{range .PhotoCaptions}}- {{.}}
{{end}}{{end}}
Produce the complete book as JSON with this shape:
{"pages":[{"pageNumber":1,"pageType":"cover","textContent":"...","illustrationPrompt":"...","sceneDescription":"..."}]}

Rules:
- pageNumber starts at 1 and increases without gaps.
- pageType is one of: cover, dedication, story, closing, back_cover, gallery, gallery_grid.
- The first page is the cover and the last page is the back_cover.
- Every page needs an illustrationPrompt detailed enough to paint the scene without the transcript.
- Respond with JSON only.`

// StoryGenerator implements generation.StoryGenerator using a Gemini text
// model. The project's transcript and photo captions are resolved from the
// stores, so callers only need a project ID.
type StoryGenerator struct {
	logger         *slog.Logger
	config         config.LLMConfig
	promptTemplate *template.Template
	client         *genai.Client
	projectStore   store.ProjectStore
	photoStore     store.PhotoStore
}

// NewStoryGenerator creates a new StoryGenerator with the provided
// dependencies. Returns an error wrapping generation.ErrInvalidConfig if
// the configuration is unusable.
func NewStoryGenerator(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
	projectStore store.ProjectStore,
	photoStore store.PhotoStore,
) (*StoryGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if projectStore == nil {
		return nil, errors.New("project store cannot be nil")
	}
	if photoStore == nil {
		return nil, errors.New("photo store cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.StoryModel == "" {
		return nil, fmt.Errorf("%w: story model name cannot be empty", generation.ErrInvalidConfig)
	}

	promptTemplate, err := template.New("story").Parse(storyPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &StoryGenerator{
		logger:         logger.With(slog.String("component", "story_generator")),
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		projectStore:   projectStore,
		photoStore:     photoStore,
	}, nil
}

// Ensure StoryGenerator implements generation.StoryGenerator
var _ generation.StoryGenerator = (*StoryGenerator)(nil)

// GeneratePages implements generation.StoryGenerator.GeneratePages
func (g *StoryGenerator) GeneratePages(
	ctx context.Context,
	projectID uuid.UUID,
) ([]*domain.Page, error) {
	project, err := g.projectStore.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	if project.Transcript == "" {
		return nil, ErrEmptyTranscript
	}

	photos, err := g.photoStore.FindByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load photos: %w", err)
	}

	prompt, err := g.createPrompt(project, photos)
	if err != nil {
		return nil, err
	}

	response, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	pages, err := pagesFromResponse(projectID, response)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "story generated",
		slog.String("project_id", projectID.String()),
		slog.Int("page_count", len(pages)))
	return pages, nil
}

// createPrompt renders the story prompt from the project and its photos.
func (g *StoryGenerator) createPrompt(
	project *domain.Project,
	photos []*domain.Photo,
) (string, error) {
	data := promptData{
		Title:      project.Title,
		Transcript: project.Transcript,
	}
	for _, photo := range photos {
		if photo.Caption != "" {
			data.PhotoCaptions = append(data.PhotoCaptions, photo.Caption)
		}
	}

	var promptBuffer bytes.Buffer
	if err := g.promptTemplate.Execute(&promptBuffer, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	return promptBuffer.String(), nil
}

// callWithRetry calls the story model with exponential backoff and jitter
// for transient errors. Terminal taxonomy errors are returned immediately.
func (g *StoryGenerator) callWithRetry(ctx context.Context, prompt string) (*ResponseSchema, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	baseDelaySeconds := g.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		g.logger.InfoContext(ctx, "calling story model",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", maxRetries+1))

		result, err := g.client.Models.GenerateContent(
			ctx,
			g.config.StoryModel,
			genai.Text(prompt),
			&genai.GenerateContentConfig{
				ResponseMIMEType: "application/json",
			},
		)
		if err == nil {
			response, parseErr := parseResponse(result.Text())
			if parseErr != nil {
				return nil, parseErr
			}
			return response, nil
		}

		lastErr = mapAPIError(err)
		if !generation.IsRetryable(lastErr) {
			g.logger.WarnContext(ctx, "story model returned terminal error",
				slog.String("error", lastErr.Error()))
			return nil, lastErr
		}

		if attempt == maxRetries {
			break
		}

		// Exponential backoff with jitter between 50% and 100% of the slot.
		slot := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		delay := time.Duration((0.5 + rng.Float64()/2) * slot * float64(time.Second))
		g.logger.WarnContext(ctx, "story model call failed, retrying",
			slog.String("error", lastErr.Error()),
			slog.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

// parseResponse decodes the model's JSON answer into a ResponseSchema.
func parseResponse(text string) (*ResponseSchema, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", generation.ErrInvalidResponse)
	}

	var response ResponseSchema
	if err := json.Unmarshal([]byte(text), &response); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}

	if len(response.Pages) == 0 {
		return nil, fmt.Errorf("%w: response contains no pages", generation.ErrInvalidResponse)
	}

	return &response, nil
}

// pagesFromResponse converts the response schema into validated domain
// pages, normalizing missing page numbers to their positional order.
func pagesFromResponse(projectID uuid.UUID, response *ResponseSchema) ([]*domain.Page, error) {
	pages := make([]*domain.Page, 0, len(response.Pages))
	for i, schema := range response.Pages {
		pageNumber := schema.PageNumber
		if pageNumber == 0 {
			pageNumber = i + 1
		}

		page, err := domain.NewPage(projectID, pageNumber, domain.PageType(schema.PageType))
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", generation.ErrInvalidResponse, i+1, err)
		}

		page.TextContent = schema.TextContent
		page.IllustrationPrompt = schema.IllustrationPrompt
		page.SceneDescription = schema.SceneDescription
		pages = append(pages, page)
	}

	return pages, nil
}
