package openaicap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/inkpress/storybook-api/internal/config"
	"github.com/inkpress/storybook-api/internal/generation"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const captionInstruction = "Describe this photo in one short sentence for a " +
	"children's book author. Mention the people, the setting and the mood. " +
	"Answer with the sentence only."

// Captioner implements generation.Captioner with an OpenAI-compatible
// vision chat model. Captioning is best effort; callers log and continue
// on failure.
type Captioner struct {
	logger *slog.Logger
	client openai.Client
	model  string
}

// NewCaptioner creates a new Captioner. Returns an error wrapping
// generation.ErrInvalidConfig if the configuration is unusable.
func NewCaptioner(logger *slog.Logger, cfg config.CaptionConfig) (*Captioner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: caption API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: caption model name cannot be empty", generation.ErrInvalidConfig)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Captioner{
		logger: logger.With(slog.String("component", "captioner")),
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

// Ensure Captioner implements generation.Captioner
var _ generation.Captioner = (*Captioner)(nil)

// Caption implements generation.Captioner.Caption
func (c *Captioner) Caption(ctx context.Context, photoURL string) (string, error) {
	if photoURL == "" {
		return "", errors.New("photo URL cannot be empty")
	}

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(captionInstruction),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: photoURL,
				}),
			}),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: completion contains no choices", generation.ErrInvalidResponse)
	}

	caption := strings.TrimSpace(completion.Choices[0].Message.Content)
	if caption == "" {
		return "", fmt.Errorf("%w: completion is empty", generation.ErrInvalidResponse)
	}

	c.logger.DebugContext(ctx, "photo captioned", slog.Int("caption_length", len(caption)))
	return caption, nil
}
