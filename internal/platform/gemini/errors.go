package gemini

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inkpress/storybook-api/internal/generation"
	"google.golang.org/genai"
)

// Common errors returned by this package
var (
	// ErrEmptyTranscript is returned when a project has no interview
	// transcript to generate a story from.
	ErrEmptyTranscript = errors.New("project transcript cannot be empty")

	// ErrEmptyPrompt is returned when a page carries no illustration prompt.
	ErrEmptyPrompt = errors.New("illustration prompt cannot be empty")
)

// mapAPIError translates a genai API error onto the generation taxonomy.
// HTTP 429 means rate limiting unless the backend reports exhausted quota,
// which is terminal until the quota resets.
func mapAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		message := strings.ToLower(apiErr.Message)
		switch {
		case apiErr.Code == 429 && strings.Contains(message, "quota"):
			return fmt.Errorf("%w: %v", generation.ErrQuotaExhausted, err)
		case apiErr.Code == 429:
			return fmt.Errorf("%w: %v", generation.ErrRateLimited, err)
		case apiErr.Code == 403 && strings.Contains(message, "quota"):
			return fmt.Errorf("%w: %v", generation.ErrQuotaExhausted, err)
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
		}
	}

	return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
}
