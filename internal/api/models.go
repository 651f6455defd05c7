package api

import (
	"time"

	"github.com/google/uuid"
)

// Common request/response structures

// CreateProjectRequest defines the payload for creating a project.
type CreateProjectRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
}

// UpdateTranscriptRequest defines the payload for storing the interview
// transcript on a project.
type UpdateTranscriptRequest struct {
	Transcript string `json:"transcript" validate:"required,min=1"`
}

// ProjectResponse is the client-facing view of a project.
type ProjectResponse struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Transcript string    `json:"transcript,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PhotoResponse is the client-facing view of an uploaded photo. URL is a
// time-limited presigned link, never a raw storage path.
type PhotoResponse struct {
	ID         uuid.UUID `json:"id"`
	SortOrder  int       `json:"sort_order"`
	Caption    string    `json:"caption,omitempty"`
	IsFavorite bool      `json:"is_favorite"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
}

// IllustrationResponse is one illustration variant of a page.
type IllustrationResponse struct {
	ID         uuid.UUID `json:"id"`
	IsSelected bool      `json:"is_selected"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
}

// PageResponse is the client-facing view of a page with its illustration
// variants.
type PageResponse struct {
	ID                 uuid.UUID              `json:"id"`
	PageNumber         int                    `json:"page_number"`
	PageType           string                 `json:"page_type"`
	TextContent        string                 `json:"text_content"`
	IllustrationPrompt string                 `json:"illustration_prompt"`
	SceneDescription   string                 `json:"scene_description,omitempty"`
	IsApproved         bool                   `json:"is_approved"`
	Illustrations      []IllustrationResponse `json:"illustrations"`
}

// GenerationStatusResponse reports the state of the project's generation
// run.
type GenerationStatusResponse struct {
	Phase            string `json:"phase"`
	TotalPages       int    `json:"total_pages"`
	IllustratedCount int    `json:"illustrated_count"`
	FailedCount      int    `json:"failed_count"`
	Retryable        bool   `json:"retryable,omitempty"`
	Stopped          bool   `json:"stopped,omitempty"`
}

// UploadProgressResponse reports aggregate upload progress for a project.
type UploadProgressResponse struct {
	Total     int  `json:"total"`
	Completed int  `json:"completed"`
	Failed    int  `json:"failed"`
	Active    bool `json:"active"`
}
