package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// PageType classifies the role of a page within the book.
type PageType string

// Possible page type values
const (
	PageTypeCover       PageType = "cover"
	PageTypeDedication  PageType = "dedication"
	PageTypeStory       PageType = "story"
	PageTypeClosing     PageType = "closing"
	PageTypeBackCover   PageType = "back_cover"
	PageTypeGallery     PageType = "gallery"
	PageTypeGalleryGrid PageType = "gallery_grid"
)

// Common validation errors for Page
var (
	ErrEmptyPageID        = errors.New("page ID cannot be empty")
	ErrEmptyPageProjectID = errors.New("page project ID cannot be empty")
	ErrInvalidPageNumber  = errors.New("page number must be positive")
	ErrInvalidPageType    = errors.New("invalid page type")
)

// Page represents one page of the generated book. All pages of a project are
// created atomically as a complete ordered set by the text-generation phase;
// regeneration replaces the whole set.
type Page struct {
	ID                 uuid.UUID `json:"id"`
	ProjectID          uuid.UUID `json:"project_id"`
	PageNumber         int       `json:"page_number"`
	PageType           PageType  `json:"page_type"`
	TextContent        string    `json:"text_content"`
	IllustrationPrompt string    `json:"illustration_prompt"`
	SceneDescription   string    `json:"scene_description,omitempty"`
	IsApproved         bool      `json:"is_approved"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewPage creates a new Page for the given project. Returns an error if
// validation fails.
func NewPage(projectID uuid.UUID, pageNumber int, pageType PageType) (*Page, error) {
	page := &Page{
		ID:         uuid.New(),
		ProjectID:  projectID,
		PageNumber: pageNumber,
		PageType:   pageType,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := page.Validate(); err != nil {
		return nil, err
	}

	return page, nil
}

// Validate checks if the Page has valid data.
func (p *Page) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyPageID
	}

	if p.ProjectID == uuid.Nil {
		return ErrEmptyPageProjectID
	}

	if p.PageNumber <= 0 {
		return ErrInvalidPageNumber
	}

	if !isValidPageType(p.PageType) {
		return ErrInvalidPageType
	}

	return nil
}

// isValidPageType checks if the given type is a valid PageType.
func isValidPageType(pageType PageType) bool {
	switch pageType {
	case PageTypeCover, PageTypeDedication, PageTypeStory,
		PageTypeClosing, PageTypeBackCover, PageTypeGallery, PageTypeGalleryGrid:
		return true
	default:
		return false
	}
}
