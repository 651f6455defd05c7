package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ProjectStatus represents the externally visible phase of a project.
// It is advanced only by the generation pipeline and never skipped backward
// except by explicit user action.
type ProjectStatus string

// Possible project status values
const (
	ProjectStatusUpload     ProjectStatus = "upload"
	ProjectStatusInterview  ProjectStatus = "interview"
	ProjectStatusGenerating ProjectStatus = "generating"
	ProjectStatusReview     ProjectStatus = "review"
)

// Common validation errors for Project
var (
	ErrEmptyProjectID       = errors.New("project ID cannot be empty")
	ErrEmptyProjectTitle    = errors.New("project title cannot be empty")
	ErrInvalidProjectStatus = errors.New("invalid project status")
)

// Project is the root entity of one book: it owns the uploaded photos, the
// generated pages and their illustrations.
type Project struct {
	ID     uuid.UUID     `json:"id"`
	Title  string        `json:"title"`
	Status ProjectStatus `json:"status"`
	// Transcript is the free-form interview transcript the story is
	// generated from. It is written by the interview flow, which is outside
	// this service; the pipeline only reads it.
	Transcript string    `json:"transcript,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewProject creates a new Project with the given title in the initial
// upload status. Returns an error if validation fails.
func NewProject(title string) (*Project, error) {
	project := &Project{
		ID:        uuid.New(),
		Title:     title,
		Status:    ProjectStatusUpload,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := project.Validate(); err != nil {
		return nil, err
	}

	return project, nil
}

// Validate checks if the Project has valid data.
func (p *Project) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyProjectID
	}

	if p.Title == "" {
		return ErrEmptyProjectTitle
	}

	if !isValidProjectStatus(p.Status) {
		return ErrInvalidProjectStatus
	}

	return nil
}

// UpdateStatus updates the project's status and the UpdatedAt timestamp.
// Returns an error if the new status is invalid.
func (p *Project) UpdateStatus(status ProjectStatus) error {
	if !isValidProjectStatus(status) {
		return ErrInvalidProjectStatus
	}

	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// isValidProjectStatus checks if the given status is a valid ProjectStatus.
func isValidProjectStatus(status ProjectStatus) bool {
	switch status {
	case ProjectStatusUpload, ProjectStatusInterview,
		ProjectStatusGenerating, ProjectStatusReview:
		return true
	default:
		return false
	}
}
