package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of progress event being published.
type EventType string

// Event types published by the upload queue and the generation pipeline.
const (
	// EventPhaseChanged is emitted when a generation run enters a new phase.
	EventPhaseChanged EventType = "phase_changed"

	// EventPageProgress is emitted as illustration chunks settle.
	EventPageProgress EventType = "page_progress"

	// EventUploadProgress is emitted as the upload queue drains.
	EventUploadProgress EventType = "upload_progress"
)

// ProgressEvent represents one observable step of a project's background
// work. The payload carries type-specific data serialized as JSON so that
// handlers have no direct dependency on the emitting package.
type ProgressEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates what happened
	Type EventType `json:"type"`

	// ProjectID is the project the event belongs to
	ProjectID uuid.UUID `json:"project_id"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *ProgressEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// PhaseChangedPayload is the payload for EventPhaseChanged.
type PhaseChangedPayload struct {
	Phase  string `json:"phase"`
	Detail string `json:"detail,omitempty"`
}

// PageProgressPayload is the payload for EventPageProgress.
type PageProgressPayload struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// UploadProgressPayload is the payload for EventUploadProgress.
type UploadProgressPayload struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// NewProgressEvent creates a new ProgressEvent for the given project with
// the specified type and payload.
func NewProgressEvent(eventType EventType, projectID uuid.UUID, payload interface{}) (*ProgressEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &ProgressEvent{
		ID:        uuid.New(),
		Type:      eventType,
		ProjectID: projectID,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *ProgressEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the upload queue and the pipeline to publish progress without
// direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *ProgressEvent) error
}
