package store

import (
	"context"

	"github.com/google/uuid"
)

// ChangeNotification describes one insert delivered by the persistence
// substrate's change stream. Delivery is at-least-once and possibly out of
// order, so consumers must treat a notification purely as a hint to re-read
// state, never as a trustworthy delta.
type ChangeNotification struct {
	// Table is the name of the table the insert happened on.
	Table string `json:"table"`

	// ProjectID identifies the project the changed row belongs to.
	ProjectID uuid.UUID `json:"project_id"`
}

// ChangeListener is the interface to the substrate's change-notification
// stream. Implementations deliver notifications for all projects; consumers
// filter by project ID.
type ChangeListener interface {
	// Notifications returns the channel on which change notifications are
	// delivered. The channel is closed when the listener shuts down.
	Notifications() <-chan ChangeNotification

	// Start begins listening. It returns after the subscription is
	// established; delivery happens on a background goroutine until the
	// context is cancelled.
	Start(ctx context.Context) error
}
