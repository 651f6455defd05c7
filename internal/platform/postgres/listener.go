package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkpress/storybook-api/internal/store"
	"github.com/jackc/pgx/v5"
)

// DefaultChangeChannel is the pg_notify channel the insert triggers publish on.
const DefaultChangeChannel = "storybook_changes"

// reconnectDelay is how long the listener waits before re-establishing a
// dropped connection.
const reconnectDelay = 2 * time.Second

// ChangeListener implements store.ChangeListener on top of PostgreSQL
// LISTEN/NOTIFY. Insert triggers on the photos, pages and illustrations
// tables publish a small JSON payload identifying the table and project;
// consumers must treat delivery as at-least-once and re-read state rather
// than trust the payload, which carries no row data by design.
type ChangeListener struct {
	databaseURL   string
	channel       string
	logger        *slog.Logger
	notifications chan store.ChangeNotification
}

// NewChangeListener creates a listener for the given database URL and
// notification channel. If channel is empty, DefaultChangeChannel is used.
// If logger is nil, a default logger will be used.
func NewChangeListener(databaseURL, channel string, logger *slog.Logger) *ChangeListener {
	if channel == "" {
		channel = DefaultChangeChannel
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &ChangeListener{
		databaseURL:   databaseURL,
		channel:       channel,
		logger:        logger.With(slog.String("component", "change_listener")),
		notifications: make(chan store.ChangeNotification, 64),
	}
}

// Ensure ChangeListener implements store.ChangeListener
var _ store.ChangeListener = (*ChangeListener)(nil)

// Notifications implements store.ChangeListener.Notifications
func (l *ChangeListener) Notifications() <-chan store.ChangeNotification {
	return l.notifications
}

// Start implements store.ChangeListener.Start
// It establishes the initial LISTEN subscription synchronously so callers
// know the stream is live, then keeps receiving (and reconnecting on
// failure) until the context is cancelled.
func (l *ChangeListener) Start(ctx context.Context) error {
	conn, err := l.connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to start change listener: %w", err)
	}

	go l.listenLoop(ctx, conn)
	return nil
}

// connect opens a dedicated connection and subscribes to the channel.
func (l *ChangeListener) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, l.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to listen on %q: %w", l.channel, err)
	}

	l.logger.Info("change listener subscribed", slog.String("channel", l.channel))
	return conn, nil
}

// listenLoop receives notifications until the context is cancelled,
// reconnecting after transient connection failures.
func (l *ChangeListener) listenLoop(ctx context.Context, conn *pgx.Conn) {
	defer close(l.notifications)
	defer func() {
		if conn != nil {
			_ = conn.Close(context.Background())
		}
	}()

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("change listener stopping")
				return
			}

			l.logger.Error("change listener connection lost, reconnecting",
				slog.String("error", err.Error()))
			_ = conn.Close(context.Background())
			conn = l.reconnect(ctx)
			if conn == nil {
				return
			}
			continue
		}

		change, err := parseChangePayload(notification.Payload)
		if err != nil {
			// A malformed payload is dropped; the stream is advisory and
			// consumers recompute from reads anyway.
			l.logger.Warn("dropping malformed change notification",
				slog.String("error", err.Error()),
				slog.String("payload", notification.Payload))
			continue
		}

		select {
		case l.notifications <- change:
		case <-ctx.Done():
			return
		default:
			// Slow consumer: dropping is safe for the same reason.
			l.logger.Warn("change notification buffer full, dropping",
				slog.String("table", change.Table),
				slog.String("project_id", change.ProjectID.String()))
		}
	}
}

// reconnect retries the subscription until it succeeds or the context is
// cancelled. Returns nil only on cancellation.
func (l *ChangeListener) reconnect(ctx context.Context) *pgx.Conn {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}

		conn, err := l.connect(ctx)
		if err != nil {
			l.logger.Error("change listener reconnect failed",
				slog.String("error", err.Error()))
			continue
		}
		return conn
	}
}

// parseChangePayload decodes the trigger's JSON payload.
func parseChangePayload(payload string) (store.ChangeNotification, error) {
	var change store.ChangeNotification
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return store.ChangeNotification{}, fmt.Errorf("invalid payload: %w", err)
	}
	if change.Table == "" {
		return store.ChangeNotification{}, errors.New("payload missing table")
	}
	return change, nil
}
