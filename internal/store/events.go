package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pintopics/api/internal/util"
)

// Event kinds recorded in the audit log.
const (
	EventUpload         = "upload"
	EventRegister       = "register"
	EventSetEmblem      = "set_emblem"
	EventSuppressAdd    = "suppress_add"
	EventSuppressRemove = "suppress_remove"
	EventReconcile      = "reconcile"
)

type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Keyword   string    `json:"keyword,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"createdAt"`
}

// EventStore is the Postgres-backed audit log of uploads and admin actions.
type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = util.NewID("evt")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO media_events (id, kind, keyword, detail, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.ID, event.Kind, event.Keyword, event.Detail, event.Actor, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert media event: %w", err)
	}
	return nil
}

// Recent returns the newest events first.
func (s *EventStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, keyword, detail, actor, created_at
		FROM media_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list media events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var event Event
		if err := rows.Scan(&event.ID, &event.Kind, &event.Keyword, &event.Detail, &event.Actor, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan media event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media events: %w", err)
	}
	return events, nil
}

func (s *EventStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
