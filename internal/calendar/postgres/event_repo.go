// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

// Package postgres provides the PostgreSQL implementation of calendar.EventRepository.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/iucalendar/iucalendar/internal/calendar"
	"github.com/iucalendar/iucalendar/internal/store"
)

const eventColumns = `id, user_id, title, start_at, end_at, type, completed, created_at, updated_at`

// EventRepository implements calendar.EventRepository using PostgreSQL.
// Every statement filters on user_id so foreign rows are never visible.
type EventRepository struct {
	db store.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db store.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create persists a new event owned by ownerID.
func (r *EventRepository) Create(ctx context.Context, ownerID ulid.ULID, event *calendar.Event) error {
	if event.OwnerID != ownerID {
		return oops.Code("EVENT_OWNER_MISMATCH").
			With("event_id", event.ID.String()).
			Errorf("event owner does not match caller")
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		event.ID.String(),
		ownerID.String(),
		event.Title,
		event.Start,
		event.End,
		string(event.Type),
		event.Completed,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return oops.Code("EVENT_INSERT_FAILED").
			With("operation", "insert event").
			With("event_id", event.ID.String()).
			Wrap(err)
	}
	return nil
}

// ListByOwner returns the owner's events ordered by insertion sequence.
func (r *EventRepository) ListByOwner(ctx context.Context, ownerID ulid.ULID) ([]*calendar.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE user_id = $1
		ORDER BY seq
	`, ownerID.String())
	if err != nil {
		return nil, oops.Code("EVENT_LIST_QUERY_FAILED").
			With("operation", "list events").
			With("owner_id", ownerID.String()).
			Wrap(err)
	}
	defer rows.Close()

	events := make([]*calendar.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("EVENT_ROWS_ERROR").
			With("operation", "iterate event rows").
			Wrap(err)
	}
	return events, nil
}

// Get retrieves one of the owner's events.
func (r *EventRepository) Get(ctx context.Context, ownerID, id ulid.ULID) (*calendar.Event, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE id = $1 AND user_id = $2
	`, id.String(), ownerID.String())
	return r.scanOne(row, id, "get event")
}

// Update replaces the mutable fields of one of the owner's events.
func (r *EventRepository) Update(ctx context.Context, ownerID ulid.ULID, event *calendar.Event) error {
	result, err := r.db.Exec(ctx, `
		UPDATE events
		SET title = $3, start_at = $4, end_at = $5, type = $6, completed = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2
	`,
		event.ID.String(),
		ownerID.String(),
		event.Title,
		event.Start,
		event.End,
		string(event.Type),
		event.Completed,
		event.UpdatedAt,
	)
	if err != nil {
		return oops.Code("EVENT_UPDATE_QUERY_FAILED").
			With("operation", "update event").
			With("event_id", event.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return notFound(event.ID)
	}
	return nil
}

// ToggleCompleted negates the completed flag in a single statement.
func (r *EventRepository) ToggleCompleted(ctx context.Context, ownerID, id ulid.ULID, now time.Time) (*calendar.Event, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE events
		SET completed = NOT completed, updated_at = $3
		WHERE id = $1 AND user_id = $2
		RETURNING `+eventColumns, id.String(), ownerID.String(), now)
	return r.scanOne(row, id, "toggle event")
}

// Delete removes one of the owner's events.
func (r *EventRepository) Delete(ctx context.Context, ownerID, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `
		DELETE FROM events WHERE id = $1 AND user_id = $2
	`, id.String(), ownerID.String())
	if err != nil {
		return oops.Code("EVENT_DELETE_QUERY_FAILED").
			With("operation", "delete event").
			With("event_id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func (r *EventRepository) scanOne(row pgx.Row, id ulid.ULID, operation string) (*calendar.Event, error) {
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, oops.With("operation", operation).With("event_id", id.String()).Wrap(err)
	}
	return e, nil
}

// scanEvent scans one row into an Event.
// pgx.ErrNoRows is returned unwrapped.
func scanEvent(row pgx.Row) (*calendar.Event, error) {
	var (
		idStr, ownerStr, typeStr string
		createdAt, updatedAt     time.Time
		e                        calendar.Event
	)
	err := row.Scan(&idStr, &ownerStr, &e.Title, &e.Start, &e.End, &typeStr, &e.Completed, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("EVENT_SCAN_FAILED").
			With("operation", "scan event").
			Wrap(err)
	}

	if e.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("EVENT_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if e.OwnerID, err = ulid.Parse(ownerStr); err != nil {
		return nil, oops.Code("EVENT_INVALID_OWNER_ID").With("user_id", ownerStr).Wrap(err)
	}
	e.Type = calendar.EventType(typeStr)
	e.CreatedAt = createdAt
	e.UpdatedAt = updatedAt
	return &e, nil
}

func notFound(id ulid.ULID) error {
	return oops.Code("EVENT_NOT_FOUND").With("event_id", id.String()).Wrap(calendar.ErrNotFound)
}

// Compile-time interface check.
var _ calendar.EventRepository = (*EventRepository)(nil)
