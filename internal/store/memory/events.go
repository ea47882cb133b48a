// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package memory

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/iucalendar/iucalendar/internal/calendar"
)

// EventRepository implements calendar.EventRepository in memory.
// Events are kept in a slice so listing preserves insertion order.
type EventRepository struct {
	s *Store
}

// Create stores a new event owned by ownerID.
func (r *EventRepository) Create(_ context.Context, ownerID ulid.ULID, event *calendar.Event) error {
	if event.OwnerID != ownerID {
		return oops.Code("EVENT_OWNER_MISMATCH").
			With("event_id", event.ID.String()).
			Errorf("event owner does not match caller")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[ownerID]; !ok {
		return oops.Code("EVENT_INSERT_FAILED").
			With("owner_id", ownerID.String()).
			Errorf("owner does not exist")
	}
	e := *event
	r.s.events = append(r.s.events, &e)
	return nil
}

// ListByOwner returns the owner's events in insertion order.
func (r *EventRepository) ListByOwner(_ context.Context, ownerID ulid.ULID) ([]*calendar.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*calendar.Event, 0)
	for _, e := range r.s.events {
		if e.OwnerID == ownerID {
			ec := *e
			out = append(out, &ec)
		}
	}
	return out, nil
}

// Get retrieves one of the owner's events.
func (r *EventRepository) Get(_ context.Context, ownerID, id ulid.ULID) (*calendar.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	i := r.indexOf(ownerID, id)
	if i < 0 {
		return nil, notFound(id)
	}
	out := *r.s.events[i]
	return &out, nil
}

// Update replaces the mutable fields of one of the owner's events.
func (r *EventRepository) Update(_ context.Context, ownerID ulid.ULID, event *calendar.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.indexOf(ownerID, event.ID)
	if i < 0 {
		return notFound(event.ID)
	}
	stored := r.s.events[i]
	stored.Title = event.Title
	stored.Start = event.Start
	stored.End = event.End
	stored.Type = event.Type
	stored.Completed = event.Completed
	stored.UpdatedAt = event.UpdatedAt
	return nil
}

// ToggleCompleted negates the completed flag under the write lock.
func (r *EventRepository) ToggleCompleted(_ context.Context, ownerID, id ulid.ULID, now time.Time) (*calendar.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.indexOf(ownerID, id)
	if i < 0 {
		return nil, notFound(id)
	}
	r.s.events[i].Completed = !r.s.events[i].Completed
	r.s.events[i].UpdatedAt = now
	out := *r.s.events[i]
	return &out, nil
}

// Delete removes one of the owner's events.
func (r *EventRepository) Delete(_ context.Context, ownerID, id ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.indexOf(ownerID, id)
	if i < 0 {
		return notFound(id)
	}
	r.s.events = append(r.s.events[:i], r.s.events[i+1:]...)
	return nil
}

// indexOf returns the position of the owner's event, or -1.
// Callers must hold the lock.
func (r *EventRepository) indexOf(ownerID, id ulid.ULID) int {
	for i, e := range r.s.events {
		if e.ID == id && e.OwnerID == ownerID {
			return i
		}
	}
	return -1
}

func notFound(id ulid.ULID) error {
	return oops.Code("EVENT_NOT_FOUND").With("event_id", id.String()).Wrap(calendar.ErrNotFound)
}

var _ calendar.EventRepository = (*EventRepository)(nil)
