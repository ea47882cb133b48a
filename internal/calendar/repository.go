// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package calendar

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventRepository persists events. Every method is scoped to ownerID;
// a record belonging to another owner is reported as ErrNotFound.
type EventRepository interface {
	// Create stores a new event. event.OwnerID must equal ownerID.
	Create(ctx context.Context, ownerID ulid.ULID, event *Event) error

	// ListByOwner returns the owner's events in insertion order.
	ListByOwner(ctx context.Context, ownerID ulid.ULID) ([]*Event, error)

	// Get retrieves one of the owner's events.
	Get(ctx context.Context, ownerID, id ulid.ULID) (*Event, error)

	// Update replaces the mutable fields of one of the owner's events.
	Update(ctx context.Context, ownerID ulid.ULID, event *Event) error

	// ToggleCompleted negates the completed flag, stamps UpdatedAt with now,
	// and returns the updated event.
	ToggleCompleted(ctx context.Context, ownerID, id ulid.ULID, now time.Time) (*Event, error)

	// Delete removes one of the owner's events.
	Delete(ctx context.Context, ownerID, id ulid.ULID) error
}
