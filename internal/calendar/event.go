// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package calendar

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// Validation limits for event fields.
const (
	MaxTitleLength     = 200
	MaxTimestampLength = 64
)

// EventType classifies an event.
type EventType string

// Recognized event types.
const (
	EventTypeGeneral  EventType = "general"
	EventTypeAcademic EventType = "academic"
)

func (t EventType) String() string {
	return string(t)
}

// ParseEventType maps raw input to an EventType. The empty string yields
// EventTypeGeneral; any other unrecognized value is rejected.
func ParseEventType(raw string) (EventType, error) {
	switch EventType(raw) {
	case "":
		return EventTypeGeneral, nil
	case EventTypeGeneral, EventTypeAcademic:
		return EventType(raw), nil
	default:
		return "", &ValidationError{Field: "type", Message: "must be general or academic"}
	}
}

// Event is a calendar entry owned by exactly one user.
// Start and End are stored verbatim as supplied by the client.
type Event struct {
	ID        ulid.ULID
	OwnerID   ulid.ULID
	Title     string
	Start     string
	End       string
	Type      EventType
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput holds the client-supplied fields of a new event.
type CreateInput struct {
	Title     string
	Start     string
	End       string
	Type      string
	Completed bool
}

// NewEvent builds a validated event for ownerID.
func NewEvent(ownerID ulid.ULID, in CreateInput, now time.Time) (*Event, error) {
	if ownerID.IsZero() {
		return nil, &ValidationError{Field: "owner", Message: "is required"}
	}
	if err := ValidateTitle(in.Title); err != nil {
		return nil, err
	}
	if err := ValidateTimestamp("start", in.Start); err != nil {
		return nil, err
	}
	if err := ValidateTimestamp("end", in.End); err != nil {
		return nil, err
	}
	eventType, err := ParseEventType(in.Type)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        ulid.Make(),
		OwnerID:   ownerID,
		Title:     in.Title,
		Start:     in.Start,
		End:       in.End,
		Type:      eventType,
		Completed: in.Completed,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidateTitle checks that a title is non-blank and within limits.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Message: "is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return &ValidationError{Field: "title", Message: "is too long"}
	}
	return nil
}

// ValidateTimestamp checks that a start or end value is present.
// The format is not enforced.
func ValidateTimestamp(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	if len(value) > MaxTimestampLength {
		return &ValidationError{Field: field, Message: "is too long"}
	}
	return nil
}

// EventPatch is a partial update. Nil fields keep the stored value.
type EventPatch struct {
	Title     *string
	Start     *string
	End       *string
	Type      *string
	Completed *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Start == nil && p.End == nil && p.Type == nil && p.Completed == nil
}

// Apply returns a copy of e with the supplied fields replaced.
// Supplied values are validated exactly as on creation.
func (p EventPatch) Apply(e *Event, now time.Time) (*Event, error) {
	out := *e
	if p.Title != nil {
		if err := ValidateTitle(*p.Title); err != nil {
			return nil, err
		}
		out.Title = *p.Title
	}
	if p.Start != nil {
		if err := ValidateTimestamp("start", *p.Start); err != nil {
			return nil, err
		}
		out.Start = *p.Start
	}
	if p.End != nil {
		if err := ValidateTimestamp("end", *p.End); err != nil {
			return nil, err
		}
		out.End = *p.End
	}
	if p.Type != nil {
		// An omitted type defaults on creation; a supplied one must be named.
		if *p.Type == "" {
			return nil, &ValidationError{Field: "type", Message: "must be general or academic"}
		}
		t, err := ParseEventType(*p.Type)
		if err != nil {
			return nil, err
		}
		out.Type = t
	}
	if p.Completed != nil {
		out.Completed = *p.Completed
	}
	out.UpdatedAt = now
	return &out, nil
}
