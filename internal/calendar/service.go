// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package calendar

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Service provides owner-scoped event operations.
type Service struct {
	repo   EventRepository
	now    func() time.Time
	logger *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used for created/updated stamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service backed by repo.
func NewService(repo EventRepository, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, oops.Code("CALENDAR_SERVICE_INVALID").Errorf("event repository is required")
	}
	s := &Service{
		repo:   repo,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create validates in and stores a new event owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID ulid.ULID, in CreateInput) (*Event, error) {
	event, err := NewEvent(ownerID, in, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, ownerID, event); err != nil {
		return nil, oops.Code("EVENT_CREATE_FAILED").
			With("owner_id", ownerID.String()).
			Wrap(err)
	}
	s.logger.DebugContext(ctx, "event created",
		"owner_id", ownerID.String(),
		"event_id", event.ID.String())
	return event, nil
}

// List returns every event owned by ownerID in insertion order.
func (s *Service) List(ctx context.Context, ownerID ulid.ULID) ([]*Event, error) {
	events, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, oops.Code("EVENT_LIST_FAILED").
			With("owner_id", ownerID.String()).
			Wrap(err)
	}
	return events, nil
}

// Update applies patch to one of the owner's events. Fields absent from the
// patch keep their stored values.
func (s *Service) Update(ctx context.Context, ownerID, id ulid.ULID, patch EventPatch) (*Event, error) {
	current, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, oops.Code("EVENT_UPDATE_FAILED").
			With("operation", "get event").
			With("event_id", id.String()).
			Wrap(err)
	}
	if patch.IsEmpty() {
		return current, nil
	}

	updated, err := patch.Apply(current, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, ownerID, updated); err != nil {
		return nil, oops.Code("EVENT_UPDATE_FAILED").
			With("operation", "update event").
			With("event_id", id.String()).
			Wrap(err)
	}
	return updated, nil
}

// ToggleCompleted flips the completed flag of one of the owner's events.
func (s *Service) ToggleCompleted(ctx context.Context, ownerID, id ulid.ULID) (*Event, error) {
	event, err := s.repo.ToggleCompleted(ctx, ownerID, id, s.now())
	if err != nil {
		return nil, oops.Code("EVENT_TOGGLE_FAILED").
			With("event_id", id.String()).
			Wrap(err)
	}
	return event, nil
}

// Delete removes one of the owner's events.
func (s *Service) Delete(ctx context.Context, ownerID, id ulid.ULID) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return oops.Code("EVENT_DELETE_FAILED").
			With("event_id", id.String()).
			Wrap(err)
	}
	s.logger.DebugContext(ctx, "event deleted",
		"owner_id", ownerID.String(),
		"event_id", id.String())
	return nil
}
