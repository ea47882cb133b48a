// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

// Package memory provides in-process implementations of the user, session,
// and event repositories. State lives only as long as the Store.
package memory

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/iucalendar/iucalendar/internal/auth"
	"github.com/iucalendar/iucalendar/internal/calendar"
)

// Store holds all in-memory tables behind a single lock.
type Store struct {
	mu       sync.RWMutex
	users    map[ulid.ULID]*auth.User
	emails   map[string]ulid.ULID
	sessions map[string]*auth.Session
	events   []*calendar.Event
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:    make(map[ulid.ULID]*auth.User),
		emails:   make(map[string]ulid.ULID),
		sessions: make(map[string]*auth.Session),
	}
}

// Users returns the store's auth.UserRepository.
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

// Sessions returns the store's auth.SessionRepository.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{s: s}
}

// Events returns the store's calendar.EventRepository.
func (s *Store) Events() *EventRepository {
	return &EventRepository{s: s}
}
