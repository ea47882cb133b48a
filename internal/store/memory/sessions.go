// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package memory

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/iucalendar/iucalendar/internal/auth"
)

// SessionRepository implements auth.SessionRepository in memory, keyed by token hash.
type SessionRepository struct {
	s *Store
}

// Create stores a new session.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.sessions[session.TokenHash]; exists {
		return oops.Code("SESSION_INSERT_FAILED").Errorf("token hash already in use")
	}
	if _, ok := r.s.users[session.UserID]; !ok {
		return oops.Code("SESSION_INSERT_FAILED").
			With("user_id", session.UserID.String()).
			Errorf("user does not exist")
	}
	sc := *session
	r.s.sessions[sc.TokenHash] = &sc
	return nil
}

// GetByTokenHash retrieves a session by token hash. Expiry is not checked here.
func (r *SessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	session, ok := r.s.sessions[tokenHash]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	out := *session
	return &out, nil
}

// DeleteByTokenHash removes a session.
func (r *SessionRepository) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sessions[tokenHash]; !ok {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	delete(r.s.sessions, tokenHash)
	return nil
}

// DeleteExpired removes every session expired at now.
func (r *SessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for hash, session := range r.s.sessions {
		if session.IsExpiredAt(now) {
			delete(r.s.sessions, hash)
			n++
		}
	}
	return n, nil
}

var _ auth.SessionRepository = (*SessionRepository)(nil)
