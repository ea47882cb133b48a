// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package memory

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/iucalendar/iucalendar/internal/auth"
)

// UserRepository implements auth.UserRepository in memory.
type UserRepository struct {
	s *Store
}

// Create stores a new user. The email index is checked and updated under
// the write lock, so exactly one of two concurrent registrations wins.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.emails[user.Email]; taken {
		return oops.Code("USER_DUPLICATE_EMAIL").
			With("user_id", user.ID.String()).
			Wrap(auth.ErrDuplicateEmail)
	}
	u := *user
	r.s.users[u.ID] = &u
	r.s.emails[u.Email] = u.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	out := *u
	return &out, nil
}

// GetByEmail retrieves a user by exact email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[email]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	out := *r.s.users[id]
	return &out, nil
}

var _ auth.UserRepository = (*UserRepository)(nil)
