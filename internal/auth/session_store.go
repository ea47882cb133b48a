// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ClientInfo describes the client a session is issued to.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// SessionStore issues, resolves, and destroys sessions by their plaintext token.
// Expiry is checked on every Get; expired records are deleted lazily.
type SessionStore struct {
	repo   SessionRepository
	now    func() time.Time
	logger *slog.Logger
}

// SessionStoreOption configures a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithClock overrides the time source used for creation and expiry checks.
func WithClock(now func() time.Time) SessionStoreOption {
	return func(s *SessionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionLogger sets the logger used for best-effort cleanup failures.
func WithSessionLogger(logger *slog.Logger) SessionStoreOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSessionStore creates a SessionStore backed by repo.
func NewSessionStore(repo SessionRepository, opts ...SessionStoreOption) (*SessionStore, error) {
	if repo == nil {
		return nil, oops.Code("SESSION_STORE_INVALID").Errorf("session repository is required")
	}
	s := &SessionStore{
		repo:   repo,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create issues a new session for userID. The returned token is the cookie
// value; only its hash is persisted.
func (s *SessionStore) Create(ctx context.Context, userID ulid.ULID, client ClientInfo) (*Session, string, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(userID, tokenHash, client.UserAgent, client.IPAddress, s.now())
	if err != nil {
		return nil, "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "build session").
			Wrap(err)
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", userID.String()).
			Wrap(err)
	}

	return session, token, nil
}

// Get resolves a token to its session. Unknown and expired tokens both
// return an error wrapping ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
	}

	tokenHash := HashSessionToken(token)
	session, err := s.repo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
		}
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpiredAt(s.now()) {
		if delErr := s.repo.DeleteByTokenHash(ctx, tokenHash); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to delete expired session",
				"session_id", session.ID.String(),
				"error", delErr)
		}
		return nil, oops.Code("SESSION_EXPIRED").
			With("session_id", session.ID.String()).
			Wrap(ErrNotFound)
	}

	return session, nil
}

// Destroy removes the session named by token. Destroying an unknown session
// is not an error.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.repo.DeleteByTokenHash(ctx, HashSessionToken(token))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// Prune deletes every session that has expired and returns how many were removed.
func (s *SessionStore) Prune(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.Code("SESSION_PRUNE_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return n, nil
}
