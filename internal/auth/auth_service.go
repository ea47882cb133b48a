// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Service provides authentication operations.
type Service struct {
	users    UserRepository
	sessions *SessionStore
	hasher   PasswordHasher
	logger   *slog.Logger

	// dummyHash is verified against when the email is unknown so that
	// response time does not reveal whether an account exists. It is produced
	// by hasher, so it carries the same work factor as real digests.
	dummyHash string
}

// NewAuthService creates a new Service using the default logger.
func NewAuthService(users UserRepository, sessions *SessionStore, hasher PasswordHasher) (*Service, error) {
	return NewAuthServiceWithLogger(users, sessions, hasher, slog.Default())
}

// NewAuthServiceWithLogger creates a new Service with an explicit logger.
func NewAuthServiceWithLogger(users UserRepository, sessions *SessionStore, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("logger is required")
	}

	dummyHash, err := newDummyHash(hasher)
	if err != nil {
		return nil, err
	}

	return &Service{
		users:     users,
		sessions:  sessions,
		hasher:    hasher,
		logger:    logger,
		dummyHash: dummyHash,
	}, nil
}

// newDummyHash hashes a random secret that is discarded, so the digest
// matches no password a client can send.
func newDummyHash(hasher PasswordHasher) (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", oops.Code("AUTH_SERVICE_INVALID").With("operation", "generate dummy secret").Wrap(err)
	}
	digest, err := hasher.Hash(hex.EncodeToString(secret))
	if err != nil {
		return "", oops.Code("AUTH_SERVICE_INVALID").With("operation", "hash dummy secret").Wrap(err)
	}
	return digest, nil
}

// RegisterInput holds the fields of a registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Client   ClientInfo
}

// Register creates a user and issues a session for it.
// Returns the user, the session, the plaintext session token, and any error.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, *Session, string, error) {
	if err := ValidateName(in.Name); err != nil {
		return nil, nil, "", err
	}
	if err := ValidateEmail(in.Email); err != nil {
		return nil, nil, "", err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, nil, "", err
	}

	_, lookupErr := s.users.GetByEmail(ctx, in.Email)
	switch {
	case lookupErr == nil:
		return nil, nil, "", oops.Code("AUTH_DUPLICATE_EMAIL").Wrap(ErrDuplicateEmail)
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(in.Name, in.Email, passwordHash)
	if err != nil {
		return nil, nil, "", err
	}

	// The pre-check above races with concurrent registrations; the
	// repository's uniqueness constraint is what guarantees a single winner.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, nil, "", oops.Code("AUTH_DUPLICATE_EMAIL").Wrap(err)
		}
		return nil, nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	session, token, err := s.sessions.Create(ctx, user.ID, in.Client)
	if err != nil {
		return nil, nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create session").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"session_id", session.ID.String())

	return user, session, token, nil
}

// Login authenticates a user by email and password and issues a fresh session.
// Existing sessions for the user stay valid.
// Returns the session, plaintext token, and any error.
func (s *Service) Login(ctx context.Context, email, password string, client ClientInfo) (*Session, string, error) {
	user, lookupErr := s.users.GetByEmail(ctx, email)

	var targetHash string
	var userExists bool

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
		targetHash = s.dummyHash
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify so that unknown emails cost the same as wrong passwords.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
		}
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	session, token, err := s.sessions.Create(ctx, user.ID, client)
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		"user_id", user.ID.String(),
		"session_id", session.ID.String())

	return session, token, nil
}

// Logout destroys the session named by token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "destroy session").
			Wrap(err)
	}
	return nil
}

// ValidateSession resolves token to a live session whose user still exists.
// Missing, unknown, and expired tokens, as well as sessions of deleted users,
// all return an error wrapping ErrUnauthorized.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Wrap(ErrUnauthorized)
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session").
			Wrap(err)
	}

	if _, err := s.users.GetByID(ctx, session.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			if destroyErr := s.sessions.Destroy(ctx, token); destroyErr != nil {
				s.logger.WarnContext(ctx, "failed to destroy orphaned session",
					"session_id", session.ID.String(),
					"error", destroyErr)
			}
			return nil, oops.Code("SESSION_ORPHANED").
				With("session_id", session.ID.String()).
				Wrap(ErrUnauthorized)
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session user").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}

	return session, nil
}

// PruneSessions deletes all expired sessions.
func (s *Service) PruneSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.Prune(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "pruned expired sessions", "count", n)
	return n, nil
}
