// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

// Package auth provides account registration, login, and server-side sessions.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates a User with a validated name, email, and password hash
//   - NewSession - creates a Session bound to a user with a fixed expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
//   - SessionStore - create, resolve, and destroy sessions by their cookie token
//   - Service - registration, login, logout, and session validation
//
// The plaintext session token only ever lives in the client cookie. Repositories
// store its SHA-256 hash.
package auth
