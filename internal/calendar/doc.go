// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

// Package calendar implements owner-scoped calendar events.
//
// Every EventRepository method takes the authenticated owner as its first
// argument after the context. An event owned by someone else is
// indistinguishable from one that does not exist: both yield ErrNotFound.
package calendar
