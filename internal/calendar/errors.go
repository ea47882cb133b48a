// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package calendar

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an event does not exist for the given owner.
var ErrNotFound = errors.New("event not found")

// ValidationError represents an input validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
