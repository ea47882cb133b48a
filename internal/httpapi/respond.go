// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// Response messages.
const (
	msgUnauthorized       = "Unauthorized"
	msgNoSession          = "No active session"
	msgInternal           = "Internal server error"
	msgInvalidJSON        = "Invalid JSON payload"
	msgBodyTooLarge       = "Request body too large"
	msgUserExists         = "User already exists"
	msgInvalidCredentials = "Invalid credentials"
	msgEventNotFound      = "Event not found"
	msgRegistered         = "User registered successfully"
	msgLoggedIn           = "User logged in successfully"
	msgLoggedOut          = "Logged out successfully"
	msgEventDeleted       = "Event deleted"
	msgSessionActive      = "Session is active"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errBadBody carries the client-facing reason a body was rejected.
type errBadBody struct {
	message string
}

func (e *errBadBody) Error() string { return e.message }

// decodeJSON strictly decodes a single JSON object into dst. Unknown fields,
// trailing data, and bodies over MaxBodyBytes are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &errBadBody{message: msgBodyTooLarge}
		}
		return &errBadBody{message: msgInvalidJSON}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &errBadBody{message: msgBodyTooLarge}
		}
		return &errBadBody{message: msgInvalidJSON}
	}
	return nil
}

// readJSON decodes the body and writes a 400 on failure. It reports whether
// the handler should continue.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
