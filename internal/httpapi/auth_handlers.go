// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package httpapi

import (
	"errors"
	"net/http"

	"github.com/iucalendar/iucalendar/internal/auth"
)

// Auth attempt outcomes recorded in metrics.
const (
	resultSuccess            = "success"
	resultInvalidInput       = "invalid_input"
	resultDuplicateEmail     = "duplicate_email"
	resultInvalidCredentials = "invalid_credentials"
	resultError              = "error"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Message   string `json:"message"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.auth.ValidateSession(r.Context(), s.sessionToken(r))
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, msgNoSession)
			return
		}
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: session.ID.String(),
		UserID:    session.UserID.String(),
		Message:   msgSessionActive,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !readJSON(w, r, &req) {
		s.metrics.RecordAuth("register", resultInvalidInput)
		return
	}

	user, _, token, err := s.auth.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Client:   clientInfo(r),
	})
	if err != nil {
		var verr *auth.ValidationError
		switch {
		case errors.As(err, &verr):
			s.metrics.RecordAuth("register", resultInvalidInput)
			writeError(w, http.StatusBadRequest, verr.Field+" "+verr.Message)
		case errors.Is(err, auth.ErrDuplicateEmail):
			s.metrics.RecordAuth("register", resultDuplicateEmail)
			writeError(w, http.StatusBadRequest, msgUserExists)
		default:
			s.metrics.RecordAuth("register", resultError)
			s.internalError(w, r, err)
		}
		return
	}

	s.metrics.RecordAuth("register", resultSuccess)
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, registerResponse{Message: msgRegistered, UserID: user.ID.String()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !readJSON(w, r, &req) {
		s.metrics.RecordAuth("login", resultInvalidInput)
		return
	}

	_, token, err := s.auth.Login(r.Context(), req.Email, req.Password, clientInfo(r))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.metrics.RecordAuth("login", resultInvalidCredentials)
			writeError(w, http.StatusBadRequest, msgInvalidCredentials)
			return
		}
		s.metrics.RecordAuth("login", resultError)
		s.internalError(w, r, err)
		return
	}

	s.metrics.RecordAuth("login", resultSuccess)
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, messageResponse{Message: msgLoggedIn})
}

// handleLogout destroys the cookie's session if there is one. It succeeds
// without a session; only a store failure is an error.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), s.sessionToken(r)); err != nil {
		s.internalError(w, r, err)
		return
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: msgLoggedOut})
}
