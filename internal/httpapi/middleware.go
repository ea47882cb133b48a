// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/iucalendar/iucalendar/internal/auth"
	"github.com/iucalendar/iucalendar/pkg/errutil"
)

type sessionContextKey struct{}

// sessionFromContext returns the session attached by requireSession.
func sessionFromContext(ctx context.Context) (*auth.Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(*auth.Session)
	return session, ok && session != nil
}

// ownerFromContext returns the authenticated user id.
func ownerFromContext(ctx context.Context) (ulid.ULID, bool) {
	session, ok := sessionFromContext(ctx)
	if !ok {
		return ulid.ULID{}, false
	}
	return session.UserID, true
}

// requireSession resolves the session cookie before next runs. Requests
// without a live session get 401 and never reach next.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.sessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		session, err := s.auth.ValidateSession(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				writeError(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}
			s.internalError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
		next(w, r.WithContext(ctx))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// logRequests logs one line per request and records request metrics. It must
// wrap the mux directly so the matched pattern is visible after ServeHTTP.
func (s *Server) logRequests(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		writer := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(writer, r)
		elapsed := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordRequest(r.Method, route, strconv.Itoa(writer.status), elapsed)
		s.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"route", route,
			"status", writer.status,
			"duration_ms", elapsed.Milliseconds(),
			"remote_addr", clientIP(r))
	})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.LogErrorContext(r.Context(), s.logger, "request failed", err)
	writeError(w, http.StatusInternalServerError, msgInternal)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func clientInfo(r *http.Request) auth.ClientInfo {
	return auth.ClientInfo{
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	}
}
