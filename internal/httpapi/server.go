// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

// Package httpapi serves the calendar JSON API.
//
// Every route lives under a configurable base path (default /api). Event
// routes require a session cookie; the session-resolved user id is the only
// owner id any handler passes to the calendar service.
package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/oklog/ulid/v2"
	"github.com/rs/cors"
	"github.com/samber/oops"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/iucalendar/iucalendar/internal/auth"
	"github.com/iucalendar/iucalendar/internal/calendar"
	"github.com/iucalendar/iucalendar/internal/observability"
)

// AuthService is the subset of auth.Service used by the API.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.User, *auth.Session, string, error)
	Login(ctx context.Context, email, password string, client auth.ClientInfo) (*auth.Session, string, error)
	Logout(ctx context.Context, token string) error
	ValidateSession(ctx context.Context, token string) (*auth.Session, error)
}

// EventService is the subset of calendar.Service used by the API.
type EventService interface {
	Create(ctx context.Context, ownerID ulid.ULID, in calendar.CreateInput) (*calendar.Event, error)
	List(ctx context.Context, ownerID ulid.ULID) ([]*calendar.Event, error)
	Update(ctx context.Context, ownerID, id ulid.ULID, patch calendar.EventPatch) (*calendar.Event, error)
	ToggleCompleted(ctx context.Context, ownerID, id ulid.ULID) (*calendar.Event, error)
	Delete(ctx context.Context, ownerID, id ulid.ULID) error
	ExportICS(ctx context.Context, ownerID ulid.ULID, w io.Writer) error
}

// Config holds the API settings.
type Config struct {
	BasePath       string
	AllowedOrigins []string
	CookieName     string
	CookieSecure   bool
}

// Server wires the API routes to the auth and calendar services.
type Server struct {
	auth    AuthService
	events  EventService
	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records request and auth metrics. Without it nothing is recorded.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer creates an API server.
func NewServer(authSvc AuthService, events EventService, cfg Config, opts ...Option) (*Server, error) {
	if authSvc == nil {
		return nil, oops.Code("HTTPAPI_INVALID").Errorf("auth service is required")
	}
	if events == nil {
		return nil, oops.Code("HTTPAPI_INVALID").Errorf("event service is required")
	}
	if cfg.CookieName == "" {
		return nil, oops.Code("HTTPAPI_INVALID").Errorf("cookie name is required")
	}
	s := &Server{
		auth:   authSvc,
		events: events,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the complete API handler: tracing, CORS, request logging,
// and the route table.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return otelhttp.NewHandler(c.Handler(s.logRequests(s.routes())), "iucal-api")
}

func (s *Server) routes() *http.ServeMux {
	base := s.cfg.BasePath
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+base+"/{$}", s.handleRoot)
	mux.HandleFunc("GET "+base+"/session", s.handleSession)
	mux.HandleFunc("POST "+base+"/register", s.handleRegister)
	mux.HandleFunc("POST "+base+"/login", s.handleLogin)
	mux.HandleFunc("GET "+base+"/logout", s.handleLogout)

	mux.Handle("POST "+base+"/events", s.requireSession(s.handleCreateEvent))
	mux.Handle("GET "+base+"/events", s.requireSession(s.handleListEvents))
	mux.Handle("GET "+base+"/events.ics", s.requireSession(s.handleExportICS))
	mux.Handle("PUT "+base+"/events/{id}", s.requireSession(s.handleUpdateEvent))
	mux.Handle("PUT "+base+"/events/{id}/completed", s.requireSession(s.handleToggleCompleted))
	mux.Handle("DELETE "+base+"/events/{id}", s.requireSession(s.handleDeleteEvent))

	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // client may disconnect
	io.WriteString(w, "Hello from the backend!")
}
