// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package httpapi

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/oklog/ulid/v2"

	"github.com/iucalendar/iucalendar/internal/calendar"
)

// eventJSON is the wire form of an event.
type eventJSON struct {
	ID        string `json:"_id"`
	UserID    string `json:"userId"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Type      string `json:"type"`
	Completed bool   `json:"completed"`
}

func toEventJSON(e *calendar.Event) eventJSON {
	return eventJSON{
		ID:        e.ID.String(),
		UserID:    e.OwnerID.String(),
		Title:     e.Title,
		Start:     e.Start,
		End:       e.End,
		Type:      e.Type.String(),
		Completed: e.Completed,
	}
}

type createEventRequest struct {
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Type      string `json:"type"`
	Completed bool   `json:"completed"`
}

// updateEventRequest uses pointers so omitted fields keep their stored values.
type updateEventRequest struct {
	Title     *string `json:"title"`
	Start     *string `json:"start"`
	End       *string `json:"end"`
	Type      *string `json:"type"`
	Completed *bool   `json:"completed"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	owner, _ := ownerFromContext(r.Context())

	var req createEventRequest
	if !readJSON(w, r, &req) {
		return
	}

	event, err := s.events.Create(r.Context(), owner, calendar.CreateInput{
		Title:     req.Title,
		Start:     req.Start,
		End:       req.End,
		Type:      req.Type,
		Completed: req.Completed,
	})
	if err != nil {
		s.eventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventJSON(event))
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	owner, _ := ownerFromContext(r.Context())

	events, err := s.events.List(r.Context(), owner)
	if err != nil {
		s.eventError(w, r, err)
		return
	}
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, toEventJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	owner, _ := ownerFromContext(r.Context())
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	var req updateEventRequest
	if !readJSON(w, r, &req) {
		return
	}

	event, err := s.events.Update(r.Context(), owner, id, calendar.EventPatch{
		Title:     req.Title,
		Start:     req.Start,
		End:       req.End,
		Type:      req.Type,
		Completed: req.Completed,
	})
	if err != nil {
		s.eventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventJSON(event))
}

func (s *Server) handleToggleCompleted(w http.ResponseWriter, r *http.Request) {
	owner, _ := ownerFromContext(r.Context())
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	event, err := s.events.ToggleCompleted(r.Context(), owner, id)
	if err != nil {
		s.eventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventJSON(event))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	owner, _ := ownerFromContext(r.Context())
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	if err := s.events.Delete(r.Context(), owner, id); err != nil {
		s.eventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgEventDeleted})
}

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	owner, _ := ownerFromContext(r.Context())

	var buf bytes.Buffer
	if err := s.events.ExportICS(r.Context(), owner, &buf); err != nil {
		s.eventError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// eventID parses the {id} path value. An id that cannot name any event is
// reported as not found.
func eventID(w http.ResponseWriter, r *http.Request) (ulid.ULID, bool) {
	id, err := ulid.ParseStrict(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, msgEventNotFound)
		return ulid.ULID{}, false
	}
	return id, true
}

func (s *Server) eventError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *calendar.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Field+" "+verr.Message)
	case errors.Is(err, calendar.ErrNotFound):
		writeError(w, http.StatusNotFound, msgEventNotFound)
	default:
		s.internalError(w, r, err)
	}
}
