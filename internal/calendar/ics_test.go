// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package calendar_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iucalendar/iucalendar/internal/calendar"
)

func TestBuildCalendar(t *testing.T) {
	stamp := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	events := []*calendar.Event{
		{ID: ulid.Make(), Title: "Exam", Start: "2025-05-01T09:00", End: "2025-05-01T11:00", Type: calendar.EventTypeAcademic},
		{ID: ulid.Make(), Title: "Call", Start: "2025-05-02T08:00:00+02:00", End: "2025-05-02T09:00:00+02:00", Type: calendar.EventTypeGeneral, Completed: true},
		{ID: ulid.Make(), Title: "Someday", Start: "soon", End: "later", Type: calendar.EventTypeGeneral},
	}

	out := calendar.BuildCalendar(events, stamp).Serialize()

	parsed, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	vevents := parsed.Events()
	require.Len(t, vevents, 3)

	assert.Equal(t, events[0].ID.String(), vevents[0].Id())
	assert.Equal(t, "Exam", vevents[0].GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "20250501T090000", vevents[0].GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "ACADEMIC", vevents[0].GetProperty(ical.ComponentPropertyCategories).Value)

	assert.Equal(t, "20250502T060000Z", vevents[1].GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "TRUE", vevents[1].GetProperty(ical.ComponentProperty("X-IUCAL-COMPLETED")).Value)

	assert.Nil(t, vevents[2].GetProperty(ical.ComponentPropertyDtStart))
	desc := vevents[2].GetProperty(ical.ComponentPropertyDescription)
	require.NotNil(t, desc)
	assert.Contains(t, desc.Value, "soon")
}

func TestService_ExportICS_OwnerScoped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Create(ctx, f.alice, calendar.CreateInput{Title: "Alice only", Start: "2025-05-01T09:00", End: "2025-05-01T10:00"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.bob, calendar.CreateInput{Title: "Bob only", Start: "2025-05-01T09:00", End: "2025-05-01T10:00"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportICS(ctx, f.alice, &buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "Alice only")
	assert.NotContains(t, out, "Bob only")
	assert.Contains(t, out, calendar.ProductID)
}
