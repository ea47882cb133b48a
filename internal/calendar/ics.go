// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package calendar

import (
	"context"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ProductID identifies the generator in exported feeds.
const ProductID = "-//IU Calendar//iucal//EN"

// localLayout is the datetime-local format the web UI submits.
const localLayout = "2006-01-02T15:04"

// propertyCompleted carries the completed flag, which VEVENT has no status for.
const propertyCompleted ical.ComponentProperty = "X-IUCAL-COMPLETED"

// ExportICS writes the owner's events to w as an iCalendar feed.
func (s *Service) ExportICS(ctx context.Context, ownerID ulid.ULID, w io.Writer) error {
	events, err := s.List(ctx, ownerID)
	if err != nil {
		return err
	}
	cal := BuildCalendar(events, s.now())
	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return oops.Code("EVENT_EXPORT_FAILED").
			With("operation", "write calendar").
			Wrap(err)
	}
	return nil
}

// BuildCalendar renders events as a VCALENDAR with one VEVENT each.
// Start and end values that parse as RFC 3339 are exported in UTC; values in
// the UI's local layout are exported as floating times. Anything else is
// kept only in the description.
func BuildCalendar(events []*Event, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	for _, e := range events {
		ve := cal.AddEvent(e.ID.String())
		ve.SetDtStampTime(stamp)
		ve.SetSummary(e.Title)
		ve.AddProperty(ical.ComponentPropertyCategories, strings.ToUpper(e.Type.String()))
		if e.Completed {
			ve.SetProperty(propertyCompleted, "TRUE")
		} else {
			ve.SetProperty(propertyCompleted, "FALSE")
		}

		startOK := setEventTime(ve, ical.ComponentPropertyDtStart, e.Start)
		endOK := setEventTime(ve, ical.ComponentPropertyDtEnd, e.End)
		if !startOK || !endOK {
			ve.SetDescription("start: " + e.Start + "\nend: " + e.End)
		}
	}
	return cal
}

func setEventTime(ve *ical.VEvent, prop ical.ComponentProperty, raw string) bool {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		ve.SetProperty(prop, t.UTC().Format("20060102T150405Z"))
		return true
	}
	if t, err := time.Parse(localLayout, raw); err == nil {
		ve.SetProperty(prop, t.Format("20060102T150405"))
		return true
	}
	return false
}
