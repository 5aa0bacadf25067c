package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// CalendarEvent is one VEVENT of an iCalendar feed.
type CalendarEvent struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Status      string
}

// CalendarExporter renders events as an RFC 5545 calendar.
type CalendarExporter struct {
	ProductID string
	Now       func() time.Time
}

// NewCalendarExporter constructs a calendar exporter.
func NewCalendarExporter(productID string) *CalendarExporter {
	if productID == "" {
		productID = "-//BusBuddy//Activities//EN"
	}
	return &CalendarExporter{ProductID: productID, Now: time.Now}
}

// Render serialises the events. Events without a UID or with End before Start are rejected.
func (e *CalendarExporter) Render(name string, events []CalendarEvent) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(e.ProductID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	stamp := e.Now().UTC()
	for _, ev := range events {
		if ev.UID == "" {
			return nil, fmt.Errorf("calendar event without uid")
		}
		if ev.End.Before(ev.Start) {
			return nil, fmt.Errorf("calendar event %s ends before it starts", ev.UID)
		}
		vevent := cal.AddEvent(ev.UID)
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(ev.Start)
		vevent.SetEndAt(ev.End)
		vevent.SetSummary(ev.Summary)
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			vevent.SetLocation(ev.Location)
		}
		if ev.Status != "" {
			vevent.SetProperty(ics.ComponentPropertyStatus, ev.Status)
		}
	}

	return []byte(cal.Serialize()), nil
}

func (e *CalendarExporter) ContentType() string { return "text/calendar; charset=utf-8" }
