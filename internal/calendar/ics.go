// Package calendar renders ingested events as iCalendar (.ics) files so a
// run's findings can be imported into a calendar app.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/atxevents/atx-events/internal/event"
)

// DefaultDuration is assumed for sources that only publish a start time.
const DefaultDuration = 2 * time.Hour

// GenerateICS renders one event as a single-VEVENT calendar. Unscheduled
// events are dated a week out so they still surface.
func GenerateICS(evt event.Event) string {
	var ics strings.Builder

	writeCalendarHeader(&ics, "")
	writeVEvent(&ics, evt)
	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String()
}

// GenerateBulkICS renders a run's events as one importable calendar.
// An empty slice yields an empty string so callers skip the file write.
func GenerateBulkICS(events []event.Event, name string) string {
	if len(events) == 0 {
		return ""
	}

	var ics strings.Builder
	writeCalendarHeader(&ics, name)
	for _, evt := range events {
		writeVEvent(&ics, evt)
	}
	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String()
}

func writeCalendarHeader(ics *strings.Builder, name string) {
	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//ATX Events//atx-events//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	if name != "" {
		ics.WriteString(fmt.Sprintf("X-WR-CALNAME:%s\r\n", escapeICS(name)))
	}
}

func writeVEvent(ics *strings.Builder, evt event.Event) {
	ics.WriteString("BEGIN:VEVENT\r\n")

	ics.WriteString(fmt.Sprintf("UID:%s@atx-events\r\n", Slug(evt)))

	now := time.Now().UTC()
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICSTime(now)))

	start := evt.StartDateTime
	if evt.Unscheduled() {
		start = now.AddDate(0, 0, 7)
	}
	ics.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICSTime(start)))
	ics.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICSTime(start.Add(DefaultDuration))))

	ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS(evt.Title)))

	description := evt.Title
	if evt.Category != "" {
		description = fmt.Sprintf("%s (%s)", description, evt.Category)
	}
	if evt.EventLink != "" {
		description = fmt.Sprintf("%s\nDetails: %s", description, evt.EventLink)
	}
	ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(description)))

	ics.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICS(evt.Venue)))
	if evt.EventLink != "" {
		ics.WriteString(fmt.Sprintf("URL:%s\r\n", evt.EventLink))
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:OPAQUE\r\n")

	ics.WriteString("END:VEVENT\r\n")
}

// Slug derives a filesystem- and UID-safe identifier from the dedup key.
func Slug(evt event.Event) string {
	var b strings.Builder
	for _, r := range strings.ToLower(evt.Key()) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// RFC 5545 text escaping
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
