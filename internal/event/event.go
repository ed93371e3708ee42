package event

import (
	"fmt"
	"time"
)

// UnknownVenue is the sentinel venue for sources that cannot supply one.
const UnknownVenue = "unknown"

// Event is the canonical, source-agnostic record produced by the normalizer.
// It is immutable once constructed: it is either inserted into storage or
// discarded as a duplicate, never updated in place.
type Event struct {
	Title         string    `json:"title"`
	StartDateTime time.Time `json:"start_datetime"`
	Venue         string    `json:"venue"`
	Category      string    `json:"category,omitempty"`
	EventLink     string    `json:"event_link,omitempty"`
}

// Key returns the dedup key for a (title, start time) pair. Two events
// describe the same real-world event iff their keys are equal: exact title
// plus exact start time. Venue and category are deliberately excluded.
func Key(title string, start time.Time) string {
	return fmt.Sprintf("%s|%s", title, start.UTC().Format(time.RFC3339))
}

// Key returns the event's dedup key.
func (e Event) Key() string {
	return Key(e.Title, e.StartDateTime)
}

// Unscheduled reports whether the event carries the zero-time sentinel,
// used for feed entries that expose no reliable start time.
func (e Event) Unscheduled() bool {
	return e.StartDateTime.IsZero()
}
