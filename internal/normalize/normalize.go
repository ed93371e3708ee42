// Package normalize converts raw field tuples into canonical events.
//
// Each source declares its expected date layouts in a per-source rule
// table; at least four distinct formats appear across the configured
// sources. A parse failure never aborts a batch: the item is returned as a
// Skip and the rest of the batch proceeds.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/atxevents/atx-events/internal/adapter"
	"github.com/atxevents/atx-events/internal/event"
)

// Skip is the item-scoped outcome for a tuple that cannot become a valid
// event. It carries the raw tuple for diagnostics.
type Skip struct {
	Source string
	Reason string
	Raw    adapter.RawItem
}

func (s *Skip) Error() string {
	return fmt.Sprintf("skipping %s item %q: %s", s.Source, s.Raw.Title, s.Reason)
}

// UnscheduledCategory marks events stored without a start time.
const UnscheduledCategory = "unscheduled"

// rule captures one source's normalization behavior.
type rule struct {
	// layouts are tried in order against the raw date text.
	layouts []string
	// joinTime appends the cleaned TimeText (upper-cased) to the date
	// before parsing, for sources that split date and time.
	joinTime bool
	// allowUnscheduled maps an empty date to the zero-time sentinel
	// instead of a skip.
	allowUnscheduled bool
}

// defaultRules is the per-source date-format table. Keys are source names
// as reported by Adapter.Name.
var defaultRules = map[string]rule{
	"do512": {
		layouts: []string{"2006-01-02T15:04", "2006-01-02 15:04:05"},
	},
	"heyaustin": {
		layouts:  []string{"Jan 2, 2006 3:04 PM"},
		joinTime: true,
	},
	"atxorg": {
		allowUnscheduled: true,
	},
	"predicthq": {
		layouts: []string{"2006-01-02T15:04", "2006-01-02T15:04:05"},
	},
	"culturemap": {
		layouts: []string{"2006-01-02T15:04"},
	},
}

// Normalizer applies per-source rules in a single location so every source
// lands in one comparable timestamp representation.
type Normalizer struct {
	rules map[string]rule
	loc   *time.Location
}

// New creates a normalizer with the default rule table. All timestamps are
// interpreted in loc; nil selects the local zone, matching the sources,
// which publish wall-clock times for one city.
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{rules: defaultRules, loc: loc}
}

// Normalize converts one raw tuple into a canonical event, or a Skip when
// the tuple is unusable. A returned event always satisfies the canonical
// invariants: non-empty title, comparable start time (or the unscheduled
// sentinel), and a venue falling back to the unknown sentinel.
func (n *Normalizer) Normalize(raw adapter.RawItem, source string) (event.Event, *Skip) {
	r, ok := n.rules[source]
	if !ok {
		return event.Event{}, &Skip{Source: source, Reason: "unknown source", Raw: raw}
	}

	title := cleanText(raw.Title)
	if title == "" {
		return event.Event{}, &Skip{Source: source, Reason: "missing title", Raw: raw}
	}

	evt := event.Event{
		Title:     title,
		Venue:     cleanText(raw.Venue),
		Category:  cleanText(raw.Category),
		EventLink: strings.TrimSpace(raw.Link),
	}
	if evt.Venue == "" {
		evt.Venue = event.UnknownVenue
	}

	dateText := cleanText(raw.DateText)
	if r.joinTime && dateText != "" {
		dateText = strings.TrimSpace(dateText + " " + strings.ToUpper(cleanText(raw.TimeText)))
	}

	if dateText == "" {
		if !r.allowUnscheduled {
			return event.Event{}, &Skip{Source: source, Reason: "missing start date", Raw: raw}
		}
		// Zero-time sentinel; flagged in the category so downstream can
		// filter or resolve it later.
		if evt.Category == "" {
			evt.Category = UnscheduledCategory
		} else {
			evt.Category += " " + UnscheduledCategory
		}
		return evt, nil
	}

	start, err := n.parseDate(dateText, r.layouts)
	if err != nil {
		return event.Event{}, &Skip{Source: source, Reason: err.Error(), Raw: raw}
	}
	evt.StartDateTime = start
	return evt, nil
}

func (n *Normalizer) parseDate(dateText string, layouts []string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, dateText, n.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", dateText)
}

// cleanText trims and collapses interior whitespace runs to single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
