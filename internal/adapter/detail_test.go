package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atxevents/atx-events/internal/fetch"
)

const detailListing = `<html><body>
<div class="fbe_col_title"><a href="/events/jazz-night">Jazz Night</a></div>
<div class="fbe_col_title"><a href="/events/poetry-slam">Poetry Slam</a></div>
<div class="fbe_col_title"><a href="/events/broken">Broken</a></div>
</body></html>`

func detailPage(title, slot3, slot4 string) string {
	return fmt.Sprintf(`<html><body>
<div class="fbecol-8-12"><h1> %s </h1></div>
<div class="detail_items">
  <div>Sep 29, 2024</div>
  <div>7:00 - 9:00 PM</div>
  <div>%s</div>
  <div>%s</div>
</div>
</body></html>`, title, slot3, slot4)
}

func newDetailTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/listing", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, detailListing)
	})
	mux.HandleFunc("/events/jazz-night", func(w http.ResponseWriter, r *http.Request) {
		// Ticket link in slot 3 pushes the venue to slot 4.
		fmt.Fprint(w, detailPage("Jazz Night", `Get Tickets Here`, "Elephant Room"))
	})
	mux.HandleFunc("/events/poetry-slam", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, detailPage("Poetry Slam", "Spider House Ballroom", "More Info"))
	})
	mux.HandleFunc("/events/broken", func(w http.ResponseWriter, r *http.Request) {
		// Only three detail fields: malformed, must be dropped.
		fmt.Fprint(w, `<html><body>
<div class="fbecol-8-12"><h1>Broken</h1></div>
<div class="detail_items"><div>Sep 30, 2024</div><div>8:00 PM</div><div>Somewhere</div></div>
</body></html>`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestDetailPageExtractItems(t *testing.T) {
	server := newDetailTestServer(t)
	f := fetch.New(fetch.Config{Timeout: 2 * time.Second, InitialBackoff: time.Millisecond})
	a := NewDetailPage("heyaustin", f)

	doc, err := a.ParseDocument(server.URL+"/listing", []byte(detailListing))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}

	items := a.ExtractItems(context.Background(), doc)
	if len(items) != 2 {
		t.Fatalf("expected 2 items (malformed one dropped), got %d", len(items))
	}

	jazz := items[0]
	if jazz.Title != "Jazz Night" {
		t.Errorf("title = %q", jazz.Title)
	}
	if jazz.Venue != "Elephant Room" {
		t.Errorf("ticket marker in slot 3 should pick slot 4 venue, got %q", jazz.Venue)
	}
	if jazz.DateText != "Sep 29, 2024" {
		t.Errorf("date = %q", jazz.DateText)
	}
	if jazz.TimeText != "7:00 PM" {
		t.Errorf("expected range start bound with inherited PM, got %q", jazz.TimeText)
	}

	slam := items[1]
	if slam.Venue != "Spider House Ballroom" {
		t.Errorf("plain slot 3 should be the venue, got %q", slam.Venue)
	}
}

func TestDetailPageFetchFailureDropsItemOnly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/events/good", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, detailPage("Good Event", "The Venue", "More Info"))
	})
	mux.HandleFunc("/events/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	listing := `<html><body>
<div class="fbe_col_title"><a href="/events/gone">Gone</a></div>
<div class="fbe_col_title"><a href="/events/good">Good</a></div>
</body></html>`

	f := fetch.New(fetch.Config{Timeout: 2 * time.Second, InitialBackoff: time.Millisecond})
	a := NewDetailPage("heyaustin", f)

	doc, err := a.ParseDocument(server.URL+"/listing", []byte(listing))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}

	items := a.ExtractItems(context.Background(), doc)
	if len(items) != 1 {
		t.Fatalf("expected the surviving item only, got %d", len(items))
	}
	if items[0].Title != "Good Event" {
		t.Errorf("unexpected surviving item: %q", items[0].Title)
	}
}

func TestDetailPageNextLink(t *testing.T) {
	a := NewDetailPage("heyaustin", fetch.New(fetch.Config{}))

	withNext := []byte(`<html><body><a class="next page-numbers" href="/events/page/2/">Next</a></body></html>`)
	doc, err := a.ParseDocument("https://heyaustin.test/events/", withNext)
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	next, ok := a.ExtractNextLink(doc)
	if !ok || next != "https://heyaustin.test/events/page/2/" {
		t.Errorf("next link = %q, ok = %v", next, ok)
	}

	doc, err = a.ParseDocument("https://heyaustin.test/events/page/2/", []byte(`<html><body></body></html>`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if _, ok := a.ExtractNextLink(doc); ok {
		t.Error("expected no next link on final page")
	}
}

func TestStartBound(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"7:00 - 9:00 PM", "7:00 PM"},
		{"7:00 PM - 9:00 PM", "7:00 PM"},
		{"11:30 AM - 1:00 PM", "11:30 AM"},
		{"8:00 PM", "8:00 PM"},
		{"  6:30 pm ", "6:30 pm"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := startBound(tt.in); got != tt.expected {
				t.Errorf("startBound(%q) = %q, expected %q", tt.in, got, tt.expected)
			}
		})
	}
}
