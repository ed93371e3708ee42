package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/atxevents/atx-events/internal/browser"
	"github.com/atxevents/atx-events/internal/config"
	"github.com/atxevents/atx-events/internal/storage"
)

func listingItem(title, date, venue, permalink string) string {
	meta := ""
	if date != "" {
		meta = fmt.Sprintf(`<meta itemprop="startDate" datetime="%s">`, date)
	}
	return fmt.Sprintf(`<div class="ds-listing ds-card ds-event-music" data-permalink="%s">
<span class="ds-listing-event-title-text">%s</span>%s
<div class="ds-venue-name"><span itemprop="name">%s</span></div>
</div>`, permalink, title, meta, venue)
}

func newStaticServer(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/events/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body>%s%s%s<a class=\"ds-next-page\" href=\"/events/page/2\">Next</a></body></html>",
			listingItem("Jazz Night", "2024-10-01T19:00-0500", "Elephant Room", "/events/jazz"),
			listingItem("Poetry Slam", "2024-10-01T20:00-0500", "Spider House", "/events/slam"),
			listingItem("Secret Show", "", "Hotel Vegas", "/events/secret"))
	})
	mux.HandleFunc("/events/page/2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body>%s</body></html>",
			listingItem("Gallery Walk", "2024-10-02T17:00-0500", "Canopy", "/events/walk"))
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(sources map[string]config.Source) *config.Config {
	return &config.Config{
		Sources: sources,
		HTTP: config.HTTP{
			Timeout:        config.Duration(2 * time.Second),
			MaxAttempts:    3,
			InitialBackoff: config.Duration(time.Millisecond),
		},
		MaxPages: 10,
		Workers:  2,
	}
}

func TestRunSourceStatic(t *testing.T) {
	server := newStaticServer(t)
	cfg := testConfig(map[string]config.Source{
		"do512": {Kind: config.KindStatic, URL: server.URL + "/events/", BaseURL: server.URL},
	})
	store := storage.NewMemory()
	p := New(cfg, store)

	res, err := p.RunSource(context.Background(), "do512")
	if err != nil {
		t.Fatalf("RunSource failed: %v", err)
	}
	if !res.Complete {
		t.Error("expected complete run")
	}
	if res.Added != 3 {
		t.Errorf("added = %d, want 3", res.Added)
	}
	if res.Dropped != 1 {
		t.Errorf("dateless item should be dropped, dropped = %d", res.Dropped)
	}

	// Page order then in-page order is preserved.
	events := store.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 stored events, got %d", len(events))
	}
	if events[0].Title != "Jazz Night" || events[2].Title != "Gallery Walk" {
		t.Errorf("unexpected event order: %q ... %q", events[0].Title, events[2].Title)
	}

	// Re-running against unchanged source data adds nothing.
	again, err := p.RunSource(context.Background(), "do512")
	if err != nil {
		t.Fatalf("second RunSource failed: %v", err)
	}
	if again.Added != 0 || again.Skipped != 3 {
		t.Errorf("second run: added=%d skipped=%d, want 0/3", again.Added, again.Skipped)
	}
}

func TestRunSourcePartialOnLatePageFailure(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/events/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body>%s<a class=\"ds-next-page\" href=\"/events/page/2\">Next</a></body></html>",
			listingItem("Jazz Night", "2024-10-01T19:00-0500", "Elephant Room", "/events/jazz"))
	})
	mux.HandleFunc("/events/page/2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	cfg := testConfig(map[string]config.Source{
		"do512": {Kind: config.KindStatic, URL: server.URL + "/events/", BaseURL: server.URL},
	})
	p := New(cfg, storage.NewMemory())

	res, err := p.RunSource(context.Background(), "do512")
	if err != nil {
		t.Fatalf("partial failure must not raise an error: %v", err)
	}
	if res.Complete {
		t.Error("expected incomplete run")
	}
	if res.Added != 1 {
		t.Errorf("first-page events should still be ingested, added = %d", res.Added)
	}
}

func TestRunSourceUnknown(t *testing.T) {
	cfg := testConfig(map[string]config.Source{})
	p := New(cfg, storage.NewMemory())

	if _, err := p.RunSource(context.Background(), "craigslist"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestRunSourceMissingCredential(t *testing.T) {
	os.Unsetenv("ATX_PIPELINE_TEST_TOKEN")
	cfg := testConfig(map[string]config.Source{
		"predicthq": {
			Kind:     config.KindAPI,
			URL:      "https://api.events.test/v1/events/",
			Query:    "Austin,Texas",
			TokenEnv: "ATX_PIPELINE_TEST_TOKEN",
		},
	})
	p := New(cfg, storage.NewMemory())

	if _, err := p.RunSource(context.Background(), "predicthq"); err == nil {
		t.Error("missing credential must fail before any network activity")
	}
}

type fakeRenderer struct {
	html string
	err  error
}

func (f *fakeRenderer) Render(context.Context, string, browser.ScrollPolicy) (string, error) {
	return f.html, f.err
}

const culturemapSnapshot = `<html><body><div class="grid-flow-row-dense">
<a href="/events/ballet"><div class="headline">Ballet Under the Stars</div>
<div class="location">Zilker Hillside Theater</div>
<time datetime="2024-09-29T19:30">Sep 29</time></a>
</div></body></html>`

func TestRunSourceBrowser(t *testing.T) {
	cfg := testConfig(map[string]config.Source{
		"culturemap": {Kind: config.KindBrowser, URL: "https://culturemap.test/events/", Marker: "div.grid-flow-row-dense"},
	})
	store := storage.NewMemory()
	p := New(cfg, store)
	p.Renderer = &fakeRenderer{html: culturemapSnapshot}

	res, err := p.RunSource(context.Background(), "culturemap")
	if err != nil {
		t.Fatalf("RunSource failed: %v", err)
	}
	if res.Added != 1 || !res.Complete {
		t.Errorf("added=%d complete=%v, want 1/true", res.Added, res.Complete)
	}
	if events := store.Events(); len(events) != 1 || events[0].Venue != "Zilker Hillside Theater" {
		t.Errorf("unexpected stored events: %+v", events)
	}
}

func TestRunSourceBrowserRenderFailure(t *testing.T) {
	cfg := testConfig(map[string]config.Source{
		"culturemap": {Kind: config.KindBrowser, URL: "https://culturemap.test/events/", Marker: "div.grid-flow-row-dense"},
	})
	p := New(cfg, storage.NewMemory())
	p.Renderer = &fakeRenderer{err: &browser.RenderTimeout{URL: "https://culturemap.test/events/", Marker: "div.grid-flow-row-dense"}}

	res, err := p.RunSource(context.Background(), "culturemap")
	if err != nil {
		t.Fatalf("render failure must not raise an error: %v", err)
	}
	if res.Complete || res.Added != 0 {
		t.Errorf("expected empty incomplete result, got %+v", res)
	}
}

func TestRunAll(t *testing.T) {
	server := newStaticServer(t)
	cfg := testConfig(map[string]config.Source{
		"do512":      {Kind: config.KindStatic, URL: server.URL + "/events/", BaseURL: server.URL},
		"culturemap": {Kind: config.KindBrowser, URL: "https://culturemap.test/events/", Marker: "div.grid-flow-row-dense"},
	})
	store := storage.NewMemory()
	p := New(cfg, store)
	p.Renderer = &fakeRenderer{html: culturemapSnapshot}

	results, err := p.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	byName := map[string]SourceResult{}
	for _, res := range results {
		byName[res.Source] = res
	}
	if byName["do512"].Added != 3 {
		t.Errorf("do512 added = %d, want 3", byName["do512"].Added)
	}
	if byName["culturemap"].Added != 1 {
		t.Errorf("culturemap added = %d, want 1", byName["culturemap"].Added)
	}
}

func TestRunAllIsolatesFailures(t *testing.T) {
	server := newStaticServer(t)
	os.Unsetenv("ATX_PIPELINE_TEST_TOKEN")
	cfg := testConfig(map[string]config.Source{
		"do512": {Kind: config.KindStatic, URL: server.URL + "/events/", BaseURL: server.URL},
		"predicthq": {
			Kind:     config.KindAPI,
			URL:      "https://api.events.test/v1/events/",
			TokenEnv: "ATX_PIPELINE_TEST_TOKEN",
		},
	})
	p := New(cfg, storage.NewMemory())

	results, err := p.RunAll(context.Background())
	if err == nil {
		t.Error("expected the credential error to be reported")
	}
	var found bool
	for _, res := range results {
		if res.Source == "do512" && res.Added == 3 {
			found = true
		}
	}
	if !found {
		t.Error("healthy source should complete despite the failing one")
	}
	if err != nil && !strings.Contains(err.Error(), "predicthq") {
		t.Errorf("joined error should name the failing source: %v", err)
	}
}
