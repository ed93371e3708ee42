package adapter

import (
	"context"
	"os"
	"testing"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", name, err)
	}
	return data
}

func TestStaticListingExtractItems(t *testing.T) {
	a := NewStaticListing("do512", "https://do512.test")

	doc, err := a.ParseDocument("https://do512.test/events/", loadFixture(t, "do512_page1.html"))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}

	items := a.ExtractItems(context.Background(), doc)
	if len(items) != 6 {
		t.Fatalf("expected 6 items, got %d", len(items))
	}

	first := items[0]
	if first.Title != "Moonlight Serenade" {
		t.Errorf("title = %q", first.Title)
	}
	if first.DateText != "2024-09-29T18:30" {
		t.Errorf("expected zone-stripped date, got %q", first.DateText)
	}
	if first.Venue != "The Continental Club" {
		t.Errorf("venue = %q", first.Venue)
	}
	if first.Category != "music" {
		t.Errorf("category = %q", first.Category)
	}
	if first.Link != "https://do512.test/events/2024/9/29/moonlight-serenade" {
		t.Errorf("link = %q", first.Link)
	}

	// The TBD item keeps its slot but carries no date; the normalizer
	// will skip it.
	tbd := items[3]
	if tbd.Title != "Secret Show (Date TBD)" {
		t.Errorf("unexpected TBD item title: %q", tbd.Title)
	}
	if tbd.DateText != "" {
		t.Errorf("TBD item should have empty DateText, got %q", tbd.DateText)
	}
}

func TestStaticListingNextLink(t *testing.T) {
	a := NewStaticListing("do512", "https://do512.test")

	doc, err := a.ParseDocument("https://do512.test/events/", loadFixture(t, "do512_page1.html"))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}

	next, ok := a.ExtractNextLink(doc)
	if !ok {
		t.Fatal("expected a next link")
	}
	if next != "https://do512.test/events/page/2" {
		t.Errorf("next link = %q", next)
	}
}

func TestStaticListingLastPage(t *testing.T) {
	a := NewStaticListing("do512", "https://do512.test")

	doc, err := a.ParseDocument("https://do512.test/events/page/9", loadFixture(t, "do512_last_page.html"))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}

	if items := a.ExtractItems(context.Background(), doc); len(items) != 1 {
		t.Errorf("expected 1 item on last page, got %d", len(items))
	}
	if _, ok := a.ExtractNextLink(doc); ok {
		t.Error("last page should have no next link")
	}
}
