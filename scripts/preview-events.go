package main

import (
	"context"
	"fmt"
	"os"

	"github.com/atxevents/atx-events/internal/adapter"
	"github.com/atxevents/atx-events/internal/normalize"
)

func main() {
	// Parse a captured listing page and show what the normalizer makes of it.
	path := "testdata/fixtures/do512_page1.html"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	body, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading fixture: %v\n", err)
		os.Exit(1)
	}

	a := adapter.NewStaticListing("do512", "https://do512.com")
	doc, err := a.ParseDocument("https://do512.com/events", body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing page: %v\n", err)
		os.Exit(1)
	}

	items := a.ExtractItems(context.Background(), doc)
	fmt.Printf("Extracted %d raw items from %s\n\n", len(items), path)

	n := normalize.New(nil)
	for _, raw := range items {
		evt, skip := n.Normalize(raw, "do512")
		if skip != nil {
			fmt.Printf("SKIPPED  %-40s (%s)\n", raw.Title, skip.Reason)
			continue
		}
		fmt.Printf("OK       %-40s %s @ %s\n", evt.Title,
			evt.StartDateTime.Format("2006-01-02 15:04"), evt.Venue)
	}

	if next, ok := a.ExtractNextLink(doc); ok {
		fmt.Printf("\nNext page: %s\n", next)
	}
}
