package adapter

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/atxevents/atx-events/internal/fetch"
	"github.com/atxevents/atx-events/internal/logger"
)

// ticketMarker distinguishes a ticket-purchase slot from a venue slot in
// the ambiguous detail block.
const ticketMarker = "Get Tickets"

// DetailPage scrapes a paginated listing whose items only carry links; the
// real fields live on a per-event detail page fetched separately (the
// heyaustin-style source).
type DetailPage struct {
	name    string
	fetcher *fetch.Fetcher
}

// NewDetailPage creates the adapter. The fetcher is used for the per-item
// detail page requests.
func NewDetailPage(name string, f *fetch.Fetcher) *DetailPage {
	return &DetailPage{name: name, fetcher: f}
}

func (d *DetailPage) Name() string { return d.name }

func (d *DetailPage) ParseDocument(pageURL string, body []byte) (Document, error) {
	return parseHTML(pageURL, body)
}

// ExtractItems follows each listing link and extracts the detail page
// fields. A failed or malformed detail page drops that item only.
func (d *DetailPage) ExtractItems(ctx context.Context, doc Document) []RawItem {
	hd, ok := doc.(*htmlDocument)
	if !ok {
		return nil
	}

	var items []RawItem
	hd.doc.Find("div.fbe_col_title a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		link := resolveURL(hd.url, href)

		item, ok := d.extractDetail(ctx, link)
		if !ok {
			return
		}
		items = append(items, item)
	})
	return items
}

// extractDetail fetches one detail page and pulls the event fields out of
// its four-slot detail block.
func (d *DetailPage) extractDetail(ctx context.Context, link string) (RawItem, bool) {
	body, err := d.fetcher.Fetch(ctx, link)
	if err != nil {
		logger.Warn("detail page fetch failed, skipping item", logger.Fields{
			"source": d.name,
			"url":    link,
		})
		return RawItem{}, false
	}

	page, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		logger.Warn("detail page unparseable, skipping item", logger.Fields{
			"source": d.name,
			"url":    link,
		})
		return RawItem{}, false
	}

	title := strings.TrimSpace(page.Find("div.fbecol-8-12 h1").First().Text())

	details := page.Find("div.detail_items div")
	if details.Length() != 4 {
		logger.Warn("detail block malformed, skipping item", logger.Fields{
			"source": d.name,
			"url":    link,
			"fields": details.Length(),
		})
		return RawItem{}, false
	}

	slots := make([]string, 0, 4)
	details.Each(func(_ int, sel *goquery.Selection) {
		slots = append(slots, strings.TrimSpace(sel.Text()))
	})
	date, timeText, slot3, slot4 := slots[0], slots[1], slots[2], slots[3]

	// Slot 3 is either the venue or a ticket link; when it is the ticket
	// link the venue moved to slot 4.
	venue := slot3
	if strings.Contains(slot3, ticketMarker) {
		venue = slot4
	}

	return RawItem{
		Title:    title,
		DateText: date,
		TimeText: startBound(timeText),
		Venue:    venue,
		Link:     link,
	}, true
}

// startBound reduces a time range ("7:00 - 9:00 PM") to its start bound.
// A start bound missing its AM/PM marker inherits it from the end bound.
func startBound(timeText string) string {
	timeText = strings.TrimSpace(timeText)
	if !strings.Contains(timeText, "-") {
		return timeText
	}

	parts := strings.SplitN(timeText, "-", 2)
	start := strings.TrimSpace(parts[0])
	end := strings.TrimSpace(parts[1])

	upper := strings.ToUpper(start)
	if strings.HasSuffix(upper, "AM") || strings.HasSuffix(upper, "PM") {
		return start
	}
	endUpper := strings.ToUpper(end)
	for _, marker := range []string{"AM", "PM"} {
		if strings.HasSuffix(endUpper, marker) {
			return start + " " + marker
		}
	}
	return start
}

func (d *DetailPage) ExtractNextLink(doc Document) (string, bool) {
	hd, ok := doc.(*htmlDocument)
	if !ok {
		return "", false
	}
	href, ok := hd.doc.Find("a.next.page-numbers").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", false
	}
	return resolveURL(hd.url, href), true
}
