package adapter

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/atxevents/atx-events/internal/logger"
)

// zoneSuffix matches a trailing UTC-offset on startDate attributes,
// e.g. "2024-09-29T18:30-0500". The offset is dropped so every source
// lands in the same local representation.
var zoneSuffix = regexp.MustCompile(`[+-]\d{2}:?\d{2}$`)

// StaticListing scrapes a paginated server-rendered listing page where each
// item carries its full field set inline (the do512-style source).
type StaticListing struct {
	name    string
	baseURL string
}

// NewStaticListing creates the adapter. baseURL is prepended to the
// site-relative permalinks found on listing items.
func NewStaticListing(name, baseURL string) *StaticListing {
	return &StaticListing{name: name, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *StaticListing) Name() string { return s.name }

func (s *StaticListing) ParseDocument(pageURL string, body []byte) (Document, error) {
	return parseHTML(pageURL, body)
}

func (s *StaticListing) ExtractItems(_ context.Context, doc Document) []RawItem {
	hd, ok := doc.(*htmlDocument)
	if !ok {
		return nil
	}

	var items []RawItem
	hd.doc.Find("div.ds-listing").Each(func(_ int, sel *goquery.Selection) {
		item := RawItem{
			Title: strings.TrimSpace(sel.Find("span.ds-listing-event-title-text").First().Text()),
			Venue: strings.TrimSpace(sel.Find("div.ds-venue-name span[itemprop=name]").First().Text()),
		}

		if permalink, ok := sel.Attr("data-permalink"); ok {
			item.Link = s.baseURL + permalink
		}

		// The category rides in the item's third CSS class, prefixed
		// "ds-event-".
		classes := strings.Fields(sel.AttrOr("class", ""))
		if len(classes) >= 3 {
			item.Category = strings.TrimPrefix(classes[2], "ds-event-")
		}

		// TBD events ship without the startDate meta; the normalizer
		// skips them as incomplete.
		if dt, ok := sel.Find("meta[itemprop=startDate]").First().Attr("datetime"); ok {
			item.DateText = zoneSuffix.ReplaceAllString(strings.TrimSpace(dt), "")
		} else {
			logger.Debug("listing item missing start date", logger.Fields{
				"source": s.name,
				"title":  item.Title,
			})
		}

		items = append(items, item)
	})
	return items
}

func (s *StaticListing) ExtractNextLink(doc Document) (string, bool) {
	hd, ok := doc.(*htmlDocument)
	if !ok {
		return "", false
	}
	href, ok := hd.doc.Find("a.ds-next-page").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", false
	}
	return resolveURL(hd.url, href), true
}
