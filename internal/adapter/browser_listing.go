package adapter

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// BrowserListing extracts items from the rendered DOM snapshot of a
// JavaScript-dependent, infinite-scroll listing (the culturemap source).
// The snapshot comes from the browser session runner; by the time it
// reaches this adapter the scrolling already loaded every card, so there
// is no pagination to follow.
type BrowserListing struct {
	name string
}

// NewBrowserListing creates the adapter.
func NewBrowserListing(name string) *BrowserListing {
	return &BrowserListing{name: name}
}

func (b *BrowserListing) Name() string { return b.name }

func (b *BrowserListing) ParseDocument(pageURL string, body []byte) (Document, error) {
	return parseHTML(pageURL, body)
}

func (b *BrowserListing) ExtractItems(_ context.Context, doc Document) []RawItem {
	hd, ok := doc.(*htmlDocument)
	if !ok {
		return nil
	}

	var items []RawItem
	hd.doc.Find("div.grid-flow-row-dense a").Each(func(_ int, sel *goquery.Selection) {
		item := RawItem{
			Title: strings.TrimSpace(sel.Find("div.headline").First().Text()),
			Venue: strings.TrimSpace(sel.Find("div.location").First().Text()),
		}
		if href, ok := sel.Attr("href"); ok {
			item.Link = resolveURL(hd.url, href)
		}
		if dt, ok := sel.Find("time").First().Attr("datetime"); ok {
			item.DateText = zoneSuffix.ReplaceAllString(strings.TrimSpace(dt), "")
		}
		// Cards without a headline are navigation links, not events.
		if item.Title == "" {
			return
		}
		items = append(items, item)
	})
	return items
}

// ExtractNextLink always reports no next page; scrolling replaced paging.
func (b *BrowserListing) ExtractNextLink(Document) (string, bool) {
	return "", false
}
