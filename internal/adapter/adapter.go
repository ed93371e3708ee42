package adapter

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// RawItem is the raw field tuple one listing item exposes before
// normalization. Fields are source-specific strings and may be empty;
// nothing here is persisted.
type RawItem struct {
	Title    string
	DateText string
	TimeText string
	Venue    string
	Category string
	Link     string
}

// Document is one fetched page in whatever parsed shape the source serves.
// Each adapter produces and consumes its own concrete document type.
type Document interface {
	// SourceURL is the URL the document was fetched from.
	SourceURL() string
}

// Adapter is the capability contract every source variant implements.
// The traversal engine drives it page by page; it holds no cross-page state.
type Adapter interface {
	// Name identifies the source, and selects its normalization rules.
	Name() string

	// ParseDocument parses a fetched body into this adapter's document type.
	ParseDocument(pageURL string, body []byte) (Document, error)

	// ExtractItems returns the raw field tuples found on the page. Items
	// with missing fields are returned as-is; the normalizer decides their
	// fate. Adapters that follow per-item links may block on the context.
	ExtractItems(ctx context.Context, doc Document) []RawItem

	// ExtractNextLink returns the absolute URL of the next page, if any.
	ExtractNextLink(doc Document) (string, bool)
}

// HeaderProvider is implemented by adapters whose source requires extra
// request headers, such as the bearer-token API source.
type HeaderProvider interface {
	Headers() http.Header
}

// htmlDocument wraps a goquery-parsed page, shared by the HTML adapters.
type htmlDocument struct {
	url string
	doc *goquery.Document
}

func (d *htmlDocument) SourceURL() string { return d.url }

func parseHTML(pageURL string, body []byte) (*htmlDocument, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from %s: %w", pageURL, err)
	}
	return &htmlDocument{url: pageURL, doc: doc}, nil
}

// resolveURL makes href absolute against the page it appeared on.
func resolveURL(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
