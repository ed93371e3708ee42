package adapter

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Feed consumes an RSS/Atom syndication feed (the atxorg source). Feeds
// carry no reliable start time, so DateText is left empty and the
// normalizer applies the unscheduled sentinel.
type Feed struct {
	name   string
	parser *gofeed.Parser
}

// NewFeed creates the adapter.
func NewFeed(name string) *Feed {
	return &Feed{name: name, parser: gofeed.NewParser()}
}

func (f *Feed) Name() string { return f.name }

type feedDocument struct {
	url  string
	feed *gofeed.Feed
}

func (d *feedDocument) SourceURL() string { return d.url }

func (f *Feed) ParseDocument(pageURL string, body []byte) (Document, error) {
	feed, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing feed from %s: %w", pageURL, err)
	}
	return &feedDocument{url: pageURL, feed: feed}, nil
}

func (f *Feed) ExtractItems(_ context.Context, doc Document) []RawItem {
	fd, ok := doc.(*feedDocument)
	if !ok {
		return nil
	}

	items := make([]RawItem, 0, len(fd.feed.Items))
	for _, entry := range fd.feed.Items {
		items = append(items, RawItem{
			Title:    entry.Title,
			Category: strings.Join(entry.Categories, " "),
			Link:     entry.Link,
		})
	}
	return items
}

// ExtractNextLink always reports no next page; feeds are single documents.
func (f *Feed) ExtractNextLink(Document) (string, bool) {
	return "", false
}
