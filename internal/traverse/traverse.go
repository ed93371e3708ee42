// Package traverse walks paginated sources page by page.
//
// The traversal is an iterative loop over fetch, extract-items, and
// extract-next-link cycles. Two independent bounds guarantee termination: a
// visited-URL set that detects next-link cycles, and a hard page cap. A
// fetch or parse failure after retries aborts only the current traversal
// and still hands back everything gathered so far.
package traverse

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/atxevents/atx-events/internal/adapter"
	"github.com/atxevents/atx-events/internal/fetch"
	"github.com/atxevents/atx-events/internal/logger"
)

// DefaultMaxPages is a generous upper bound on pages per traversal run,
// independent of cycle detection.
const DefaultMaxPages = 50

// Result carries the items accumulated by one traversal run. Complete is
// false when the run was cut short by a fetch or parse failure.
type Result struct {
	Items    []adapter.RawItem
	Pages    int
	Complete bool
}

// Aborted reports a traversal cut short mid-pagination. Partial results
// remain available on the Result returned alongside it.
type Aborted struct {
	Source string
	URL    string
	Cause  error
}

func (e *Aborted) Error() string {
	return fmt.Sprintf("traversal of %s aborted at %s: %v", e.Source, e.URL, e.Cause)
}

func (e *Aborted) Unwrap() error { return e.Cause }

// cursor is the traversal state for one run: the current link plus the set
// of links already walked. It is owned by exactly one Run call and
// discarded when the run ends.
type cursor struct {
	current string
	visited map[string]bool
	pages   int
}

// Engine drives pagination for any adapter. It holds no per-run state and
// is safe for concurrent use by multiple source workers.
type Engine struct {
	fetcher  *fetch.Fetcher
	maxPages int
}

// New creates a traversal engine. maxPages <= 0 selects DefaultMaxPages.
func New(f *fetch.Fetcher, maxPages int) *Engine {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Engine{fetcher: f, maxPages: maxPages}
}

// Run walks the source starting at startURL until the adapter reports no
// next link, a link repeats, or the page cap is hit. On a mid-run failure
// the partial Result is returned together with an *Aborted error.
func (e *Engine) Run(ctx context.Context, startURL string, a adapter.Adapter) (Result, error) {
	var extra http.Header
	if hp, ok := a.(adapter.HeaderProvider); ok {
		extra = hp.Headers()
	}

	cur := cursor{current: startURL, visited: make(map[string]bool)}
	res := Result{Complete: true}

	for cur.current != "" {
		if cur.visited[cur.current] {
			logger.Warn("next-link cycle detected, stopping traversal", logger.Fields{
				"source": a.Name(),
				"url":    cur.current,
			})
			break
		}
		if cur.pages >= e.maxPages {
			logger.Warn("page cap reached, stopping traversal", logger.Fields{
				"source": a.Name(),
				"pages":  cur.pages,
			})
			break
		}
		cur.visited[cur.current] = true

		started := time.Now()
		body, err := e.fetcher.FetchWithHeaders(ctx, cur.current, extra)
		if err != nil {
			res.Complete = false
			res.Pages = cur.pages
			return res, &Aborted{Source: a.Name(), URL: cur.current, Cause: err}
		}
		logger.RecordTiming("fetch."+a.Name(), time.Since(started))

		doc, err := a.ParseDocument(cur.current, body)
		if err != nil {
			res.Complete = false
			res.Pages = cur.pages
			return res, &Aborted{Source: a.Name(), URL: cur.current, Cause: err}
		}

		cur.pages++
		items := a.ExtractItems(ctx, doc)
		res.Items = append(res.Items, items...)
		logger.Debug("page traversed", logger.Fields{
			"source": a.Name(),
			"page":   cur.pages,
			"items":  len(items),
		})

		next, ok := a.ExtractNextLink(doc)
		if !ok {
			break
		}
		cur.current = next
	}

	res.Pages = cur.pages
	return res, nil
}
