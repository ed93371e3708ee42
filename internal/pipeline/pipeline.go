// Package pipeline wires one source's adapter, traversal, normalization,
// and ingestion into a single run, and fans out across sources with a
// bounded worker pool.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/atxevents/atx-events/internal/adapter"
	"github.com/atxevents/atx-events/internal/browser"
	"github.com/atxevents/atx-events/internal/config"
	"github.com/atxevents/atx-events/internal/event"
	"github.com/atxevents/atx-events/internal/fetch"
	"github.com/atxevents/atx-events/internal/ingest"
	"github.com/atxevents/atx-events/internal/logger"
	"github.com/atxevents/atx-events/internal/normalize"
	"github.com/atxevents/atx-events/internal/traverse"
)

// Renderer is the browser session runner contract, extracted so tests can
// substitute a canned snapshot.
type Renderer interface {
	Render(ctx context.Context, url string, policy browser.ScrollPolicy) (string, error)
}

// SourceResult summarizes one source run. Partial failures do not raise
// errors; they show up as Complete=false with whatever was gathered.
type SourceResult struct {
	Source   string        `json:"source"`
	Events   []event.Event `json:"events,omitempty"`
	Added    int           `json:"added"`
	Skipped  int           `json:"skipped"`
	Dropped  int           `json:"dropped"`
	Complete bool          `json:"complete"`
}

// Pipeline runs configured sources end to end. Fields are exported so the
// command layer and tests can swap collaborators.
type Pipeline struct {
	Config     *config.Config
	Fetcher    *fetch.Fetcher
	Engine     *traverse.Engine
	Renderer   Renderer
	Normalizer *normalize.Normalizer
	Store      ingest.Store
}

// New wires a pipeline from configuration with production collaborators.
func New(cfg *config.Config, store ingest.Store) *Pipeline {
	fetcher := fetch.New(fetch.Config{
		Timeout:        cfg.HTTP.Timeout.Std(),
		MaxAttempts:    cfg.HTTP.MaxAttempts,
		InitialBackoff: cfg.HTTP.InitialBackoff.Std(),
		UserAgent:      cfg.HTTP.UserAgent,
	})
	return &Pipeline{
		Config:     cfg,
		Fetcher:    fetcher,
		Engine:     traverse.New(fetcher, cfg.MaxPages),
		Renderer:   browser.NewRunner(cfg.HTTP.UserAgent),
		Normalizer: normalize.New(nil),
		Store:      store,
	}
}

// newAdapter builds the adapter variant for one configured source.
// Credential resolution happens here, before any network activity.
func (p *Pipeline) newAdapter(name string, src config.Source) (adapter.Adapter, string, error) {
	switch src.Kind {
	case config.KindStatic:
		return adapter.NewStaticListing(name, src.BaseURL), src.URL, nil
	case config.KindDetail:
		return adapter.NewDetailPage(name, p.Fetcher), src.URL, nil
	case config.KindFeed:
		return adapter.NewFeed(name), src.URL, nil
	case config.KindAPI:
		token, err := src.Token()
		if err != nil {
			return nil, "", err
		}
		api := adapter.NewRemoteAPI(name, src.URL, token, src.Query, src.PageSize)
		return api, api.StartURL(), nil
	case config.KindBrowser:
		return adapter.NewBrowserListing(name), src.URL, nil
	default:
		return nil, "", fmt.Errorf("source %s: unknown kind %q", name, src.Kind)
	}
}

// RunSource executes one source end to end. The returned error is non-nil
// only for configuration or storage failures; network-level trouble is
// reported through Complete=false.
func (p *Pipeline) RunSource(ctx context.Context, name string) (SourceResult, error) {
	res := SourceResult{Source: name, Complete: true}

	src, ok := p.Config.Sources[name]
	if !ok {
		return res, fmt.Errorf("unknown source %q", name)
	}
	a, startURL, err := p.newAdapter(name, src)
	if err != nil {
		return res, err
	}

	started := time.Now()
	raws, complete := p.gather(ctx, a, src, startURL)
	res.Complete = complete
	logger.RecordTiming("source."+name, time.Since(started))

	for _, raw := range raws {
		evt, skip := p.Normalizer.Normalize(raw, name)
		if skip != nil {
			res.Dropped++
			logger.Warn("incomplete event information, item dropped", logger.Fields{
				"source": name,
				"reason": skip.Reason,
				"title":  skip.Raw.Title,
			})
			continue
		}
		res.Events = append(res.Events, evt)
	}

	ingested, err := ingest.Ingest(ctx, res.Events, p.Store)
	res.Added = ingested.Added
	res.Skipped = ingested.Skipped
	if err != nil {
		return res, err
	}

	logger.Info("source run finished", logger.Fields{
		"source":   name,
		"events":   len(res.Events),
		"added":    res.Added,
		"skipped":  res.Skipped,
		"dropped":  res.Dropped,
		"complete": res.Complete,
	})
	return res, nil
}

// gather collects raw items either through the pagination engine or, for
// browser sources, from a single rendered snapshot.
func (p *Pipeline) gather(ctx context.Context, a adapter.Adapter, src config.Source, startURL string) ([]adapter.RawItem, bool) {
	if src.Kind == config.KindBrowser {
		html, err := p.Renderer.Render(ctx, src.URL, browser.DefaultScrollPolicy(src.Marker))
		if err != nil {
			logger.Error("browser render failed", logger.Fields{"source": a.Name(), "url": src.URL}, err)
			return nil, false
		}
		doc, err := a.ParseDocument(src.URL, []byte(html))
		if err != nil {
			logger.Error("rendered snapshot unparseable", logger.Fields{"source": a.Name()}, err)
			return nil, false
		}
		return a.ExtractItems(ctx, doc), true
	}

	res, err := p.Engine.Run(ctx, startURL, a)
	if err != nil {
		var aborted *traverse.Aborted
		if errors.As(err, &aborted) {
			logger.Warn("traversal aborted, keeping partial results", logger.Fields{
				"source": a.Name(),
				"url":    aborted.URL,
				"items":  len(res.Items),
			})
			return res.Items, false
		}
		logger.Error("traversal failed", logger.Fields{"source": a.Name()}, err)
		return res.Items, false
	}
	return res.Items, res.Complete
}

// RunAll executes every configured source through a worker pool. One
// source's failure never aborts the others; errors are joined into the
// returned error after all runs finish.
func (p *Pipeline) RunAll(ctx context.Context) ([]SourceResult, error) {
	names := p.Config.SourceNames()
	results := make([]SourceResult, len(names))
	errs := make([]error, len(names))

	var g errgroup.Group
	g.SetLimit(p.Config.Workers)
	for i, name := range names {
		g.Go(func() error {
			res, err := p.RunSource(ctx, name)
			results[i] = res
			if err != nil {
				errs[i] = fmt.Errorf("source %s: %w", name, err)
				logger.Error("source run failed", logger.Fields{"source": name}, err)
			}
			return nil
		})
	}
	g.Wait()

	return results, errors.Join(errs...)
}
