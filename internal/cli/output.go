package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/atxevents/atx-events/internal/pipeline"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	CheckedAt    time.Time               `json:"checked_at"`
	DryRun       bool                    `json:"dry_run,omitempty"`
	Sources      []pipeline.SourceResult `json:"sources"`
	TotalAdded   int                     `json:"total_added"`
	TotalSkipped int                     `json:"total_skipped"`
	TotalDropped int                     `json:"total_dropped"`
	Complete     bool                    `json:"complete"`
}

// NewOutputResult aggregates per-source results into one report.
func NewOutputResult(results []pipeline.SourceResult, dryRun bool) *OutputResult {
	out := &OutputResult{
		CheckedAt: time.Now().UTC(),
		DryRun:    dryRun,
		Sources:   results,
		Complete:  true,
	}
	for _, res := range results {
		out.TotalAdded += res.Added
		out.TotalSkipped += res.Skipped
		out.TotalDropped += res.Dropped
		if !res.Complete {
			out.Complete = false
		}
	}
	return out
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	for _, res := range result.Sources {
		status := "ok"
		if !res.Complete {
			status = "partial"
		}
		fmt.Fprintf(w, "%s: %d added, %d skipped, %d dropped (%s)\n",
			res.Source, res.Added, res.Skipped, res.Dropped, status)

		if verbose {
			for _, evt := range res.Events {
				when := "unscheduled"
				if !evt.Unscheduled() {
					when = evt.StartDateTime.Format("Mon Jan 2 2006 3:04 PM")
				}
				fmt.Fprintf(w, "  %s\n", evt.Title)
				fmt.Fprintf(w, "       When: %s\n", when)
				fmt.Fprintf(w, "       Venue: %s\n", evt.Venue)
				if evt.EventLink != "" {
					fmt.Fprintf(w, "       Link: %s\n", evt.EventLink)
				}
			}
		}
	}

	fmt.Fprintf(w, "\nTotal: %d added, %d skipped, %d dropped across %d sources\n",
		result.TotalAdded, result.TotalSkipped, result.TotalDropped, len(result.Sources))
	if result.DryRun {
		fmt.Fprintln(w, "Dry run: nothing was persisted.")
	}
	return nil
}
