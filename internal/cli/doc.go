// Package cli implements the command-line interface for atx-events.
//
// The cli package provides the Cobra-based CLI for running the ingestion
// pipeline against one source or all of them, formatting results (text/JSON),
// and choosing between the Postgres store and an in-memory dry run. It
// coordinates the config, pipeline, and storage packages.
package cli
