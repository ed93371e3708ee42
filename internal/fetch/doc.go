// Package fetch retrieves remote documents over HTTP with bounded
// retry and exponential backoff.
//
// Transient failures (timeouts, connection errors, 5xx, 429) are retried up
// to a fixed attempt ceiling; other client errors fail immediately. Callers
// receive a FetchError once retries are exhausted and decide whether to
// abort or skip. The fetcher performs no caching and keeps no session state
// between requests.
package fetch
