// Package adapter contains the per-source extraction logic that turns raw
// listing markup, feed entries, or API payloads into raw field tuples.
//
// Every source is a variant of the same two-capability contract: extract
// the items on a page and extract the next-page link, if any. The traversal
// engine drives paginated adapters; single-document sources (the feed and
// the browser-rendered listing) simply never report a next link. Adding a
// sixth source means adding a variant, not touching shared traversal logic.
package adapter
