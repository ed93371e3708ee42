// Package event defines the canonical event record moving through the
// ingestion pipeline and into storage.
//
// Every source adapter produces raw field tuples in its own shape; the
// normalizer reconciles those into Event values. An Event is identified by
// its dedup key, the exact (title, start_datetime) pair, which is how the
// ingestion engine decides whether a record is already stored.
package event
