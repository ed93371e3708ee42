// Package storage provides the storage collaborators behind the ingestion
// engine's Exists/Insert contract: a Postgres-backed store for production
// runs and an in-memory store for tests and dry runs.
package storage
