// Package store persists run artifacts. The orchestrator treats
// persistence as best-effort: a store failure is logged and the run
// report is still produced, so implementations should fail loudly but
// never be load-bearing.
package store

import (
	"context"
)

// Record is one schemaless document.
type Record = map[string]any

// Filter selects documents whose fields equal the given values. An
// empty filter matches everything.
type Filter map[string]any

// QueryOptions bounds and orders a query.
type QueryOptions struct {
	// Limit caps the number of returned records, 0 for no cap.
	Limit int
	// Newest returns records in reverse insertion order when true.
	Newest bool
}

// DocumentStore persists and retrieves schemaless records grouped by
// collection name.
type DocumentStore interface {
	// Save appends records to a collection, creating it on first use.
	Save(ctx context.Context, collection string, records ...Record) error

	// Query returns records from a collection matching the filter.
	Query(ctx context.Context, collection string, filter Filter, opts QueryOptions) ([]Record, error)

	// Close releases any underlying resources.
	Close() error
}
