// Package api defines the operation contract every resource backend must
// satisfy, together with the in-memory reference backend, a SQLite backend
// and an instrumenting decorator.
package api

import (
	"context"

	"github.com/localrivet/resourcemcp/internal/record"
)

// CreateResult is returned by Create.
type CreateResult struct {
	ID string `json:"id"`
}

// API is the unified interface for all data operations. Every implementation
// must report absent ids with an errortypes.APIError of kind NOT_FOUND and
// must never fail List for an unknown collection.
type API interface {
	// Create inserts data as a new record of collection under a freshly
	// generated id. An id supplied in data is overwritten.
	Create(ctx context.Context, collection string, data record.Record) (CreateResult, error)

	// Get returns the record stored under id.
	Get(ctx context.Context, collection, id string) (record.Record, error)

	// List returns the records of collection matching query, in insertion
	// order. A nil or empty query returns the whole collection.
	List(ctx context.Context, collection string, query record.Query) ([]record.Record, error)

	// Update shallow-merges data over the stored record. The id is immutable.
	Update(ctx context.Context, collection, id string, data record.Record) error

	// Delete removes the record permanently.
	Delete(ctx context.Context, collection, id string) error
}

// Closer is implemented by backends holding resources that must be released.
type Closer interface {
	Close() error
}

// Close releases a's resources when it holds any.
func Close(a API) error {
	if c, ok := a.(Closer); ok {
		return c.Close()
	}
	return nil
}
