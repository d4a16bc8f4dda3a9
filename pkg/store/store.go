package store

import (
	"context"

	"github.com/supportkit/kbase/pkg/record"
)

// Store is the durable backend for records. Implementations must be safe for
// concurrent use; each call is self-contained.
type Store interface {
	// Get retrieves a record by id. An absent id returns (nil, nil), not an
	// error.
	Get(ctx context.Context, id string) (*record.Record, error)
	// Upsert inserts or replaces a record, keyed by its ID.
	Upsert(ctx context.Context, rec *record.Record) error
	// Delete removes a record by id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error
	// QueryByKind returns all records of the given kind, in no particular
	// order.
	QueryByKind(ctx context.Context, kind record.Kind) ([]*record.Record, error)
	// Count returns the total number of stored records across all kinds.
	Count(ctx context.Context) (int64, error)
	// SearchText returns records whose title, description or summary contains
	// term (case-insensitive). An empty kind matches all kinds.
	SearchText(ctx context.Context, term string, kind record.Kind) ([]*record.Record, error)
}
