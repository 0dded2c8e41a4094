// Package records is the indexed record store: a tabular, filterable mirror
// of the snapshot posts. It is only ever written from snapshots.
package records

import (
	"context"

	"github.com/dmitrijs2005/govsync/internal/server/models"
)

type Repository interface {
	// Upsert inserts or replaces records keyed by (PostID, CreationDate).
	Upsert(ctx context.Context, recs []models.IndexedRecord) error
	// Query returns the records matching f, newest first.
	Query(ctx context.Context, f Filter) ([]models.IndexedRecord, error)
}
