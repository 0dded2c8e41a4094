package sources

import (
	"context"

	"github.com/dmitrijs2005/govsync/internal/server/models"
)

// MaxPageSize is the largest page the upstream listing endpoints serve.
const MaxPageSize = 100

// PageFunc fetches one 1-based page and reports the collection total.
type PageFunc func(ctx context.Context, page, limit int) (items []models.Post, total int, err error)

// FetchAll issues ceil(total/pageSize) sequential page requests (at least
// one) and concatenates them. Pages are never fetched in parallel.
func FetchAll(ctx context.Context, pageSize int, fn PageFunc) ([]models.Post, int, error) {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	items, total, err := fn(ctx, 1, pageSize)
	if err != nil {
		return nil, 0, err
	}

	pages := (total + pageSize - 1) / pageSize
	all := make([]models.Post, 0, total)
	all = append(all, items...)

	for page := 2; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		items, _, err := fn(ctx, page, pageSize)
		if err != nil {
			return nil, 0, err
		}
		all = append(all, items...)
	}
	return all, total, nil
}
