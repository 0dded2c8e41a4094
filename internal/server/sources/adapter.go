// Package sources fetches governance content from upstream APIs and
// normalizes it into models.Post. There is one Adapter per collection; all
// of them share only the Post output contract.
package sources

import (
	"context"

	"github.com/dmitrijs2005/govsync/internal/server/models"
)

// FetchResult is the outcome of fetching one full collection.
//
// A failed fetch carries no posts and Failed=true. Callers must not read it
// as "upstream now has zero items".
type FetchResult struct {
	Posts  []models.Post
	Count  int
	Failed bool
	Err    error
}

func failed(err error) FetchResult {
	return FetchResult{Failed: true, Err: err}
}

type Adapter interface {
	Collection() models.Collection
	// Fetch pulls the whole collection. It never returns an error; upstream
	// failures are reported through FetchResult.Failed.
	Fetch(ctx context.Context) FetchResult
	// ChangeKey is the field the diff engine compares between cycles.
	ChangeKey(p models.Post) string
}

// Registry is the set of configured adapters, in scheduling order.
type Registry []Adapter

// Group returns the adapters of one group.
func (r Registry) Group(g models.Group) Registry {
	var out Registry
	for _, a := range r {
		if a.Collection().Group == g {
			out = append(out, a)
		}
	}
	return out
}

// Kind returns the adapters of one kind.
func (r Registry) Kind(k models.Kind) Registry {
	var out Registry
	for _, a := range r {
		if a.Collection().Kind == k {
			out = append(out, a)
		}
	}
	return out
}

// Find returns the adapter of the named collection in group g.
func (r Registry) Find(g models.Group, name string) (Adapter, bool) {
	for _, a := range r {
		if c := a.Collection(); c.Group == g && c.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Collections lists the collections of every adapter.
func (r Registry) Collections() []models.Collection {
	out := make([]models.Collection, 0, len(r))
	for _, a := range r {
		out = append(out, a.Collection())
	}
	return out
}
