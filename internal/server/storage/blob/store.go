// Package blob is the key/blob persistence layer behind the snapshot store
// and the per-post document folders. Whole objects are written at once, so a
// concurrent reader sees either the old or the new version of a key.
package blob

import "context"

// Store is a flat key space of immutable-per-write blobs.
type Store interface {
	// Get returns the blob at key, or common.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes body at key, replacing any previous blob.
	Put(ctx context.Context, key string, body []byte, contentType string) error
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// List returns every key under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}
