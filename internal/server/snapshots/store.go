// Package snapshots persists collection list documents and the per-post
// DocumentFolders on top of a blob.Store.
package snapshots

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/govsync/internal/common"
	"github.com/dmitrijs2005/govsync/internal/server/models"
	"github.com/dmitrijs2005/govsync/internal/server/storage/blob"
)

const jsonContentType = "application/json"

type Store struct {
	blobs blob.Store
}

func NewStore(blobs blob.Store) *Store {
	return &Store{blobs: blobs}
}

// Load returns the stored snapshot of c. A missing snapshot yields (nil, nil);
// a document that is not a JSON object yields common.ErrInvalidSnapshot.
func (s *Store) Load(ctx context.Context, c models.Collection) (*models.Snapshot, error) {
	b, err := s.blobs.Get(ctx, c.SnapshotKey())
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap models.Snapshot
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil, fmt.Errorf("%w: %s: null document", common.ErrInvalidSnapshot, c.SnapshotKey())
	}
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrInvalidSnapshot, c.SnapshotKey(), err)
	}
	return &snap, nil
}

// Save replaces the snapshot of c.
func (s *Store) Save(ctx context.Context, c models.Collection, snap *models.Snapshot) error {
	if snap.ModifiedIDs == nil {
		snap.ModifiedIDs = []string{}
	}
	if snap.Posts == nil {
		snap.Posts = []models.Post{}
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.blobs.Put(ctx, c.SnapshotKey(), b, jsonContentType)
}

// LoadManifest reads docs_urls.json of a post folder; a missing manifest is empty.
func (s *Store) LoadManifest(ctx context.Context, c models.Collection, postID string) (models.Manifest, error) {
	m := models.Manifest{}
	if err := s.loadJSON(ctx, c.FolderPrefix(postID)+models.ManifestFile, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) SaveManifest(ctx context.Context, c models.Collection, postID string, m models.Manifest) error {
	return s.saveJSON(ctx, c.FolderPrefix(postID)+models.ManifestFile, m)
}

// LoadVectorIndex reads indexed.json of a post folder; a missing file is empty.
func (s *Store) LoadVectorIndex(ctx context.Context, c models.Collection, postID string) (models.VectorIndex, error) {
	idx := models.VectorIndex{}
	if err := s.loadJSON(ctx, c.FolderPrefix(postID)+models.IndexFile, &idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (s *Store) SaveVectorIndex(ctx context.Context, c models.Collection, postID string, idx models.VectorIndex) error {
	return s.saveJSON(ctx, c.FolderPrefix(postID)+models.IndexFile, idx)
}

// PutDocument writes a document at rel inside the post's folder.
func (s *Store) PutDocument(ctx context.Context, c models.Collection, postID, rel string, body []byte, contentType string) error {
	return s.blobs.Put(ctx, c.FolderPrefix(postID)+rel, body, contentType)
}

// HasDocument reports whether rel exists inside the post's folder.
func (s *Store) HasDocument(ctx context.Context, c models.Collection, postID, rel string) (bool, error) {
	return s.blobs.Exists(ctx, c.FolderPrefix(postID)+rel)
}

// GetDocument reads a document by its full key.
func (s *Store) GetDocument(ctx context.Context, key string) ([]byte, error) {
	return s.blobs.Get(ctx, key)
}

// ListDocuments lists the documents of a post folder, bookkeeping files excluded.
func (s *Store) ListDocuments(ctx context.Context, c models.Collection, postID string) ([]models.Document, error) {
	prefix := c.FolderPrefix(postID)
	keys, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(keys))
	for _, k := range keys {
		rel := strings.TrimPrefix(k, prefix)
		if rel == "" || models.IsMetadata(rel) {
			continue
		}
		docs = append(docs, models.Document{Collection: c, PostID: postID, Key: k, Rel: rel})
	}
	return docs, nil
}

func (s *Store) loadJSON(ctx context.Context, key string, v any) error {
	b, err := s.blobs.Get(ctx, key)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) saveJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.blobs.Put(ctx, key, b, jsonContentType)
}
