// Package vectorsync submits DocumentFolder contents to the vector store.
//
// Pending documents are those absent from their folder's indexed.json and
// matching one of the eligible patterns. They are submitted in fixed-size
// batches, one batch at a time. A batch is marked in indexed.json only after
// its file batch was accepted; a failed batch stays pending for the next run
// and does not stop the batches after it.
package vectorsync

import (
	"context"
	"fmt"
	"path"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/govsync/internal/logging"
	"github.com/dmitrijs2005/govsync/internal/server/fanout"
	"github.com/dmitrijs2005/govsync/internal/server/models"
	"github.com/dmitrijs2005/govsync/internal/server/snapshots"
)

const DefaultBatchSize = 10

// Target is one collection to sync. ChangeKey identifies the current
// version of each post's own document.
type Target struct {
	Collection models.Collection
	ChangeKey  func(models.Post) string
}

type Report struct {
	Pending   int
	Batches   int
	Submitted int
	Failed    int
	Stamped   int
}

type Syncer struct {
	store     *snapshots.Store
	vs        VectorStore
	batchSize int
	patterns  []string
	log       logging.Logger
}

// New validates the eligible patterns and builds a Syncer.
func New(store *snapshots.Store, vs VectorStore, batchSize int, patterns []string, log logging.Logger) (*Syncer, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid vector file pattern %q", p)
		}
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Syncer{
		store:     store,
		vs:        vs,
		batchSize: batchSize,
		patterns:  patterns,
		log:       log.With("module", "vectorsync"),
	}, nil
}

// Eligible reports whether a folder-relative path may be indexed.
func (s *Syncer) Eligible(rel string) bool {
	for _, p := range s.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Sync submits the pending documents of t's selected folders. Only snapshot
// and listing failures are returned; batch failures are counted.
func (s *Syncer) Sync(ctx context.Context, t Target) (Report, error) {
	var r Report
	log := s.log.With("collection", t.Collection.String())

	snap, err := s.store.Load(ctx, t.Collection)
	if err != nil {
		return r, fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		log.Debug(ctx, "no snapshot yet")
		return r, nil
	}

	ids := selectFolders(snap)
	indexes := make(map[string]models.VectorIndex, len(ids))
	eligible := make(map[string][]string, len(ids))
	var pending []models.Document
	for _, id := range ids {
		idx, err := s.store.LoadVectorIndex(ctx, t.Collection, id)
		if err != nil {
			return r, fmt.Errorf("load vector index of %s: %w", id, err)
		}
		indexes[id] = idx

		docs, err := s.store.ListDocuments(ctx, t.Collection, id)
		if err != nil {
			return r, fmt.Errorf("list documents of %s: %w", id, err)
		}
		for _, d := range docs {
			if !s.Eligible(d.Rel) {
				continue
			}
			eligible[id] = append(eligible[id], d.Rel)
			if idx[d.Rel] == "" {
				pending = append(pending, d)
			}
		}
	}
	r.Pending = len(pending)

	for start := 0; start < len(pending); start += s.batchSize {
		batch := pending[start:min(start+s.batchSize, len(pending))]
		r.Batches++

		fileIDs, err := s.submit(ctx, batch)
		if err != nil {
			r.Failed += len(batch)
			log.Error(ctx, "batch failed", "batch", r.Batches, "documents", len(batch), "error", err)
			continue
		}
		r.Submitted += len(batch)
		s.mark(ctx, log, t.Collection, batch, fileIDs, indexes)
	}

	if len(ids) > 0 {
		n, err := s.stamp(ctx, t, indexes, eligible)
		if err != nil {
			log.Error(ctx, "stamp vector file ids failed", "error", err)
		}
		r.Stamped = n
	}

	log.Info(ctx, "vector sync finished",
		"folders", len(ids),
		"pending", r.Pending,
		"batches", r.Batches,
		"submitted", r.Submitted,
		"failed", r.Failed,
		"stamped", r.Stamped,
	)
	return r, nil
}

// selectFolders returns the posts whose folders are scanned: the last
// write's modified posts plus every post not yet stamped, or every post when
// the last write was a full rewrite.
func selectFolders(snap *models.Snapshot) []string {
	seen := map[string]bool{}
	var ids []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if len(snap.ModifiedIDs) == 0 {
		for _, p := range snap.Posts {
			add(p.ID)
		}
		return ids
	}
	for _, id := range snap.ModifiedIDs {
		add(id)
	}
	for _, p := range snap.Posts {
		if p.VectorFileID == "" {
			add(p.ID)
		}
	}
	return ids
}

// submit uploads every document of the batch and attaches them in one file
// batch. Any failure fails the whole batch.
func (s *Syncer) submit(ctx context.Context, batch []models.Document) ([]string, error) {
	fileIDs := make([]string, 0, len(batch))
	for _, d := range batch {
		body, err := s.store.GetDocument(ctx, d.Key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", d.Key, err)
		}
		fid, err := s.vs.UploadFile(ctx, uploadName(d), body)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", d.Key, err)
		}
		fileIDs = append(fileIDs, fid)
	}
	if _, err := s.vs.CreateFileBatch(ctx, fileIDs); err != nil {
		return nil, fmt.Errorf("create file batch: %w", err)
	}
	return fileIDs, nil
}

// uploadName keeps the extension the provider uses to pick a parser and
// makes the name unique across folders.
func uploadName(d models.Document) string {
	return fmt.Sprintf("%s-%s-%s%s", d.Collection.Name, d.PostID, uuid.NewString()[:8], path.Ext(d.Rel))
}

func (s *Syncer) mark(ctx context.Context, log logging.Logger, c models.Collection, batch []models.Document, fileIDs []string, indexes map[string]models.VectorIndex) {
	touched := map[string]bool{}
	for i, d := range batch {
		indexes[d.PostID][d.Rel] = fileIDs[i]
		touched[d.PostID] = true
	}
	for id := range touched {
		if err := s.store.SaveVectorIndex(ctx, c, id, indexes[id]); err != nil {
			log.Error(ctx, "save vector index failed", "post_id", id, "error", err)
		}
	}
}

// stamp sets Post.VectorFileID from the indexed file of each post's current
// document once every eligible document of the folder is indexed. A post
// whose folder still has pending documents is left unstamped (a stale id is
// cleared) so the next run selects it again. The snapshot is re-read so a
// refresh that ran meanwhile is not overwritten with stale posts.
func (s *Syncer) stamp(ctx context.Context, t Target, indexes map[string]models.VectorIndex, eligible map[string][]string) (int, error) {
	snap, err := s.store.Load(ctx, t.Collection)
	if err != nil || snap == nil {
		return 0, err
	}

	stamped, dirty := 0, false
	for i := range snap.Posts {
		p := &snap.Posts[i]
		idx, ok := indexes[p.ID]
		if !ok {
			continue
		}
		if !complete(idx, eligible[p.ID]) {
			if p.VectorFileID != "" {
				p.VectorFileID = ""
				dirty = true
			}
			continue
		}
		key := ""
		if t.ChangeKey != nil {
			key = t.ChangeKey(*p)
		}
		fid := idx[fanout.PostDocumentName(p.ID, key)]
		if fid == "" || fid == p.VectorFileID {
			continue
		}
		p.VectorFileID = fid
		stamped++
		dirty = true
	}
	if !dirty {
		return 0, nil
	}
	return stamped, s.store.Save(ctx, t.Collection, snap)
}

func complete(idx models.VectorIndex, rels []string) bool {
	for _, rel := range rels {
		if idx[rel] == "" {
			return false
		}
	}
	return true
}
