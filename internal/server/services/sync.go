// Package services composes the sync engine: refresh (fetch, diff, persist,
// fan-out), mirroring snapshots into the record store and vector sync.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/govsync/internal/common"
	"github.com/dmitrijs2005/govsync/internal/logging"
	"github.com/dmitrijs2005/govsync/internal/server/diff"
	"github.com/dmitrijs2005/govsync/internal/server/fanout"
	"github.com/dmitrijs2005/govsync/internal/server/models"
	"github.com/dmitrijs2005/govsync/internal/server/snapshots"
	"github.com/dmitrijs2005/govsync/internal/server/sources"
)

// SnapshotMirror refreshes the record store from one written snapshot.
type SnapshotMirror interface {
	MirrorSnapshot(ctx context.Context, c models.Collection, snap *models.Snapshot) error
}

// RefreshResult is the outcome of one refresh cycle of a collection.
type RefreshResult struct {
	Collection models.Collection
	// Skipped is set when the fetch failed; nothing was written.
	Skipped  bool
	FetchErr error
	// StorageUpdated reports whether the snapshot was rewritten.
	StorageUpdated bool
	ModifiedIDs    []string
	Posts          []models.Post
	FanOut         fanout.Report
}

type SyncService struct {
	adapters sources.Registry
	store    *snapshots.Store
	fanout   *fanout.Fanout
	mirror   SnapshotMirror
	log      logging.Logger
}

// NewSyncService builds the refresh pipeline. mirror may be nil.
func NewSyncService(adapters sources.Registry, store *snapshots.Store, f *fanout.Fanout, mirror SnapshotMirror, log logging.Logger) *SyncService {
	return &SyncService{
		adapters: adapters,
		store:    store,
		fanout:   f,
		mirror:   mirror,
		log:      log.With("module", "sync"),
	}
}

func (s *SyncService) Adapters() sources.Registry {
	return s.adapters
}

// Refresh runs fetch, diff, conditional rewrite and fan-out for one
// collection.
//
// A failed fetch skips the cycle. An unreadable snapshot is replaced. A
// failed snapshot write is returned and skips fan-out and mirroring. Fan-out
// runs after every successful fetch over the last write's modified posts, so
// documents that failed earlier are retried even when nothing changed.
func (s *SyncService) Refresh(ctx context.Context, a sources.Adapter) (RefreshResult, error) {
	c := a.Collection()
	log := s.log.With("collection", c.String())
	out := RefreshResult{Collection: c}

	res := a.Fetch(ctx)
	if res.Failed {
		log.Warn(ctx, "fetch failed, keeping stored snapshot", "error", res.Err)
		out.Skipped = true
		out.FetchErr = res.Err
		return out, nil
	}

	stored, err := s.store.Load(ctx, c)
	switch {
	case errors.Is(err, common.ErrInvalidSnapshot):
		log.Warn(ctx, "stored snapshot unreadable, rewriting", "error", err)
		stored = nil
	case err != nil:
		return out, fmt.Errorf("load snapshot %s: %w", c, err)
	}

	d := diff.Compute(res.Posts, res.Count, stored, a.ChangeKey)
	out.Posts = d.Snapshot.Posts
	out.ModifiedIDs = d.ModifiedIDs

	if d.Changed {
		if err := s.store.Save(ctx, c, d.Snapshot); err != nil {
			log.Error(ctx, "snapshot write failed, skipping fan-out", "error", err)
			return out, fmt.Errorf("save snapshot %s: %w", c, err)
		}
		out.StorageUpdated = true
		log.Info(ctx, "snapshot rewritten", "count", d.Snapshot.Count, "modified", len(d.ModifiedIDs))
	} else {
		log.Debug(ctx, "no change")
	}

	if s.fanout != nil {
		out.FanOut = s.fanout.Process(ctx, fanout.Job{
			Collection: c,
			Posts:      d.Snapshot.Posts,
			IDs:        d.Snapshot.ModifiedIDs,
			ChangeKey:  a.ChangeKey,
		})
	}

	if d.Changed && s.mirror != nil {
		if err := s.mirror.MirrorSnapshot(ctx, c, d.Snapshot); err != nil {
			log.Error(ctx, "mirror failed", "error", err)
		}
	}
	return out, nil
}

// RefreshAll refreshes each adapter in turn. A failing collection does not
// stop the others; their errors are joined.
func (s *SyncService) RefreshAll(ctx context.Context, adapters sources.Registry) ([]RefreshResult, error) {
	var (
		results []RefreshResult
		errs    []error
	)
	for _, a := range adapters {
		r, err := s.Refresh(ctx, a)
		if err != nil {
			errs = append(errs, err)
		}
		results = append(results, r)
	}
	return results, errors.Join(errs...)
}

// RefreshGroup refreshes every collection of a group.
func (s *SyncService) RefreshGroup(ctx context.Context, g models.Group) ([]RefreshResult, error) {
	return s.RefreshAll(ctx, s.adapters.Group(g))
}

// RefreshKind refreshes every collection of a kind.
func (s *SyncService) RefreshKind(ctx context.Context, k models.Kind) ([]RefreshResult, error) {
	return s.RefreshAll(ctx, s.adapters.Kind(k))
}
