package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/govsync/internal/logging"
	"github.com/dmitrijs2005/govsync/internal/server/models"
	"github.com/dmitrijs2005/govsync/internal/server/sources"
	"github.com/dmitrijs2005/govsync/internal/server/vectorsync"
)

// VectorSyncer is implemented by *vectorsync.Syncer.
type VectorSyncer interface {
	Sync(ctx context.Context, t vectorsync.Target) (vectorsync.Report, error)
}

type VectorService struct {
	adapters sources.Registry
	syncer   VectorSyncer
	log      logging.Logger
}

func NewVectorService(adapters sources.Registry, syncer VectorSyncer, log logging.Logger) *VectorService {
	return &VectorService{adapters: adapters, syncer: syncer, log: log.With("module", "vector")}
}

// SyncGroup runs the vector sync over every collection of a group and sums
// the reports.
func (s *VectorService) SyncGroup(ctx context.Context, g models.Group) (vectorsync.Report, error) {
	var (
		total vectorsync.Report
		errs  []error
	)
	for _, a := range s.adapters.Group(g) {
		r, err := s.syncer.Sync(ctx, vectorsync.Target{Collection: a.Collection(), ChangeKey: a.ChangeKey})
		if err != nil {
			s.log.Error(ctx, "vector sync failed", "collection", a.Collection().String(), "error", err)
			errs = append(errs, err)
			continue
		}
		total.Pending += r.Pending
		total.Batches += r.Batches
		total.Submitted += r.Submitted
		total.Failed += r.Failed
		total.Stamped += r.Stamped
	}
	return total, errors.Join(errs...)
}
