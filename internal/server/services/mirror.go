package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/govsync/internal/dbx"
	"github.com/dmitrijs2005/govsync/internal/logging"
	"github.com/dmitrijs2005/govsync/internal/server/fanout"
	"github.com/dmitrijs2005/govsync/internal/server/models"
	"github.com/dmitrijs2005/govsync/internal/server/repositories/records"
	"github.com/dmitrijs2005/govsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/govsync/internal/server/snapshots"
)

// MirrorReport counts what a full mirror wrote.
type MirrorReport struct {
	Collections int
	Records     int
}

// MirrorService replays snapshots into the indexed record store and serves
// queries against it.
type MirrorService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       *snapshots.Store
	collections []models.Collection
	log         logging.Logger
}

func NewMirrorService(db *sql.DB, rm repomanager.RepositoryManager, store *snapshots.Store, collections []models.Collection, log logging.Logger) *MirrorService {
	return &MirrorService{
		db:          db,
		repomanager: rm,
		store:       store,
		collections: collections,
		log:         log.With("module", "mirror"),
	}
}

// Mirror upserts every stored snapshot. Collections without a snapshot are
// skipped; a failing collection does not stop the others.
func (s *MirrorService) Mirror(ctx context.Context) (MirrorReport, error) {
	var (
		r    MirrorReport
		errs []error
	)
	for _, c := range s.collections {
		snap, err := s.store.Load(ctx, c)
		if err != nil {
			errs = append(errs, fmt.Errorf("load snapshot %s: %w", c, err))
			continue
		}
		if snap == nil {
			continue
		}
		if err := s.MirrorSnapshot(ctx, c, snap); err != nil {
			errs = append(errs, err)
			continue
		}
		r.Collections++
		r.Records += len(snap.Posts)
	}

	s.log.Info(ctx, "mirror finished", "collections", r.Collections, "records", r.Records, "errors", len(errs))
	return r, errors.Join(errs...)
}

// MirrorSnapshot upserts one snapshot in a single transaction.
func (s *MirrorService) MirrorSnapshot(ctx context.Context, c models.Collection, snap *models.Snapshot) error {
	recs := make([]models.IndexedRecord, 0, len(snap.Posts))
	for _, p := range snap.Posts {
		recs = append(recs, ToRecord(c, p))
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Records(tx).Upsert(ctx, recs)
	})
	if err != nil {
		return fmt.Errorf("mirror %s: %w", c, err)
	}
	return nil
}

// Query runs a filtered read against the record store.
func (s *MirrorService) Query(ctx context.Context, f records.Filter) ([]models.IndexedRecord, error) {
	return s.repomanager.Records(s.db).Query(ctx, f)
}

// ToRecord derives the tabular mirror of a post.
func ToRecord(c models.Collection, p models.Post) models.IndexedRecord {
	var links []string
	for _, id := range fanout.ExtractDocumentIDs(p.Text()) {
		links = append(links, fanout.DocumentURL(id))
	}
	for _, id := range fanout.ExtractFolderIDs(p.Text()) {
		links = append(links, fanout.FolderURL(id))
	}

	return models.IndexedRecord{
		PostID:          p.ID,
		CreationDate:    p.CreationDate,
		Collection:      c.String(),
		Title:           p.Title,
		Type:            p.Type,
		SubType:         p.SubType,
		Categories:      p.Categories,
		RequestedAmount: p.RequestedAmount,
		Reward:          p.Reward,
		Submitter:       p.Submitter,
		VectorFileID:    p.VectorFileID,
		DocsLinks:       links,
	}
}
