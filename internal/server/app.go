// Package server wires the sync engine: storage backends, source adapters,
// fan-out, vector sync, the record-store mirror, the scheduler and the HTTP
// surface, and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/govsync/internal/logging"
	"github.com/dmitrijs2005/govsync/internal/server/config"
	"github.com/dmitrijs2005/govsync/internal/server/fanout"
	"github.com/dmitrijs2005/govsync/internal/server/httpapi"
	"github.com/dmitrijs2005/govsync/internal/server/models"
	"github.com/dmitrijs2005/govsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/govsync/internal/server/scheduler"
	"github.com/dmitrijs2005/govsync/internal/server/services"
	"github.com/dmitrijs2005/govsync/internal/server/snapshots"
	"github.com/dmitrijs2005/govsync/internal/server/sources"
	"github.com/dmitrijs2005/govsync/internal/server/storage/blob"
	"github.com/dmitrijs2005/govsync/internal/server/upstream"
	"github.com/dmitrijs2005/govsync/internal/server/vectorsync"
)

type App struct {
	config        *config.Config
	logger        logging.Logger
	db            *sql.DB
	syncService   *services.SyncService
	mirrorService *services.MirrorService
	vectorService *services.VectorService
	tasks         []scheduler.Task
	scheduler     *scheduler.Scheduler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewJSON(parseLevel(c.LogLevel))

	bs, err := newBlobStore(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}
	store := snapshots.NewStore(bs)

	rm, err := repomanager.New(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(rm.DriverName(), c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrations error: %w", err)
	}

	adapters := newAdapters(c, logger)
	timeout := upstream.WithTimeout(c.HTTPTimeout)

	docs := fanout.NewDocsClient(c.DocsBaseURL, c.DocsAPIKey, timeout)
	fo := fanout.New(store, docs, c.FanoutConcurrency, logger)

	vs := vectorsync.NewClient(c.VectorStoreBaseURL, c.VectorStoreAPIKey, c.VectorStoreID, timeout)
	syncer, err := vectorsync.New(store, vs, c.VectorBatchSize, c.VectorFilePatterns, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("vector sync init error: %w", err)
	}

	mirror := services.NewMirrorService(db, rm, store, adapters.Collections(), logger)

	app := &App{
		config:        c,
		logger:        logger,
		db:            db,
		syncService:   services.NewSyncService(adapters, store, fo, mirror, logger),
		mirrorService: mirror,
		vectorService: services.NewVectorService(adapters, syncer, logger),
	}
	app.tasks = app.buildTasks()
	if app.scheduler, err = scheduler.New(logger, app.tasks...); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("scheduler init error: %w", err)
	}
	return app, nil
}

// newBlobStore returns the S3 store, or an in-memory one on a dry run.
func newBlobStore(ctx context.Context, c *config.Config, logger logging.Logger) (blob.Store, error) {
	if c.DryRun {
		logger.Warn(ctx, "dry run: snapshots and documents are kept in memory")
		return blob.NewMemoryStore(), nil
	}
	return blob.NewS3Store(ctx, blob.S3Options{
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})
}

func newAdapters(c *config.Config, logger logging.Logger) sources.Registry {
	timeout := upstream.WithTimeout(c.HTTPTimeout)
	cat := sources.NewCategorizer(c.Categories, c.DefaultCategory)

	gov := sources.NewGovernanceClient(c.GovernanceBaseURL, c.GovernanceNetwork, timeout)
	var reg sources.Registry
	for _, t := range c.Tracks {
		reg = append(reg, sources.NewOnChainAdapter(gov, t.Name, t.ID, c.PageSize, cat, logger))
	}
	reg = append(reg, sources.NewDiscussionsAdapter(gov, c.PageSize, cat, logger))

	board := sources.NewBoardClient(c.BoardBaseURL, c.BoardAPIKey, c.BoardToken, timeout)
	if c.EventsListID != "" {
		reg = append(reg, sources.NewEventsAdapter(board, c.EventsListID, cat, logger))
	}
	if c.MeetupsBoardID != "" {
		reg = append(reg, sources.NewMeetupsAdapter(board, c.MeetupsBoardID, cat, logger))
	}
	return reg
}

// buildTasks maps every scheduled operation to its cadence. Fan-out runs
// inside each refresh.
func (app *App) buildTasks() []scheduler.Task {
	cd := app.config.Cadences
	refreshGroup := func(g models.Group) func(context.Context) error {
		return func(ctx context.Context) error {
			_, err := app.syncService.RefreshGroup(ctx, g)
			return err
		}
	}
	refreshKind := func(k models.Kind) func(context.Context) error {
		return func(ctx context.Context) error {
			_, err := app.syncService.RefreshKind(ctx, k)
			return err
		}
	}
	vectorGroup := func(g models.Group) func(context.Context) error {
		return func(ctx context.Context) error {
			_, err := app.vectorService.SyncGroup(ctx, g)
			return err
		}
	}

	return []scheduler.Task{
		{Name: "refresh-onchain", Interval: cd.OnChainRefresh, RunOnStart: true, Run: refreshGroup(models.GroupOnChain)},
		{Name: "refresh-discussions", Interval: cd.DiscussionsRefresh, RunOnStart: true, Run: refreshKind(models.KindDiscussions)},
		{Name: "refresh-events", Interval: cd.EventsRefresh, RunOnStart: true, Run: refreshKind(models.KindEvents)},
		{Name: "refresh-meetups", Interval: cd.MeetupsRefresh, RunOnStart: true, Run: refreshKind(models.KindMeetups)},
		{Name: "vector-onchain", Interval: cd.OnChainVectorSync, Run: vectorGroup(models.GroupOnChain)},
		{Name: "vector-offchain", Interval: cd.OffChainVectorSync, Run: vectorGroup(models.GroupOffChain)},
		{Name: httpapi.MirrorTask, Interval: cd.Mirror, Run: func(ctx context.Context) error {
			_, err := app.mirrorService.Mirror(ctx)
			return err
		}},
	}
}

// Operations lists the names accepted by RunOperation.
func (app *App) Operations() []string {
	names := make([]string, 0, len(app.tasks))
	for _, t := range app.tasks {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// Operations lists the operation names without building an App.
func Operations() []string {
	app := &App{config: &config.Config{}}
	app.tasks = app.buildTasks()
	return app.Operations()
}

// RunOperation runs one scheduled operation to completion in the foreground.
func (app *App) RunOperation(ctx context.Context, name string) error {
	app.logger.Info(ctx, "running operation", "operation", name)
	return app.scheduler.RunNow(ctx, name)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the scheduler and the HTTP server and blocks until a signal
// arrives or the server fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	app.scheduler.Start(ctx)

	srv := httpapi.NewServer(app.config.HTTPAddr, app.syncService, app.mirrorService, app.scheduler, app.logger, app.config.AdminSecret)

	var (
		wg     sync.WaitGroup
		srvErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if srvErr = srv.Run(ctx); srvErr != nil {
			app.logger.Error(ctx, "http server failed", "error", srvErr)
			cancelFunc()
		}
	}()

	wg.Wait()
	app.scheduler.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return srvErr
}

func (app *App) Close() error {
	return app.db.Close()
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
