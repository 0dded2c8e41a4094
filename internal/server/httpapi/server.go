// Package httpapi is the REST surface of the sync engine: on-demand
// collection refreshes, the record-store mirror trigger and filtered record
// queries, served with gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/govsync/internal/logging"
	"github.com/dmitrijs2005/govsync/internal/server/models"
	"github.com/dmitrijs2005/govsync/internal/server/repositories/records"
	"github.com/dmitrijs2005/govsync/internal/server/scheduler"
	"github.com/dmitrijs2005/govsync/internal/server/services"
	"github.com/dmitrijs2005/govsync/internal/server/sources"
)

const shutdownTimeout = 10 * time.Second

// MirrorTask is the scheduled task the mirror trigger endpoint runs.
const MirrorTask = "mirror"

// Refresher is implemented by *services.SyncService.
type Refresher interface {
	Adapters() sources.Registry
	Refresh(ctx context.Context, a sources.Adapter) (services.RefreshResult, error)
}

// Records is implemented by *services.MirrorService.
type Records interface {
	Query(ctx context.Context, f records.Filter) ([]models.IndexedRecord, error)
}

// Tasks is implemented by *scheduler.Scheduler.
type Tasks interface {
	RunNow(ctx context.Context, name string) error
	Stats() []scheduler.Stats
}

type Server struct {
	address     string
	sync        Refresher
	records     Records
	tasks       Tasks
	logger      logging.Logger
	adminSecret []byte
}

// NewServer wires the handlers. An empty adminSecret leaves the trigger
// endpoints open.
func NewServer(address string, sync Refresher, recs Records, tasks Tasks, l logging.Logger, adminSecret string) *Server {
	return &Server{
		address:     address,
		sync:        sync,
		records:     recs,
		tasks:       tasks,
		logger:      l.With("module", "http_server"),
		adminSecret: []byte(adminSecret),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.health)

	api := r.Group("/api")
	api.GET("/dynamoDB/getPostsData", s.getPostsData)
	api.POST("/dynamoDB/addDataToDynamoDBTable", s.adminOnly(), s.addData)
	api.GET("/:source/:op", s.find)

	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
