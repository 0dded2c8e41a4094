package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/govsync/internal/logging"
	"github.com/dmitrijs2005/govsync/internal/server/config"
	"github.com/dmitrijs2005/govsync/internal/server/models"
	"github.com/dmitrijs2005/govsync/internal/server/scheduler"
	"github.com/dmitrijs2005/govsync/internal/server/storage/blob"
)

func TestNewAdapters(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.EventsListID = "list-1"

	reg := newAdapters(cfg, logging.Discard())

	assert.Len(t, reg.Group(models.GroupOnChain), len(cfg.Tracks))
	assert.Len(t, reg.Kind(models.KindDiscussions), 1)
	assert.Len(t, reg.Kind(models.KindEvents), 1)
	assert.Empty(t, reg.Kind(models.KindMeetups))

	_, ok := reg.Find(models.GroupOnChain, "small-spender")
	assert.True(t, ok)
}

func TestOperations(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	app := &App{config: cfg, logger: logging.Discard()}
	app.tasks = app.buildTasks()

	assert.Equal(t, []string{
		"mirror",
		"refresh-discussions",
		"refresh-events",
		"refresh-meetups",
		"refresh-onchain",
		"vector-offchain",
		"vector-onchain",
	}, app.Operations())

	assert.Equal(t, app.Operations(), Operations())

	var err error
	app.scheduler, err = scheduler.New(logging.Discard(), app.tasks...)
	require.NoError(t, err)

	err = app.RunOperation(context.Background(), "compact")
	assert.ErrorIs(t, err, scheduler.ErrUnknownTask)
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	_, err := NewApp(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewApp_DryRun(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DryRun = true
	cfg.DatabaseDriver = "sqlite"
	cfg.DatabaseDSN = "file:dryrun?mode=memory&cache=shared"
	cfg.VectorStoreAPIKey = "key"
	cfg.VectorStoreID = "vs_1"

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, Operations(), app.Operations())
	assert.Len(t, app.scheduler.Stats(), len(app.tasks))
}

func TestNewBlobStore_DryRun(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DryRun = true

	bs, err := newBlobStore(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &blob.MemoryStore{}, bs)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warn").String())
	assert.Equal(t, "INFO", parseLevel("loud").String())
}
