package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/govsync/internal/server"
	"github.com/dmitrijs2005/govsync/internal/server/config"
)

var (
	configFile string
	envFile    string
)

// rootCmd is the govsync binary. Configuration flags such as -a or -d are
// read by the config package straight from os.Args, so cobra lets unknown
// flags through.
var rootCmd = &cobra.Command{
	Use:   "govsync",
	Short: "Incremental sync of governance content into object storage, a record store and a vector index",
	FParseErrWhitelist: cobra.FParseErrWhitelist{
		UnknownFlags: true,
	},
	SilenceUsage: true,
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default ./.env when present)")
}

// newApp loads the configuration and builds the application.
func newApp(ctx context.Context) (*server.App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return server.NewApp(ctx, cfg)
}
