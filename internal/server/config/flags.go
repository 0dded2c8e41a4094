package config

import (
	"flag"
	"io"
	"os"

	"github.com/dmitrijs2005/govsync/internal/flagx"
)

// parseFlags overlays cfg with command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   database DSN
//	-driver     database driver ("pgx" or "sqlite")
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g. "http://127.0.0.1:9000/")
//	-k string   vector store API key
//	-s string   vector store id
//	-l string   log level
//	-dry-run    keep snapshots and documents in memory instead of S3
//
// Only these flags are picked out of os.Args, so subcommand flags and
// positional arguments do not collide with them.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-driver", "-u", "-p", "-b", "-g", "-e", "-k", "-s", "-l"})

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.VectorStoreAPIKey, "k", config.VectorStoreAPIKey, "vector store API key")
	fs.StringVar(&config.VectorStoreID, "s", config.VectorStoreID, "vector store id")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if flagx.DryRun() {
		config.DryRun = true
	}
	return nil
}
