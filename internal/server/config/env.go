package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/govsync/internal/flagx"
	"github.com/dmitrijs2005/govsync/internal/timex"
)

const defaultEnvFile = ".env"

// parseEnv loads the env file (variables already set in the process win)
// and overlays every known variable onto cfg.
func parseEnv(cfg *Config) error {
	if err := loadEnvFile(flagx.EnvFile()); err != nil {
		return err
	}

	strs := map[string]*string{
		"HTTP_ADDR":             &cfg.HTTPAddr,
		"LOG_LEVEL":             &cfg.LogLevel,
		"DATABASE_DRIVER":       &cfg.DatabaseDriver,
		"DATABASE_DSN":          &cfg.DatabaseDSN,
		"S3_ACCESS_KEY":         &cfg.S3AccessKey,
		"S3_SECRET_KEY":         &cfg.S3SecretKey,
		"S3_BUCKET":             &cfg.S3Bucket,
		"S3_REGION":             &cfg.S3Region,
		"S3_BASE_ENDPOINT":      &cfg.S3BaseEndpoint,
		"VECTOR_STORE_BASE_URL": &cfg.VectorStoreBaseURL,
		"VECTOR_STORE_API_KEY":  &cfg.VectorStoreAPIKey,
		"VECTOR_STORE_ID":       &cfg.VectorStoreID,
		"GOVERNANCE_BASE_URL":   &cfg.GovernanceBaseURL,
		"GOVERNANCE_NETWORK":    &cfg.GovernanceNetwork,
		"BOARD_BASE_URL":        &cfg.BoardBaseURL,
		"BOARD_API_KEY":         &cfg.BoardAPIKey,
		"BOARD_TOKEN":           &cfg.BoardToken,
		"EVENTS_LIST_ID":        &cfg.EventsListID,
		"MEETUPS_BOARD_ID":      &cfg.MeetupsBoardID,
		"DOCS_BASE_URL":         &cfg.DocsBaseURL,
		"DOCS_API_KEY":          &cfg.DocsAPIKey,
		"ADMIN_SECRET":          &cfg.AdminSecret,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"VECTOR_BATCH_SIZE":  &cfg.VectorBatchSize,
		"PAGE_SIZE":          &cfg.PageSize,
		"FANOUT_CONCURRENCY": &cfg.FanoutConcurrency,
	}
	for name, dst := range ints {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("HTTP_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}

	if v, ok := os.LookupEnv("DRY_RUN"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DRY_RUN: %w", err)
		}
		cfg.DryRun = b
	}
	return nil
}

func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(defaultEnvFile); err != nil {
		return fmt.Errorf("load env file %s: %w", defaultEnvFile, err)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
