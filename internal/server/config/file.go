package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/govsync/internal/flagx"
	"github.com/dmitrijs2005/govsync/internal/timex"
)

// FileConfig is the on-disk shape of the config file. Zero values leave the
// defaults untouched; intervals accept "6h" or integer nanoseconds.
type FileConfig struct {
	HTTPAddr           string              `json:"http_addr" yaml:"http_addr"`
	LogLevel           string              `json:"log_level" yaml:"log_level"`
	DatabaseDriver     string              `json:"database_driver" yaml:"database_driver"`
	DatabaseDSN        string              `json:"database_dsn" yaml:"database_dsn"`
	S3AccessKey        string              `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey        string              `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3Bucket           string              `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region           string              `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint     string              `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	VectorStoreBaseURL string              `json:"vector_store_base_url" yaml:"vector_store_base_url"`
	VectorStoreAPIKey  string              `json:"vector_store_api_key" yaml:"vector_store_api_key"`
	VectorStoreID      string              `json:"vector_store_id" yaml:"vector_store_id"`
	VectorBatchSize    int                 `json:"vector_batch_size" yaml:"vector_batch_size"`
	VectorFilePatterns []string            `json:"vector_file_patterns" yaml:"vector_file_patterns"`
	GovernanceBaseURL  string              `json:"governance_base_url" yaml:"governance_base_url"`
	GovernanceNetwork  string              `json:"governance_network" yaml:"governance_network"`
	Tracks             []Track             `json:"tracks" yaml:"tracks"`
	PageSize           int                 `json:"page_size" yaml:"page_size"`
	BoardBaseURL       string              `json:"board_base_url" yaml:"board_base_url"`
	BoardAPIKey        string              `json:"board_api_key" yaml:"board_api_key"`
	BoardToken         string              `json:"board_token" yaml:"board_token"`
	EventsListID       string              `json:"events_list_id" yaml:"events_list_id"`
	MeetupsBoardID     string              `json:"meetups_board_id" yaml:"meetups_board_id"`
	DocsBaseURL        string              `json:"docs_base_url" yaml:"docs_base_url"`
	DocsAPIKey         string              `json:"docs_api_key" yaml:"docs_api_key"`
	FanoutConcurrency  int                 `json:"fanout_concurrency" yaml:"fanout_concurrency"`
	Categories         map[string][]string `json:"categories" yaml:"categories"`
	DefaultCategory    string              `json:"default_category" yaml:"default_category"`
	AdminSecret        string              `json:"admin_secret" yaml:"admin_secret"`
	HTTPTimeout        timex.Duration      `json:"http_timeout" yaml:"http_timeout"`
	Cadences           struct {
		OnChainRefresh     timex.Duration `json:"onchain_refresh" yaml:"onchain_refresh"`
		DiscussionsRefresh timex.Duration `json:"discussions_refresh" yaml:"discussions_refresh"`
		EventsRefresh      timex.Duration `json:"events_refresh" yaml:"events_refresh"`
		MeetupsRefresh     timex.Duration `json:"meetups_refresh" yaml:"meetups_refresh"`
		OnChainVectorSync  timex.Duration `json:"onchain_vector_sync" yaml:"onchain_vector_sync"`
		OffChainVectorSync timex.Duration `json:"offchain_vector_sync" yaml:"offchain_vector_sync"`
		Mirror             timex.Duration `json:"mirror" yaml:"mirror"`
	} `json:"cadences" yaml:"cadences"`
}

// parseFile overlays the file named by -c/-config, if any. The format is
// picked by extension: .yaml/.yml is YAML, anything else JSON.
func parseFile(cfg *Config) error {
	path := flagx.ConfigFile()
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, fc)
	default:
		err = json.Unmarshal(b, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.HTTPAddr, fc.HTTPAddr)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.DatabaseDriver, fc.DatabaseDriver)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.S3AccessKey, fc.S3AccessKey)
	setString(&cfg.S3SecretKey, fc.S3SecretKey)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3Region, fc.S3Region)
	setString(&cfg.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&cfg.VectorStoreBaseURL, fc.VectorStoreBaseURL)
	setString(&cfg.VectorStoreAPIKey, fc.VectorStoreAPIKey)
	setString(&cfg.VectorStoreID, fc.VectorStoreID)
	setInt(&cfg.VectorBatchSize, fc.VectorBatchSize)
	if len(fc.VectorFilePatterns) > 0 {
		cfg.VectorFilePatterns = fc.VectorFilePatterns
	}
	setString(&cfg.GovernanceBaseURL, fc.GovernanceBaseURL)
	setString(&cfg.GovernanceNetwork, fc.GovernanceNetwork)
	if len(fc.Tracks) > 0 {
		cfg.Tracks = fc.Tracks
	}
	setInt(&cfg.PageSize, fc.PageSize)
	setString(&cfg.BoardBaseURL, fc.BoardBaseURL)
	setString(&cfg.BoardAPIKey, fc.BoardAPIKey)
	setString(&cfg.BoardToken, fc.BoardToken)
	setString(&cfg.EventsListID, fc.EventsListID)
	setString(&cfg.MeetupsBoardID, fc.MeetupsBoardID)
	setString(&cfg.DocsBaseURL, fc.DocsBaseURL)
	setString(&cfg.DocsAPIKey, fc.DocsAPIKey)
	setInt(&cfg.FanoutConcurrency, fc.FanoutConcurrency)
	if len(fc.Categories) > 0 {
		cfg.Categories = fc.Categories
	}
	setString(&cfg.DefaultCategory, fc.DefaultCategory)
	setString(&cfg.AdminSecret, fc.AdminSecret)
	setDuration(&cfg.HTTPTimeout, fc.HTTPTimeout)
	setDuration(&cfg.Cadences.OnChainRefresh, fc.Cadences.OnChainRefresh)
	setDuration(&cfg.Cadences.DiscussionsRefresh, fc.Cadences.DiscussionsRefresh)
	setDuration(&cfg.Cadences.EventsRefresh, fc.Cadences.EventsRefresh)
	setDuration(&cfg.Cadences.MeetupsRefresh, fc.Cadences.MeetupsRefresh)
	setDuration(&cfg.Cadences.OnChainVectorSync, fc.Cadences.OnChainVectorSync)
	setDuration(&cfg.Cadences.OffChainVectorSync, fc.Cadences.OffChainVectorSync)
	setDuration(&cfg.Cadences.Mirror, fc.Cadences.Mirror)
}
