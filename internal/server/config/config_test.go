package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/govsync/internal/common"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"govsync"}, args...)
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "pgx", c.DatabaseDriver)
	assert.Equal(t, 10, c.VectorBatchSize)
	assert.Equal(t, 100, c.PageSize)
	assert.Equal(t, 5*time.Minute, c.HTTPTimeout)
	assert.Equal(t, 6*time.Hour, c.Cadences.OnChainRefresh)
	assert.Equal(t, time.Hour, c.Cadences.EventsRefresh)
	assert.Equal(t, 4*time.Hour, c.Cadences.OffChainVectorSync)
	assert.Equal(t, 7*time.Hour, c.Cadences.Mirror)
	assert.Contains(t, c.Categories["Events"], "hackathon")
	assert.Empty(t, c.S3AccessKey)
	assert.Empty(t, c.VectorStoreAPIKey)
}

func TestValidate_MissingRequired(t *testing.T) {
	var c Config
	c.LoadDefaults()

	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMissingConfig))
	for _, name := range []string{"S3_ACCESS_KEY", "S3_SECRET_KEY", "VECTOR_STORE_API_KEY", "VECTOR_STORE_ID"} {
		assert.Contains(t, err.Error(), name)
	}

	c.S3AccessKey = "user"
	c.S3SecretKey = "secret"
	c.VectorStoreAPIKey = "sk-test"
	c.VectorStoreID = "vs_1"
	require.NoError(t, c.Validate())

	for _, driver := range DatabaseDrivers {
		c.DatabaseDriver = driver
		require.NoError(t, c.Validate(), driver)
	}

	c.DatabaseDriver = "mysql"
	c.PageSize = 250
	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
	assert.Contains(t, err.Error(), "page size")
}

func TestParseFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "govsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":9090"
s3_bucket: proposals
vector_batch_size: 5
tracks:
  - name: treasurer
    id: 11
categories:
  Events: [hackathon]
cadences:
  onchain_refresh: 2h
  mirror: 30m
`), 0o600))
	withArgs(t, "serve", "-c", path)

	var c Config
	c.LoadDefaults()
	require.NoError(t, parseFile(&c))

	assert.Equal(t, ":9090", c.HTTPAddr)
	assert.Equal(t, "proposals", c.S3Bucket)
	assert.Equal(t, 5, c.VectorBatchSize)
	assert.Equal(t, []Track{{Name: "treasurer", ID: 11}}, c.Tracks)
	assert.Equal(t, map[string][]string{"Events": {"hackathon"}}, c.Categories)
	assert.Equal(t, 2*time.Hour, c.Cadences.OnChainRefresh)
	assert.Equal(t, 30*time.Minute, c.Cadences.Mirror)
	assert.Equal(t, time.Hour, c.Cadences.EventsRefresh, "unset cadences keep defaults")
}

func TestParseFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "govsync.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database_dsn":"file:govsync.db","database_driver":"sqlite","http_timeout":"30s"}`), 0o600))
	withArgs(t, "-config", path)

	var c Config
	c.LoadDefaults()
	require.NoError(t, parseFile(&c))

	assert.Equal(t, "sqlite", c.DatabaseDriver)
	assert.Equal(t, "file:govsync.db", c.DatabaseDSN)
	assert.Equal(t, 30*time.Second, c.HTTPTimeout)
}

func TestParseFile_Errors(t *testing.T) {
	withArgs(t, "-c", filepath.Join(t.TempDir(), "missing.json"))
	var c Config
	require.Error(t, parseFile(&c))

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	withArgs(t, "-c", path)
	require.Error(t, parseFile(&c))
}

func TestParseEnv(t *testing.T) {
	withArgs(t)
	t.Setenv("S3_ACCESS_KEY", "env-user")
	t.Setenv("VECTOR_STORE_ID", "vs_env")
	t.Setenv("VECTOR_BATCH_SIZE", "20")
	t.Setenv("HTTP_TIMEOUT", "1m")

	var c Config
	c.LoadDefaults()
	require.NoError(t, parseEnv(&c))

	assert.Equal(t, "env-user", c.S3AccessKey)
	assert.Equal(t, "vs_env", c.VectorStoreID)
	assert.Equal(t, 20, c.VectorBatchSize)
	assert.Equal(t, time.Minute, c.HTTPTimeout)

	t.Setenv("PAGE_SIZE", "many")
	require.Error(t, parseEnv(&c))
}

func TestParseEnv_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DOCS_API_KEY=from-file\nADMIN_SECRET=admin\n"), 0o600))
	withArgs(t, "-env-file", path)
	t.Cleanup(func() {
		os.Unsetenv("DOCS_API_KEY")
		os.Unsetenv("ADMIN_SECRET")
	})

	var c Config
	c.LoadDefaults()
	require.NoError(t, parseEnv(&c))

	assert.Equal(t, "from-file", c.DocsAPIKey)
	assert.Equal(t, "admin", c.AdminSecret)
}

func TestParseFlags(t *testing.T) {
	withArgs(t, "serve",
		"-a", "127.0.0.1:9090", "-d", "db", "-driver", "sqlite",
		"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
		"-k", "sk", "-s", "vs", "-l", "debug",
	)

	got := &Config{}
	require.NoError(t, parseFlags(got))

	want := &Config{
		HTTPAddr:          "127.0.0.1:9090",
		DatabaseDSN:       "db",
		DatabaseDriver:    "sqlite",
		S3AccessKey:       "user",
		S3SecretKey:       "password",
		S3Bucket:          "bucket",
		S3Region:          "us-west-1",
		S3BaseEndpoint:    "http://endpoint",
		VectorStoreAPIKey: "sk",
		VectorStoreID:     "vs",
		LogLevel:          "debug",
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "govsync.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"s3_bucket":"from-file","s3_region":"from-file"}`), 0o600))
	withArgs(t, "serve", "-c", path, "-g", "from-flag")
	t.Setenv("S3_BUCKET", "from-env")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "from-env", c.S3Bucket)
	assert.Equal(t, "from-flag", c.S3Region)
	assert.Equal(t, ":8080", c.HTTPAddr)
}

func TestValidate_DryRunSkipsS3(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.VectorStoreAPIKey = "sk-test"
	c.VectorStoreID = "vs_1"
	require.Error(t, c.Validate())

	c.DryRun = true
	require.NoError(t, c.Validate())
}

func TestDryRunFlagAndEnv(t *testing.T) {
	withArgs(t, "serve", "-dry-run", "-a", ":9091")
	got := &Config{}
	require.NoError(t, parseFlags(got))
	assert.True(t, got.DryRun)
	assert.Equal(t, ":9091", got.HTTPAddr)

	withArgs(t)
	t.Setenv("DRY_RUN", "true")
	var c Config
	require.NoError(t, parseEnv(&c))
	assert.True(t, c.DryRun)

	t.Setenv("DRY_RUN", "maybe")
	require.Error(t, parseEnv(&c))
}
