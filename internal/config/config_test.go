package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{ConcurrencyLimit: 9, BatchSize: 3},
		Matcher: MatcherConfig{ProductWeight: 0.75, VendorWeight: 0.25, Threshold: 85},
		Server:  ServerConfig{Port: 8084},
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Scraper.ConcurrencyLimit)
	assert.Equal(t, 3, cfg.Scraper.BatchSize)
	assert.Equal(t, 0, cfg.Scraper.MatchWorkers)
	assert.Equal(t, 0.75, cfg.Matcher.ProductWeight)
	assert.Equal(t, 0.25, cfg.Matcher.VendorWeight)
	assert.Equal(t, 85.0, cfg.Matcher.Threshold)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "en-US", cfg.Browser.Locale)
	assert.Equal(t, "UTC", cfg.Browser.Timezone)
	assert.Equal(t, 8084, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "stream:marketplace_matches", cfg.Redis.Stream)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MATCHER_SCRAPER_CONCURRENCY_LIMIT", "4")
	t.Setenv("MATCHER_MATCHER_THRESHOLD", "70")
	t.Setenv("MATCHER_REDIS_ADDR", "localhost:6379")
	t.Setenv("MATCHER_LOGGING_FORMAT", "text")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Scraper.ConcurrencyLimit)
	assert.Equal(t, 70.0, cfg.Matcher.Threshold)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "matcher.yaml")
	content := `
scraper:
  batch_size: 5
  marketplaces: [aws, gcp]
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Scraper.BatchSize)
	assert.Equal(t, []string{"aws", "gcp"}, cfg.Scraper.Marketplaces)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 9, cfg.Scraper.ConcurrencyLimit)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MATCHER_SCRAPER_BATCH_SIZE", "0")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scraper.batch_size")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "concurrency limit", mutate: func(c *Config) { c.Scraper.ConcurrencyLimit = 0 }, wantErr: "scraper.concurrency_limit"},
		{name: "batch size", mutate: func(c *Config) { c.Scraper.BatchSize = 0 }, wantErr: "scraper.batch_size"},
		{name: "match workers", mutate: func(c *Config) { c.Scraper.MatchWorkers = -1 }, wantErr: "scraper.match_workers"},
		{name: "threshold above range", mutate: func(c *Config) { c.Matcher.Threshold = 101 }, wantErr: "matcher.threshold"},
		{name: "threshold below range", mutate: func(c *Config) { c.Matcher.Threshold = -1 }, wantErr: "matcher.threshold"},
		{name: "negative weight", mutate: func(c *Config) { c.Matcher.VendorWeight = -0.1 }, wantErr: "weights"},
		{name: "weights not summing to one", mutate: func(c *Config) { c.Matcher.ProductWeight = 0.9 }},
		{name: "port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
		{name: "redis without stream", mutate: func(c *Config) { c.Redis.Addr = "localhost:6379" }, wantErr: "redis.stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSchedulerConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Scraper.MatchWorkers = 2

	sc := cfg.SchedulerConfig()
	assert.Equal(t, 9, sc.ConcurrencyLimit)
	assert.Equal(t, 3, sc.BatchSize)
	assert.Equal(t, 2, sc.MatchWorkers)
	assert.Equal(t, 85.0, sc.Matcher.Threshold)
}

func TestBrowserOptions(t *testing.T) {
	cfg := validConfig()
	cfg.Browser = BrowserConfig{
		Headless:       false,
		Timeout:        10 * time.Second,
		Locale:         "en-GB",
		Timezone:       "Europe/London",
		ViewportWidth:  1280,
		ViewportHeight: 720,
	}

	opts := cfg.BrowserOptions()
	assert.False(t, opts.Headless)
	assert.Equal(t, 10*time.Second, opts.Timeout)
	assert.Equal(t, "en-GB", opts.Locale)
	assert.Equal(t, "Europe/London", opts.TimezoneID)
	assert.Equal(t, 1280, opts.ViewportWidth)
}
