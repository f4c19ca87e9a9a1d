package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maltedev/marketplace-matcher/internal/browser"
	"github.com/maltedev/marketplace-matcher/internal/matcher"
	"github.com/maltedev/marketplace-matcher/internal/scheduler"
	"github.com/spf13/viper"
)

const envPrefix = "MATCHER"

type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper"`
	Matcher MatcherConfig `mapstructure:"matcher"`
	Browser BrowserConfig `mapstructure:"browser"`
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ScraperConfig struct {
	ConcurrencyLimit int      `mapstructure:"concurrency_limit"`
	BatchSize        int      `mapstructure:"batch_size"`
	MatchWorkers     int      `mapstructure:"match_workers"`
	Marketplaces     []string `mapstructure:"marketplaces"`
}

type MatcherConfig struct {
	ProductWeight float64 `mapstructure:"product_weight"`
	VendorWeight  float64 `mapstructure:"vendor_weight"`
	Threshold     float64 `mapstructure:"threshold"`
}

type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless"`
	Timeout        time.Duration `mapstructure:"timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	Locale         string        `mapstructure:"locale"`
	Timezone       string        `mapstructure:"timezone"`
	ViewportWidth  int           `mapstructure:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height"`
	ProxyServer    string        `mapstructure:"proxy_server"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// RedisConfig enables the progress event stream when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Stream   string `mapstructure:"stream"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from defaults, an optional config.yaml and
// MATCHER_* environment variables, in increasing priority. A non-empty path
// names the config file explicitly and must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper.concurrency_limit", scheduler.DefaultConcurrencyLimit)
	v.SetDefault("scraper.batch_size", scheduler.DefaultBatchSize)
	v.SetDefault("scraper.match_workers", 0)
	v.SetDefault("scraper.marketplaces", []string{})

	v.SetDefault("matcher.product_weight", matcher.DefaultProductWeight)
	v.SetDefault("matcher.vendor_weight", matcher.DefaultVendorWeight)
	v.SetDefault("matcher.threshold", matcher.DefaultThreshold)

	defaults := browser.DefaultOptions()
	v.SetDefault("browser.headless", defaults.Headless)
	v.SetDefault("browser.timeout", defaults.Timeout)
	v.SetDefault("browser.user_agent", defaults.UserAgent)
	v.SetDefault("browser.locale", defaults.Locale)
	v.SetDefault("browser.timezone", defaults.TimezoneID)
	v.SetDefault("browser.viewport_width", defaults.ViewportWidth)
	v.SetDefault("browser.viewport_height", defaults.ViewportHeight)
	v.SetDefault("browser.proxy_server", "")

	v.SetDefault("server.port", 8084)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "stream:marketplace_matches")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func (c *Config) Validate() error {
	if c.Scraper.ConcurrencyLimit < 1 {
		return fmt.Errorf("scraper.concurrency_limit must be at least 1, got %d", c.Scraper.ConcurrencyLimit)
	}
	if c.Scraper.BatchSize < 1 {
		return fmt.Errorf("scraper.batch_size must be at least 1, got %d", c.Scraper.BatchSize)
	}
	if c.Scraper.MatchWorkers < 0 {
		return fmt.Errorf("scraper.match_workers cannot be negative, got %d", c.Scraper.MatchWorkers)
	}
	if c.Matcher.Threshold < 0 || c.Matcher.Threshold > 100 {
		return fmt.Errorf("matcher.threshold must be within [0,100], got %g", c.Matcher.Threshold)
	}
	if c.Matcher.ProductWeight < 0 || c.Matcher.VendorWeight < 0 {
		return fmt.Errorf("matcher weights cannot be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Redis.Addr != "" && c.Redis.Stream == "" {
		return fmt.Errorf("redis.stream is required when redis.addr is set")
	}
	return nil
}

func (c *Config) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		ConcurrencyLimit: c.Scraper.ConcurrencyLimit,
		BatchSize:        c.Scraper.BatchSize,
		MatchWorkers:     c.Scraper.MatchWorkers,
		Matcher: matcher.Config{
			ProductWeight: c.Matcher.ProductWeight,
			VendorWeight:  c.Matcher.VendorWeight,
			Threshold:     c.Matcher.Threshold,
		},
	}
}

func (c *Config) BrowserOptions() *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = c.Browser.Headless
	opts.Timeout = c.Browser.Timeout
	opts.UserAgent = c.Browser.UserAgent
	opts.Locale = c.Browser.Locale
	opts.TimezoneID = c.Browser.Timezone
	opts.ViewportWidth = c.Browser.ViewportWidth
	opts.ViewportHeight = c.Browser.ViewportHeight
	opts.ProxyServer = c.Browser.ProxyServer
	return opts
}
