package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/table-scroll/pkg/cache"
	"github.com/Sternrassler/table-scroll/pkg/logging"
	"github.com/Sternrassler/table-scroll/pkg/pagination"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix prefixes every environment override, e.g. TABLE_SCROLL_PAGE_SIZE.
const envPrefix = "TABLE_SCROLL"

// defaultScrollThreshold is the viewer's threshold in rows. The library
// default is measured in pixels.
const defaultScrollThreshold = 10

// options is the resolved configuration of one run.
type options struct {
	PageSize        int
	ScrollThreshold float64
	UserAgent       string
	Timeout         time.Duration
	RedisURL        string
	CacheTTL        time.Duration
	MetricsAddr     string
	LogLevel        string
	LogFile         string
}

// addFlags registers the configuration flags.
func addFlags(fs *pflag.FlagSet) {
	fs.Int("page-size", pagination.DefaultPageSize, "rows requested per fetch")
	fs.Float64("scroll-threshold", defaultScrollThreshold, "rows from the bottom at which more rows are loaded")
	fs.String("user-agent", "table-scroll/0.1.0", "User-Agent sent to the table server")
	fs.Duration("timeout", 15*time.Second, "timeout per HTTP attempt")
	fs.String("redis-url", "", "redis URL for the page cache (e.g. redis://localhost:6379/0), empty disables caching")
	fs.Duration("cache-ttl", cache.DefaultTTL, "lifetime of cached pages without an Expires header")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	fs.String("log-level", string(logging.LevelInfo), "log level (debug, info, warn, error, disabled)")
	fs.String("log-file", "", "append logs to this file")
}

// newViper returns a viper instance reading TABLE_SCROLL_* environment
// variables and bound to fs.
func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	return v, nil
}

// readConfigFile merges a config file (yaml, toml, json) into v.
func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// loadOptions resolves and validates the configuration.
func loadOptions(v *viper.Viper) (options, error) {
	opts := options{
		PageSize:        v.GetInt("page-size"),
		ScrollThreshold: v.GetFloat64("scroll-threshold"),
		UserAgent:       v.GetString("user-agent"),
		Timeout:         v.GetDuration("timeout"),
		RedisURL:        v.GetString("redis-url"),
		CacheTTL:        v.GetDuration("cache-ttl"),
		MetricsAddr:     v.GetString("metrics-addr"),
		LogLevel:        v.GetString("log-level"),
		LogFile:         v.GetString("log-file"),
	}

	if opts.PageSize <= 0 {
		return options{}, fmt.Errorf("page-size must be positive (got %d)", opts.PageSize)
	}
	if opts.ScrollThreshold <= 0 {
		return options{}, fmt.Errorf("scroll-threshold must be positive (got %v)", opts.ScrollThreshold)
	}
	if opts.UserAgent == "" {
		return options{}, fmt.Errorf("user-agent is required")
	}
	if err := logging.ValidateLevel(opts.LogLevel); err != nil {
		return options{}, err
	}

	return opts, nil
}
