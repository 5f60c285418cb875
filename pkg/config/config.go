// Package config loads swapi-export settings from defaults, an optional config
// file and SWAPI_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version is reported in the default User-Agent.
const Version = "0.1.0"

// EnvPrefix prefixes every environment variable, e.g. SWAPI_RANK_TOP_N.
const EnvPrefix = "SWAPI"

// DefaultConfigName is searched for in the working directory when no file is given.
const DefaultConfigName = "swapi-export"

// Config stores all configuration for one run.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Rank    RankConfig    `mapstructure:"rank"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Export  ExportConfig  `mapstructure:"export"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// APIConfig configures the HTTP client.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	Burst     int           `mapstructure:"burst"`
}

// FetchConfig configures the fan-out stages and crawl sizing.
type FetchConfig struct {
	MaxConcurrency   int `mapstructure:"max_concurrency"` // 0 picks CPUs + 4
	DefaultPageCount int `mapstructure:"default_page_count"`
	PageSize         int `mapstructure:"page_size"`
}

// RankConfig selects the ranking policy.
type RankConfig struct {
	Policy       string `mapstructure:"policy"`
	TopN         int    `mapstructure:"top_n"`
	SortByHeight bool   `mapstructure:"sort_by_height"`
}

// CacheConfig configures the page cache.
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Backend   string `mapstructure:"backend"` // "file" or "redis"
	Path      string `mapstructure:"path"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"`
	Namespace string `mapstructure:"namespace"`
}

// ExportConfig configures CSV output and upload.
type ExportConfig struct {
	CSVPath   string `mapstructure:"csv_path"`
	UploadURL string `mapstructure:"upload_url"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// MetricsConfig configures the metrics dump.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // empty disables
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://swapi.dev/api")
	v.SetDefault("api.user_agent", "swapi-export/"+Version)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.rate_limit", 20.0)
	v.SetDefault("api.burst", 10)

	v.SetDefault("fetch.max_concurrency", 0)
	v.SetDefault("fetch.default_page_count", 9)
	v.SetDefault("fetch.page_size", 10)

	v.SetDefault("rank.policy", "appearances-height")
	v.SetDefault("rank.top_n", 10)
	v.SetDefault("rank.sort_by_height", true)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.path", "./files/cache/cache.json")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.namespace", "")

	v.SetDefault("export.csv_path", "./files/csv/star_wars_top10_characters_sorted_by_height.csv")
	v.SetDefault("export.upload_url", "https://httpbin.org/post")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("metrics.textfile", "")
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// flagKeys maps CLI flags to configuration keys.
var flagKeys = map[string]string{
	"cache":        "cache.enabled",
	"policy":       "rank.policy",
	"top":          "rank.top_n",
	"out":          "export.csv_path",
	"upload":       "export.upload_url",
	"metrics-file": "metrics.textfile",
	"log-level":    "log.level",
}

// NewFlagSet defines the command line flags. "config" names the config file;
// every other flag overrides one configuration key when set.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", "", "config file (yaml, json, toml or env)")
	fs.Bool("cache", false, "reuse and update the page cache")
	fs.String("policy", "", "ranking policy: appearances-height or boundary-tallest")
	fs.Int("top", 0, "number of characters to export")
	fs.String("out", "", "CSV output path")
	fs.String("upload", "", "upload endpoint")
	fs.String("metrics-file", "", "write Prometheus metrics to this textfile after the run")
	fs.String("log-level", "", "debug, info, warn or error")
	return fs
}

// Load reads configuration. An explicit path must exist; without one,
// ./swapi-export.{yaml,json,toml,env} is read when present.
// Precedence: flags set in fs over environment over file over defaults.
// fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := New()

	if fs != nil {
		for flagName, key := range flagKeys {
			f := fs.Lookup(flagName)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flagName, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
		// The file is optional, configuration can come purely from the environment.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return Decode(v)
}

// Decode unmarshals and validates v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch {
	case c.API.BaseURL == "":
		return fmt.Errorf("%w: api.base_url is empty", ErrInvalid)
	case c.API.UserAgent == "":
		return fmt.Errorf("%w: api.user_agent is empty", ErrInvalid)
	case c.API.RateLimit < 0:
		return fmt.Errorf("%w: api.rate_limit must be >= 0", ErrInvalid)
	case c.Fetch.MaxConcurrency < 0:
		return fmt.Errorf("%w: fetch.max_concurrency must be >= 0", ErrInvalid)
	case c.Fetch.DefaultPageCount <= 0:
		return fmt.Errorf("%w: fetch.default_page_count must be > 0", ErrInvalid)
	case c.Fetch.PageSize <= 0:
		return fmt.Errorf("%w: fetch.page_size must be > 0", ErrInvalid)
	case c.Rank.TopN <= 0:
		return fmt.Errorf("%w: rank.top_n must be > 0", ErrInvalid)
	case c.Export.CSVPath == "":
		return fmt.Errorf("%w: export.csv_path is empty", ErrInvalid)
	}

	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case "file":
			if c.Cache.Path == "" {
				return fmt.Errorf("%w: cache.path is empty", ErrInvalid)
			}
		case "redis":
			if c.Cache.RedisAddr == "" {
				return fmt.Errorf("%w: cache.redis_addr is empty", ErrInvalid)
			}
		default:
			return fmt.Errorf("%w: unknown cache.backend %q", ErrInvalid, c.Cache.Backend)
		}
	}
	return nil
}
