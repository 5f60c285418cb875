// Command swapi-export fetches Star Wars characters, exports the top ranked
// ones to CSV and uploads the file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/swapi-export/pkg/cache"
	"github.com/Sternrassler/swapi-export/pkg/client"
	"github.com/Sternrassler/swapi-export/pkg/config"
	"github.com/Sternrassler/swapi-export/pkg/logging"
	"github.com/Sternrassler/swapi-export/pkg/metrics"
	"github.com/Sternrassler/swapi-export/pkg/pagination"
	"github.com/Sternrassler/swapi-export/pkg/processor"
	"github.com/Sternrassler/swapi-export/pkg/ranking"
	"github.com/Sternrassler/swapi-export/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one export and returns the process exit code.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := config.NewFlagSet("swapi-export")
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	configPath, _ := fs.GetString("config")

	cfg, err := config.Load(configPath, fs)
	if err != nil {
		fmt.Fprintf(stderr, "swapi-export: %v\n", err)
		return 1
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: stderr,
	})

	err = export(ctx, cfg)
	if cfg.Metrics.Textfile != "" {
		if werr := metrics.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			logger.Warn().Err(werr).Str("path", cfg.Metrics.Textfile).Msg("Failed to write metrics")
		}
	}
	if err != nil {
		logger.Error().Err(err).Msg("Export failed")
		return 1
	}
	return 0
}

func export(ctx context.Context, cfg *config.Config) error {
	ranker, err := ranking.ParsePolicy(cfg.Rank.Policy)
	if err != nil {
		return err
	}

	httpClient, err := client.New(client.Config{
		BaseURL:   cfg.API.BaseURL,
		UserAgent: cfg.API.UserAgent,
		Timeout:   cfg.API.Timeout,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.API.RateLimit,
			Burst:             cfg.API.Burst,
		},
	}, logging.NewLogger("client"))
	if err != nil {
		return err
	}
	defer httpClient.Close()

	store, closeStore, err := openStore(ctx, cfg, logging.NewLogger("cache"))
	if err != nil {
		return err
	}
	defer closeStore()

	p, err := processor.New(processor.Options{
		Client:       httpClient,
		Store:        store,
		Ranker:       ranker,
		TopN:         cfg.Rank.TopN,
		SortByHeight: cfg.Rank.SortByHeight,
		Fetch:        pagination.Config{MaxConcurrency: cfg.Fetch.MaxConcurrency},
		Planner: cache.PlannerConfig{
			DefaultPageCount: cfg.Fetch.DefaultPageCount,
			PageSize:         cfg.Fetch.PageSize,
		},
		CSVPath:   cfg.Export.CSVPath,
		UploadURL: cfg.Export.UploadURL,
		Logger:    logging.NewLogger("processor"),
	})
	if err != nil {
		return err
	}

	_, err = p.Run(ctx)
	return err
}

// openStore returns the configured page cache store, or nil when caching is off.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.Store, func(), error) {
	noop := func() {}
	if !cfg.Cache.Enabled {
		return nil, noop, nil
	}

	switch cfg.Cache.Backend {
	case cache.BackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
			DB:   cfg.Cache.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, noop, fmt.Errorf("connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		store := cache.NewRedisStore(redisClient, cache.CacheKey{
			BaseURL:   cfg.API.BaseURL,
			Namespace: cfg.Cache.Namespace,
		})
		logger.Info().
			Str("addr", cfg.Cache.RedisAddr).
			Str("key", store.Key()).
			Msg("Using Redis page cache")
		return store, func() { redisClient.Close() }, nil

	default:
		store := cache.NewFileStore(cfg.Cache.Path)
		logger.Info().Str("path", store.Path()).Msg("Using file page cache")
		return store, noop, nil
	}
}
