package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates no page cache has been stored yet.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored entry is corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Backend names used in metrics and configuration.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// DefaultDirPermissions is used when creating the cache directory.
const DefaultDirPermissions = 0o755

// Store persists a single PageCache.
type Store interface {
	// Load returns the stored entry, or ErrCacheMiss when there is none.
	Load(ctx context.Context) (*PageCache, error)

	// Save replaces the stored entry.
	Save(ctx context.Context, entry *PageCache) error

	// Backend names the storage kind ("file", "redis").
	Backend() string
}

// FileStore keeps the page cache in one JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the cache file location.
func (s *FileStore) Path() string {
	return s.path
}

// Backend implements Store.
func (s *FileStore) Backend() string {
	return BackendFile
}

// Load implements Store. A missing file is a miss; every other failure is returned.
func (s *FileStore) Load(ctx context.Context) (*PageCache, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			CacheMisses.WithLabelValues(BackendFile).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues(BackendFile, "load").Inc()
		return nil, fmt.Errorf("read cache file %s: %w", s.path, err)
	}

	entry, err := decodePageCache(data)
	if err != nil {
		CacheErrors.WithLabelValues(BackendFile, "load").Inc()
		return nil, fmt.Errorf("cache file %s: %w", s.path, err)
	}

	CacheHits.WithLabelValues(BackendFile).Inc()
	CacheSize.WithLabelValues(BackendFile).Set(float64(len(data)))
	return entry, nil
}

// Save implements Store. The file is replaced atomically via a temp file rename.
func (s *FileStore) Save(ctx context.Context, entry *PageCache) error {
	data, err := entry.encode()
	if err != nil {
		CacheErrors.WithLabelValues(BackendFile, "save").Inc()
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		CacheErrors.WithLabelValues(BackendFile, "save").Inc()
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		CacheErrors.WithLabelValues(BackendFile, "save").Inc()
		return fmt.Errorf("create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		CacheErrors.WithLabelValues(BackendFile, "save").Inc()
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		CacheErrors.WithLabelValues(BackendFile, "save").Inc()
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		CacheErrors.WithLabelValues(BackendFile, "save").Inc()
		return fmt.Errorf("replace cache file: %w", err)
	}

	CacheSize.WithLabelValues(BackendFile).Set(float64(len(data)))
	return nil
}

// RedisStore keeps the page cache under one Redis key without expiry.
type RedisStore struct {
	redis *redis.Client
	key   CacheKey
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client, key CacheKey) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
		key:   key,
	}
}

// Key returns the Redis key holding the entry.
func (s *RedisStore) Key() string {
	return s.key.String()
}

// Backend implements Store.
func (s *RedisStore) Backend() string {
	return BackendRedis
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (*PageCache, error) {
	data, err := s.redis.Get(ctx, s.key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.WithLabelValues(BackendRedis).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues(BackendRedis, "load").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	entry, err := decodePageCache(data)
	if err != nil {
		CacheErrors.WithLabelValues(BackendRedis, "load").Inc()
		return nil, err
	}

	CacheHits.WithLabelValues(BackendRedis).Inc()
	CacheSize.WithLabelValues(BackendRedis).Set(float64(len(data)))
	return entry, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, entry *PageCache) error {
	data, err := entry.encode()
	if err != nil {
		CacheErrors.WithLabelValues(BackendRedis, "save").Inc()
		return err
	}

	if err := s.redis.Set(ctx, s.key.String(), data, 0).Err(); err != nil {
		CacheErrors.WithLabelValues(BackendRedis, "save").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues(BackendRedis).Set(float64(len(data)))
	return nil
}
