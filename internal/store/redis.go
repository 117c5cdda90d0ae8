package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
)

// Hash fields of a cached checksum entry.
const (
	redisFieldID           = "id"
	redisFieldSource       = "source"
	redisFieldFilePath     = "file_path"
	redisFieldLastModified = "last_modified"
)

// RedisConfig holds connection settings for the checksum cache
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	TTL         time.Duration
	DialTimeout time.Duration
}

// RedisChecksumStore caches checksum to document ref mappings in Redis
// hashes keyed by "<prefix>:<checksum>".
type RedisChecksumStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisChecksumStore creates a store. The connection is established lazily.
func NewRedisChecksumStore(cfg RedisConfig) *RedisChecksumStore {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
		opts.ReadTimeout = cfg.DialTimeout
		opts.WriteTimeout = cfg.DialTimeout
		opts.MaxRetries = -1
	}
	return NewRedisChecksumStoreWithClient(redis.NewClient(opts), cfg.KeyPrefix, cfg.TTL)
}

// NewRedisChecksumStoreWithClient wraps a preconfigured client.
func NewRedisChecksumStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisChecksumStore {
	return &RedisChecksumStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisChecksumStore) key(checksum string) string {
	return s.prefix + ":" + checksum
}

// Ping verifies the connection.
func (s *RedisChecksumStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// FindByChecksum returns the cached ref for checksum, or nil on a miss.
func (s *RedisChecksumStore) FindByChecksum(ctx context.Context, checksum string) (*domain.ExistingRef, error) {
	values, err := s.client.HGetAll(ctx, s.key(checksum)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checksum cache: %w", err)
	}
	if len(values) == 0 || values[redisFieldID] == "" {
		return nil, nil
	}

	return &domain.ExistingRef{
		ID:           values[redisFieldID],
		Source:       domain.Source(values[redisFieldSource]),
		FilePath:     values[redisFieldFilePath],
		LastModified: domain.ParseLastModified(values[redisFieldLastModified]),
	}, nil
}

// Record stores ref under checksum and refreshes its TTL.
func (s *RedisChecksumStore) Record(ctx context.Context, checksum string, ref *domain.ExistingRef) error {
	if ref == nil {
		return nil
	}

	lastModified := ""
	if ref.LastModified != nil {
		lastModified = ref.LastModified.UTC().Format(time.RFC3339Nano)
	}

	key := s.key(checksum)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		redisFieldID, ref.ID,
		redisFieldSource, string(ref.Source),
		redisFieldFilePath, ref.FilePath,
		redisFieldLastModified, lastModified,
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record checksum: %w", err)
	}
	return nil
}

// Forget removes the cached ref for checksum.
func (s *RedisChecksumStore) Forget(ctx context.Context, checksum string) error {
	if err := s.client.Del(ctx, s.key(checksum)).Err(); err != nil {
		return fmt.Errorf("failed to forget checksum: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisChecksumStore) Close() error {
	return s.client.Close()
}
