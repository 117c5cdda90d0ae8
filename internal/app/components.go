package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/config"
	"github.com/afoxnyc3/speedboatAgent-sub001/internal/dedup"
	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
	"github.com/afoxnyc3/speedboatAgent-sub001/internal/ingest"
	"github.com/afoxnyc3/speedboatAgent-sub001/internal/store"
)

// redisTimeout bounds Redis dials, commands and the startup ping
const redisTimeout = 2 * time.Second

// PipelineConfig converts the dedup settings into a pipeline config
func PipelineConfig(s *config.Settings) dedup.Config {
	winners := make([]domain.Source, len(s.Dedup.SourceWinners))
	for i, w := range s.Dedup.SourceWinners {
		winners[i] = domain.Source(w)
	}
	return dedup.Config{
		HashAlgorithm:       s.Dedup.HashAlgorithm,
		ContentThreshold:    s.Dedup.ContentThreshold,
		SimilarityThreshold: s.Dedup.SimilarityThreshold,
		SourceWinners:       winners,
		BatchSize:           s.Dedup.BatchSize,
	}
}

// NewPipeline builds a pipeline from settings
func NewPipeline(s *config.Settings) (*dedup.Pipeline, error) {
	return dedup.NewPipeline(PipelineConfig(s), dedup.WithLogger(slog.Default()))
}

// Components holds the long-lived objects a command works with
type Components struct {
	Pipeline *dedup.Pipeline
	Index    *store.Index
	Service  *ingest.Service

	// Cache is nil unless Redis is enabled
	Cache *store.RedisChecksumStore
}

// OpenComponents opens the document index, the optional checksum cache and
// the ingest service
func OpenComponents(s *config.Settings) (*Components, error) {
	pipeline, err := NewPipeline(s)
	if err != nil {
		return nil, err
	}

	idx, err := store.Open(store.IndexPath(s.BaseDir, s.Store.IndexName))
	if err != nil {
		return nil, err
	}

	c := &Components{Pipeline: pipeline, Index: idx}

	var lookup dedup.ChecksumStore = idx
	var recorder store.Recorder
	if s.Redis.Enabled {
		c.Cache = store.NewRedisChecksumStore(store.RedisConfig{
			Addr:        s.Redis.Addr,
			Password:    s.Redis.Password,
			DB:          s.Redis.DB,
			KeyPrefix:   s.Redis.KeyPrefix,
			TTL:         s.Redis.TTL,
			DialTimeout: redisTimeout,
		})

		ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
		if err := c.Cache.Ping(ctx); err != nil {
			slog.Warn("Failed to connect to Redis, lookups will fall back to the index", "addr", s.Redis.Addr, "error", err)
		}
		cancel()

		cached := store.NewCachedLookup(c.Cache, idx, slog.Default())
		lookup = cached
		recorder = cached
	}

	c.Service = ingest.NewService(pipeline, lookup, idx, recorder, ingest.Options{
		BaseDir:              s.BaseDir,
		SkipExisting:         s.Ingest.SkipExisting,
		ExistenceConcurrency: s.Ingest.ExistenceConcurrency,
		LockTimeout:          s.Ingest.LockTimeout,
	}, slog.Default())

	return c, nil
}

// Close releases the index and the cache connection
func (c *Components) Close() error {
	var errs []error
	if c.Index != nil {
		errs = append(errs, c.Index.Close())
	}
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	return errors.Join(errs...)
}
