package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const maskedValue = "****"

// ParseLogLevel maps a level name to a slog.Level
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log-level must be one of debug, info, warn, error, got: %s", level)
	}
}

// NewLogger builds a logger writing to w with the configured level and format
func NewLogger(w io.Writer, s *Settings) *slog.Logger {
	level, err := ParseLogLevel(s.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if s.LogFormat == LogFormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: base_dir", "value", s.BaseDir)
	logger.InfoContext(ctx, "Config: log_level", "value", s.LogLevel)
	logger.InfoContext(ctx, "Config: dedup", "value", DedupSettingsLogValue(s.Dedup))
	logger.InfoContext(ctx, "Config: store.index_name", "value", s.Store.IndexName)

	logger.InfoContext(ctx, "Config: redis.enabled", "value", s.Redis.Enabled)
	if s.Redis.Enabled {
		logger.InfoContext(ctx, "Config: redis.addr", "value", s.Redis.Addr)
		logger.InfoContext(ctx, "Config: redis.db", "value", s.Redis.DB)
		if s.Redis.Password != "" {
			logger.InfoContext(ctx, "Config: redis.password", "value", maskedValue)
		}
	}
}

// DedupSettingsLogValue returns a slog.Value for DedupSettings
func DedupSettingsLogValue(s DedupSettings) slog.Value {
	return slog.GroupValue(
		slog.String("hash_algorithm", s.HashAlgorithm),
		slog.Int("content_threshold", s.ContentThreshold),
		slog.Float64("similarity_threshold", s.SimilarityThreshold),
		slog.String("source_winners", strings.Join(s.SourceWinners, ",")),
		slog.Int("batch_size", s.BatchSize),
	)
}

// RedisSettingsLogValue returns a slog.Value for RedisSettings with masked data
func RedisSettingsLogValue(s RedisSettings) slog.Value {
	password := ""
	if s.Password != "" {
		password = maskedValue
	}
	return slog.GroupValue(
		slog.Bool("enabled", s.Enabled),
		slog.String("addr", s.Addr),
		slog.String("password", password),
		slog.Int("db", s.DB),
		slog.String("key_prefix", s.KeyPrefix),
		slog.Duration("ttl", s.TTL),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("base_dir", s.BaseDir),
		slog.String("log_level", s.LogLevel),
		slog.String("log_format", s.LogFormat),
		slog.Any("dedup", DedupSettingsLogValue(s.Dedup)),
		slog.String("index_name", s.Store.IndexName),
		slog.Any("redis", RedisSettingsLogValue(s.Redis)),
	)
}
