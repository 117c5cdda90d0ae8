package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Log format constants
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// DedupSettings configuration for the deduplication pipeline
type DedupSettings struct {
	HashAlgorithm       string   `mapstructure:"hash_algorithm"`
	ContentThreshold    int      `mapstructure:"content_threshold"`
	SimilarityThreshold float64  `mapstructure:"similarity_threshold"`
	SourceWinners       []string `mapstructure:"source_winners"`
	BatchSize           int      `mapstructure:"batch_size"`
}

// StoreSettings configuration for the Bleve document store
type StoreSettings struct {
	IndexName  string `mapstructure:"index_name"`
	MaxResults int    `mapstructure:"max_results"`
}

// IngestSettings configuration for ingestion runs
type IngestSettings struct {
	MaxFileSize          int64         `mapstructure:"max_file_size"`
	ExistenceConcurrency int           `mapstructure:"existence_concurrency"`
	SkipExisting         bool          `mapstructure:"skip_existing"`
	LockTimeout          time.Duration `mapstructure:"lock_timeout"`
}

// RedisSettings configuration for the optional checksum cache
type RedisSettings struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// Settings application settings
type Settings struct {
	BaseDir   string         `mapstructure:"base_dir"`
	LogLevel  string         `mapstructure:"log_level"`
	LogFormat string         `mapstructure:"log_format"`
	Dedup     DedupSettings  `mapstructure:"dedup"`
	Store     StoreSettings  `mapstructure:"store"`
	Ingest    IngestSettings `mapstructure:"ingest"`
	Redis     RedisSettings  `mapstructure:"redis"`
}

// flagBindings maps settings keys to CLI flag names.
var flagBindings = map[string]string{
	"base_dir":                     "base-dir",
	"log_level":                    "log-level",
	"log_format":                   "log-format",
	"dedup.hash_algorithm":         "hash-algorithm",
	"dedup.content_threshold":      "content-threshold",
	"dedup.similarity_threshold":   "similarity-threshold",
	"dedup.source_winners":         "source-winners",
	"dedup.batch_size":             "batch-size",
	"store.index_name":             "index-name",
	"store.max_results":            "max-results",
	"ingest.max_file_size":         "max-file-size",
	"ingest.existence_concurrency": "existence-concurrency",
	"ingest.skip_existing":         "skip-existing",
	"redis.enabled":                "redis-enabled",
	"redis.addr":                   "redis-addr",
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	v.SetDefault("base_dir", defaultBaseDir())
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", LogFormatText)

	// Pipeline defaults
	v.SetDefault("dedup.hash_algorithm", "sha256")
	v.SetDefault("dedup.content_threshold", 100)
	v.SetDefault("dedup.similarity_threshold", 0.8)
	v.SetDefault("dedup.source_winners", []string{"repository", "web", "local"})
	v.SetDefault("dedup.batch_size", 100)

	v.SetDefault("store.index_name", "documents")
	v.SetDefault("store.max_results", 20)

	v.SetDefault("ingest.max_file_size", int64(256*1024)) // 256KB
	v.SetDefault("ingest.existence_concurrency", 4)
	v.SetDefault("ingest.skip_existing", true)
	v.SetDefault("ingest.lock_timeout", 60*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "speedboat:checksum")
	v.SetDefault("redis.ttl", 24*time.Hour)

	// Environment variables: dedup.batch_size -> SPEEDBOAT_DEDUP_BATCH_SIZE
	v.SetEnvPrefix("SPEEDBOAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Nested keys are only picked up by Unmarshal when explicitly bound
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("redis.password")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of source winners provided via env var as comma-separated string
	if winnersEnv := os.Getenv("SPEEDBOAT_DEDUP_SOURCE_WINNERS"); winnersEnv != "" {
		if len(settings.Dedup.SourceWinners) <= 1 {
			settings.Dedup.SourceWinners = strings.Split(winnersEnv, ",")
		}
	}
	for i := range settings.Dedup.SourceWinners {
		settings.Dedup.SourceWinners[i] = strings.TrimSpace(settings.Dedup.SourceWinners[i])
	}
	settings.Dedup.SourceWinners = filterEmptyStrings(settings.Dedup.SourceWinners)

	settings.BaseDir = expandHomeDir(settings.BaseDir)
	settings.LogLevel = strings.ToLower(settings.LogLevel)

	return &settings, nil
}

// defaultBaseDir returns the default data directory
func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".speedboat"
	}
	return filepath.Join(home, ".speedboat")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks the settings that are not owned by the
// deduplication pipeline. Pipeline settings are validated when the
// pipeline is constructed.
func ValidateSettings(s *Settings) error {
	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return err
	}

	switch s.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return errors.New("log-format must be 'text' or 'json', got: " + s.LogFormat)
	}

	if s.BaseDir == "" {
		return errors.New("base-dir cannot be empty")
	}

	if s.Store.IndexName == "" {
		return errors.New("index-name cannot be empty")
	}
	if strings.ContainsAny(s.Store.IndexName, `/\`) {
		return errors.New("index-name must not contain path separators")
	}
	if s.Store.MaxResults <= 0 {
		return errors.New("max-results must be positive")
	}

	if s.Ingest.MaxFileSize <= 0 {
		return errors.New("max-file-size must be positive")
	}
	if s.Ingest.ExistenceConcurrency <= 0 {
		return errors.New("existence-concurrency must be positive")
	}
	if s.Ingest.LockTimeout <= 0 {
		return errors.New("ingest lock timeout must be positive")
	}

	return validateRedisSettings(&s.Redis)
}

// validateRedisSettings validates the checksum cache configuration
func validateRedisSettings(r *RedisSettings) error {
	if !r.Enabled {
		return nil // No validation needed when disabled
	}
	if r.Addr == "" {
		return errors.New("redis-enabled requires redis-addr")
	}
	if r.DB < 0 {
		return fmt.Errorf("redis db must not be negative, got %d", r.DB)
	}
	if r.KeyPrefix == "" {
		return errors.New("redis key prefix cannot be empty")
	}
	if r.TTL < 0 {
		return errors.New("redis ttl must not be negative")
	}
	return nil
}
