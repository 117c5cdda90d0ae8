package dedup

import (
	"errors"
	"fmt"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
)

// Hash algorithm constants
const (
	HashSHA256 = "sha256"
	HashXXHash = "xxhash"
)

// MaxBatchSize is the largest batch the grouping passes accept.
const MaxBatchSize = 1000

// ErrInvalidConfig is wrapped by every configuration validation error.
var ErrInvalidConfig = errors.New("invalid deduplication config")

// Config controls a pipeline. It is fixed for the lifetime of the pipeline.
type Config struct {
	// HashAlgorithm is HashSHA256 or HashXXHash.
	HashAlgorithm string

	// ContentThreshold excludes documents whose trimmed content length
	// (in runes) is less than or equal to it.
	ContentThreshold int

	// SimilarityThreshold is the minimum combined similarity, in [0,1],
	// for two documents to be treated as near-duplicates.
	SimilarityThreshold float64

	// SourceWinners ranks sources for canonical selection, earliest first.
	SourceWinners []domain.Source

	// BatchSize bounds how many documents are grouped together.
	BatchSize int
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		HashAlgorithm:       HashSHA256,
		ContentThreshold:    100,
		SimilarityThreshold: 0.8,
		SourceWinners:       []domain.Source{domain.SourceRepository, domain.SourceWeb, domain.SourceLocal},
		BatchSize:           100,
	}
}

// Validate checks every field and names the first invalid one.
func (c Config) Validate() error {
	switch c.HashAlgorithm {
	case HashSHA256, HashXXHash:
	default:
		return fmt.Errorf("%w: hash_algorithm must be %q or %q, got %q", ErrInvalidConfig, HashSHA256, HashXXHash, c.HashAlgorithm)
	}

	if c.ContentThreshold <= 0 {
		return fmt.Errorf("%w: content_threshold must be positive, got %d", ErrInvalidConfig, c.ContentThreshold)
	}

	// The negated form also rejects NaN.
	if !(c.SimilarityThreshold >= 0 && c.SimilarityThreshold <= 1) {
		return fmt.Errorf("%w: similarity_threshold must be within [0,1], got %v", ErrInvalidConfig, c.SimilarityThreshold)
	}

	seen := make(map[domain.Source]bool, len(c.SourceWinners))
	for _, s := range c.SourceWinners {
		if !s.IsValid() {
			return fmt.Errorf("%w: source_winners contains unknown source %q", ErrInvalidConfig, s)
		}
		if seen[s] {
			return fmt.Errorf("%w: source_winners lists %q more than once", ErrInvalidConfig, s)
		}
		seen[s] = true
	}

	if c.BatchSize <= 0 || c.BatchSize > MaxBatchSize {
		return fmt.Errorf("%w: batch_size must be within (0,%d], got %d", ErrInvalidConfig, MaxBatchSize, c.BatchSize)
	}

	return nil
}

// String summarizes the configuration for logs.
func (c Config) String() string {
	return fmt.Sprintf("hash=%s content_threshold=%d similarity_threshold=%.2f source_winners=%v batch_size=%d",
		c.HashAlgorithm, c.ContentThreshold, c.SimilarityThreshold, c.SourceWinners, c.BatchSize)
}
