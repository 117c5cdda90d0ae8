package dedup

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
)

// Pipeline deduplicates documents under a fixed configuration. It holds no
// mutable state, so concurrent Deduplicate calls do not interact.
type Pipeline struct {
	config   Config
	hasher   *Hasher
	grouping *groupingEngine
	logger   *slog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for batch and summary lines.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline validates cfg and creates a pipeline. An invalid config is
// rejected here, before any document is processed.
func NewPipeline(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := NewHasher(cfg.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	// Own the slice so later caller mutation cannot change the ranking.
	cfg.SourceWinners = slices.Clone(cfg.SourceWinners)

	p := &Pipeline{
		config: cfg,
		hasher: hasher,
		grouping: &groupingEngine{
			hasher:              hasher,
			selector:            NewCanonicalSelector(cfg.SourceWinners),
			contentThreshold:    cfg.ContentThreshold,
			similarityThreshold: cfg.SimilarityThreshold,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns a copy of the pipeline configuration.
func (p *Pipeline) Config() Config {
	cfg := p.config
	cfg.SourceWinners = slices.Clone(p.config.SourceWinners)
	return cfg
}

// Hasher returns the hasher the pipeline fingerprints with.
func (p *Pipeline) Hasher() *Hasher {
	return p.hasher
}

// Deduplicate groups docs and selects canonical documents. Inputs larger
// than BatchSize are split into contiguous batches that are processed
// independently; duplicates that straddle a batch boundary are not
// detected. Nil entries are dropped.
func (p *Pipeline) Deduplicate(docs []*domain.Document) *domain.DeduplicationResult {
	docs = p.compact(docs)
	result := domain.NewDeduplicationResult()

	batches := 0
	for start := 0; start < len(docs); start += p.config.BatchSize {
		end := min(start+p.config.BatchSize, len(docs))
		result.Merge(p.runBatch(docs[start:end], batches))
		batches++
	}

	p.logger.InfoContext(context.Background(), "Deduplication complete",
		"processed", result.Processed,
		"batches", batches,
		"groups", len(result.DuplicateGroups),
		"duplicates", result.DuplicatesFound,
		"canonical", len(result.CanonicalDocuments),
		"skipped", len(result.SkippedDocuments),
		"duration", result.ProcessingTime,
	)
	return result
}

// runBatch runs the grouping passes over one batch and times them.
func (p *Pipeline) runBatch(batch []*domain.Document, n int) *domain.DeduplicationResult {
	start := time.Now()
	res := p.grouping.group(batch)
	res.ProcessingTime = time.Since(start)

	p.logger.DebugContext(context.Background(), "Deduplicated batch",
		"batch", n,
		"size", len(batch),
		"groups", len(res.DuplicateGroups),
		"duplicates", res.DuplicatesFound,
	)
	return res
}

// compact drops nil documents, logging how many were removed.
func (p *Pipeline) compact(docs []*domain.Document) []*domain.Document {
	if !slices.Contains(docs, nil) {
		return docs
	}
	out := make([]*domain.Document, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			out = append(out, d)
		}
	}
	p.logger.Warn("Dropped nil documents", "count", len(docs)-len(out))
	return out
}
