package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/dedup"
	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
	"github.com/afoxnyc3/speedboatAgent-sub001/internal/store"
)

// LockFilename is the ingest lock file name under the base directory
const LockFilename = "ingest.lock"

// DocumentIndex is the persistent store canonical documents are written to.
type DocumentIndex interface {
	IndexDocuments(ctx context.Context, docs []domain.IndexedDocument) (int, error)
}

// Options configures a Service.
type Options struct {
	BaseDir              string
	SkipExisting         bool
	ExistenceConcurrency int
	LockTimeout          time.Duration
}

// IngestReport is the outcome of one ingest run.
type IngestReport struct {
	Result *domain.DeduplicationResult `json:"result"`

	// AlreadyIndexed lists documents whose fingerprint was already stored.
	// Their Metadata.Checksum points at the stored record.
	AlreadyIndexed []*domain.Document `json:"already_indexed"`

	// Indexed is the number of canonical documents written to the store.
	Indexed int `json:"indexed"`
}

// Service runs documents through existence filtering, deduplication and
// indexing.
type Service struct {
	pipeline *dedup.Pipeline
	checker  *dedup.ExistenceChecker
	index    DocumentIndex
	cache    store.Recorder
	opts     Options
	logger   *slog.Logger

	// mu serializes runs within the process; the file lock covers other processes.
	mu sync.Mutex
}

// NewService creates an ingest service. lookup answers existence checks
// and may be nil to disable them; cache may be nil. A nil logger means
// slog.Default().
func NewService(pipeline *dedup.Pipeline, lookup dedup.ChecksumStore, index DocumentIndex, cache store.Recorder, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ExistenceConcurrency <= 0 {
		opts.ExistenceConcurrency = 1
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = time.Minute
	}
	return &Service{
		pipeline: pipeline,
		checker:  dedup.NewExistenceChecker(pipeline.Hasher(), lookup, logger),
		index:    index,
		cache:    cache,
		opts:     opts,
		logger:   logger,
	}
}

// Check reports whether content at url is already stored.
func (s *Service) Check(ctx context.Context, content, url string) *domain.ExistingRef {
	return s.checker.CheckExisting(ctx, &domain.Document{
		Content:  content,
		Metadata: domain.Metadata{URL: url},
	})
}

// Ingest filters out documents already in the store, deduplicates the
// rest and indexes the canonical documents under their fingerprint.
func (s *Service) Ingest(ctx context.Context, docs []*domain.Document) (*IngestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock := NewFileLock(filepath.Join(s.opts.BaseDir, LockFilename))
	if err := lock.Lock(ctx, s.opts.LockTimeout); err != nil {
		return nil, fmt.Errorf("failed to acquire ingest lock: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("Failed to release ingest lock", "error", err)
		}
	}()

	docs = slices.DeleteFunc(slices.Clone(docs), func(d *domain.Document) bool { return d == nil })

	report := &IngestReport{AlreadyIndexed: []*domain.Document{}}
	fresh := docs
	if s.opts.SkipExisting {
		fresh, report.AlreadyIndexed = s.partitionExisting(ctx, docs)
	}

	report.Result = s.pipeline.Deduplicate(fresh)

	hasher := s.pipeline.Hasher()
	records := make([]domain.IndexedDocument, 0, len(report.Result.CanonicalDocuments))
	for _, doc := range report.Result.CanonicalDocuments {
		records = append(records, domain.NewIndexedDocument(doc, hasher.Fingerprint(doc.Content, doc.Metadata.URL)))
	}

	indexed, err := s.index.IndexDocuments(ctx, records)
	report.Indexed = indexed
	if err != nil {
		return report, fmt.Errorf("failed to index canonical documents: %w", err)
	}

	s.recordChecksums(ctx, records)
	s.updateManifest(report)

	s.logger.InfoContext(ctx, "Ingest complete",
		"received", len(docs),
		"already_indexed", len(report.AlreadyIndexed),
		"duplicates", report.Result.DuplicatesFound,
		"skipped", len(report.Result.SkippedDocuments),
		"indexed", report.Indexed,
	)
	return report, nil
}

// partitionExisting splits docs into those not yet stored and those whose
// fingerprint already is.
func (s *Service) partitionExisting(ctx context.Context, docs []*domain.Document) (fresh, existing []*domain.Document) {
	refs := s.checker.CheckExistingAll(ctx, docs, s.opts.ExistenceConcurrency)
	fresh = make([]*domain.Document, 0, len(docs))
	existing = []*domain.Document{}
	for i, doc := range docs {
		if refs[i] != nil {
			existing = append(existing, doc)
		} else {
			fresh = append(fresh, doc)
		}
	}
	return fresh, existing
}

// recordChecksums writes the indexed fingerprints to the checksum cache.
func (s *Service) recordChecksums(ctx context.Context, records []domain.IndexedDocument) {
	if s.cache == nil {
		return
	}
	for _, rec := range records {
		ref := &domain.ExistingRef{
			ID:           rec.ID,
			Source:       domain.Source(rec.Source),
			FilePath:     rec.FilePath,
			LastModified: domain.ParseLastModified(rec.LastModified),
		}
		if err := s.cache.Record(ctx, rec.Checksum, ref); err != nil {
			s.logger.WarnContext(ctx, "Failed to cache checksum", "document_id", rec.ID, "error", err)
		}
	}
}

// updateManifest adds the run to the on-disk manifest. Failures are logged.
func (s *Service) updateManifest(report *IngestReport) {
	path := filepath.Join(s.opts.BaseDir, ManifestFilename)
	manifest, err := LoadManifest(path)
	if err != nil {
		s.logger.Warn("Failed to load manifest, starting fresh", "error", err)
		manifest = NewManifest()
	}

	manifest.RecordRun(Totals{
		Processed:      report.Result.Processed,
		Duplicates:     report.Result.DuplicatesFound,
		Skipped:        len(report.Result.SkippedDocuments),
		Indexed:        report.Indexed,
		AlreadyIndexed: len(report.AlreadyIndexed),
	}, time.Now())

	if err := manifest.Save(path); err != nil {
		s.logger.Warn("Failed to save manifest", "error", err)
	}
}
