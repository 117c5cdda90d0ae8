package dedup

import (
	"context"
	"log/slog"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
	"golang.org/x/sync/errgroup"
)

// ChecksumStore is the read side of the document store used for existence
// checks. FindByChecksum returns (nil, nil) when no record matches.
type ChecksumStore interface {
	FindByChecksum(ctx context.Context, checksum string) (*domain.ExistingRef, error)
}

// ExistenceChecker looks documents up in the store by fingerprint. Lookups
// are advisory: store failures are logged and reported as no match.
type ExistenceChecker struct {
	hasher *Hasher
	store  ChecksumStore
	logger *slog.Logger
}

// NewExistenceChecker creates a checker. A nil logger means slog.Default().
func NewExistenceChecker(hasher *Hasher, store ChecksumStore, logger *slog.Logger) *ExistenceChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExistenceChecker{
		hasher: hasher,
		store:  store,
		logger: logger,
	}
}

// CheckExisting returns the stored record matching the document's
// fingerprint and records it as doc.Metadata.Checksum. It returns nil when
// nothing matches or the store cannot be queried.
func (c *ExistenceChecker) CheckExisting(ctx context.Context, doc *domain.Document) *domain.ExistingRef {
	if doc == nil || c.store == nil {
		return nil
	}

	fingerprint := c.hasher.Fingerprint(doc.Content, doc.Metadata.URL)
	ref, err := c.store.FindByChecksum(ctx, fingerprint)
	if err != nil {
		c.logger.WarnContext(ctx, "Existence check failed, treating document as new",
			"document_id", doc.ID,
			"checksum", fingerprint,
			"error", err,
		)
		return nil
	}
	if ref == nil {
		return nil
	}

	doc.Metadata.Checksum = ref
	return ref
}

// CheckExistingAll checks every document with at most concurrency lookups
// in flight. The returned slice is aligned with docs; entries are nil for
// documents not found. Each document is written only by its own lookup.
func (c *ExistenceChecker) CheckExistingAll(ctx context.Context, docs []*domain.Document, concurrency int) []*domain.ExistingRef {
	refs := make([]*domain.ExistingRef, len(docs))
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			refs[i] = c.CheckExisting(gctx, doc)
			return nil
		})
	}
	_ = g.Wait() // lookups never return errors

	return refs
}
