package store

import (
	"context"
	"log/slog"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
)

// Lookup resolves a checksum to a stored document ref.
type Lookup interface {
	FindByChecksum(ctx context.Context, checksum string) (*domain.ExistingRef, error)
}

// Recorder persists a checksum to ref mapping.
type Recorder interface {
	Record(ctx context.Context, checksum string, ref *domain.ExistingRef) error
}

// CacheStore is a checksum cache that can be read, written and pruned.
type CacheStore interface {
	Lookup
	Recorder
	Forget(ctx context.Context, checksum string) error
}

// ChecksumIndex is the authoritative store behind a cache. HoldsChecksum
// reports whether the record stored under id still carries checksum.
type ChecksumIndex interface {
	Lookup
	HoldsChecksum(ctx context.Context, id, checksum string) (bool, error)
}

// CachedLookup reads through a checksum cache before falling back to the
// primary store. Cache hits are confirmed against the primary store, since
// records replaced under the same ID leave stale cache entries behind.
// Cache failures are logged and never fail the lookup.
type CachedLookup struct {
	cache   CacheStore
	primary ChecksumIndex
	logger  *slog.Logger
}

// NewCachedLookup creates a read-through lookup. A nil logger means slog.Default().
func NewCachedLookup(cache CacheStore, primary ChecksumIndex, logger *slog.Logger) *CachedLookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedLookup{cache: cache, primary: primary, logger: logger}
}

// FindByChecksum implements dedup.ChecksumStore.
func (c *CachedLookup) FindByChecksum(ctx context.Context, checksum string) (*domain.ExistingRef, error) {
	ref, err := c.cache.FindByChecksum(ctx, checksum)
	if err != nil {
		c.logger.WarnContext(ctx, "Checksum cache read failed", "checksum", checksum, "error", err)
	} else if ref != nil && c.confirm(ctx, checksum, ref) {
		return ref, nil
	}

	ref, err = c.primary.FindByChecksum(ctx, checksum)
	if err != nil || ref == nil {
		return ref, err
	}

	if err := c.cache.Record(ctx, checksum, ref); err != nil {
		c.logger.WarnContext(ctx, "Checksum cache write failed", "checksum", checksum, "error", err)
	}
	return ref, nil
}

// confirm checks a cached ref against the primary store. Unconfirmed
// entries are dropped from the cache.
func (c *CachedLookup) confirm(ctx context.Context, checksum string, ref *domain.ExistingRef) bool {
	ok, err := c.primary.HoldsChecksum(ctx, ref.ID, checksum)
	if err != nil {
		c.logger.WarnContext(ctx, "Checksum cache hit could not be confirmed", "checksum", checksum, "document_id", ref.ID, "error", err)
		return false
	}
	if ok {
		return true
	}

	c.logger.DebugContext(ctx, "Dropping stale checksum cache entry", "checksum", checksum, "document_id", ref.ID)
	if err := c.cache.Forget(ctx, checksum); err != nil {
		c.logger.WarnContext(ctx, "Checksum cache delete failed", "checksum", checksum, "error", err)
	}
	return false
}

// Record writes to the cache, logging failures.
func (c *CachedLookup) Record(ctx context.Context, checksum string, ref *domain.ExistingRef) error {
	if err := c.cache.Record(ctx, checksum, ref); err != nil {
		c.logger.WarnContext(ctx, "Checksum cache write failed", "checksum", checksum, "error", err)
	}
	return nil
}
