package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
)

// Scanner turns a local directory tree into documents with source local.
type Scanner struct {
	filter      *PathFilter
	maxFileSize int64
	logger      *slog.Logger
}

// NewScanner creates a scanner. A nil filter means the default exclusions
// and a nil logger means slog.Default().
func NewScanner(filter *PathFilter, maxFileSize int64, logger *slog.Logger) *Scanner {
	if filter == nil {
		filter = NewPathFilter()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{filter: filter, maxFileSize: maxFileSize, logger: logger}
}

// DocumentID derives a stable document ID from an absolute file path.
func DocumentID(absPath string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(absPath))).String()
}

// Scan walks root and returns one document per readable text file.
// Unreadable, oversized, excluded and binary files are skipped.
func (s *Scanner) Scan(ctx context.Context, root string) ([]*domain.Document, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scan root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root is not a directory: %s", absRoot)
	}

	docs := []*domain.Document{}
	skipped := 0

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			skipped++
			return nil // Skip entries with errors
		}

		if d.IsDir() {
			if path != absRoot && s.filter.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || s.filter.SkipFile(relPath) {
			return nil
		}

		fi, err := d.Info()
		if err != nil || fi.Size() > s.maxFileSize {
			skipped++
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil || IsBinary(content) {
			skipped++
			return nil
		}

		modified := fi.ModTime().UTC()
		docs = append(docs, &domain.Document{
			ID:       DocumentID(path),
			Content:  string(content),
			Source:   domain.SourceLocal,
			FilePath: filepath.ToSlash(relPath),
			Priority: domain.DefaultPriority,
			Metadata: domain.Metadata{
				Size:         fi.Size(),
				LastModified: &modified,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "Scanned directory", "root", absRoot, "documents", len(docs), "skipped", skipped)
	return docs, nil
}
