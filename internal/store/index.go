package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
)

const (
	// IndexSuffix is the suffix for index directories
	IndexSuffix = ".bleve"

	// MaxBatchSize is the maximum number of documents per batch
	MaxBatchSize = 100

	// MaxBatchBytes is the maximum content bytes per batch (10MB)
	MaxBatchBytes = 10 * 1024 * 1024

	// SnippetLength is the maximum snippet length in runes when no highlight is available
	SnippetLength = 200
)

// ErrIndexClosed is returned by operations on a closed index.
var ErrIndexClosed = errors.New("index is closed")

// Index is a Bleve-backed store of canonical documents.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
	path  string
}

// SearchHit is a single full-text search result.
type SearchHit struct {
	ID       string  `json:"id"`
	Source   string  `json:"source"`
	FilePath string  `json:"file_path,omitempty"`
	URL      string  `json:"url,omitempty"`
	Score    float64 `json:"score"`
	Snippet  string  `json:"snippet"`
}

// SearchResults holds the hits of one search along with the total match count.
type SearchResults struct {
	Total uint64      `json:"total"`
	Hits  []SearchHit `json:"hits"`
}

// IndexPath returns the on-disk location of a named index under baseDir.
func IndexPath(baseDir, name string) string {
	return filepath.Join(baseDir, "indexes", name+IndexSuffix)
}

// CreateIndexMapping creates the Bleve index mapping for indexed documents.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// Content field - analyzed for full-text search
	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = true
	contentField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(domain.IndexFieldContent, contentField)

	// Exact-match fields: not analyzed, stored for retrieval
	for _, name := range []string{
		domain.IndexFieldChecksum,
		domain.IndexFieldSource,
		domain.IndexFieldFilePath,
		domain.IndexFieldURL,
		domain.IndexFieldLastModified,
	} {
		field := bleve.NewTextFieldMapping()
		field.Analyzer = keyword.Name
		field.Store = true
		docMapping.AddFieldMappingsAt(name, field)
	}

	priorityField := bleve.NewNumericFieldMapping()
	priorityField.Store = true
	docMapping.AddFieldMappingsAt(domain.IndexFieldPriority, priorityField)

	// ID - stored but not indexed (we use the document ID)
	idField := bleve.NewTextFieldMapping()
	idField.Index = false
	idField.Store = true
	docMapping.AddFieldMappingsAt(domain.IndexFieldID, idField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// Open opens the index at path, creating it when it does not exist.
func Open(path string) (*Index, error) {
	index, err := bleve.Open(path)
	if err == nil {
		return &Index{index: index, path: path}, nil
	}

	if _, statErr := os.Stat(path); statErr == nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	index, err = bleve.New(path, CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &Index{index: index, path: path}, nil
}

// Path returns the on-disk location of the index.
func (i *Index) Path() string {
	return i.path
}

// IndexDocuments writes documents in batches, replacing any with the same ID.
// Documents the index rejects, such as those without an ID, are logged and
// skipped. Returns the number of documents indexed.
func (i *Index) IndexDocuments(ctx context.Context, docs []domain.IndexedDocument) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.index == nil {
		return 0, ErrIndexClosed
	}

	batch := i.index.NewBatch()
	batchSize := 0
	batchBytes := 0
	totalIndexed := 0

	for _, doc := range docs {
		if err := batch.Index(doc.ID, doc); err != nil {
			slog.WarnContext(ctx, "Skipping document that could not be indexed", "document_id", doc.ID, "error", err)
			continue
		}
		batchSize++
		batchBytes += len(doc.Content)

		if batchSize >= MaxBatchSize || batchBytes >= MaxBatchBytes {
			if err := ctx.Err(); err != nil {
				return totalIndexed, err
			}
			if err := i.index.Batch(batch); err != nil {
				return totalIndexed, fmt.Errorf("batch index failed: %w", err)
			}
			totalIndexed += batchSize
			batch = i.index.NewBatch()
			batchSize = 0
			batchBytes = 0
		}
	}

	// Flush remaining batch
	if batchSize > 0 {
		if err := ctx.Err(); err != nil {
			return totalIndexed, err
		}
		if err := i.index.Batch(batch); err != nil {
			return totalIndexed, fmt.Errorf("final batch index failed: %w", err)
		}
		totalIndexed += batchSize
	}

	return totalIndexed, nil
}

// FindByChecksum returns the stored document whose fingerprint equals
// checksum, or nil when none exists.
func (i *Index) FindByChecksum(ctx context.Context, checksum string) (*domain.ExistingRef, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.index == nil {
		return nil, ErrIndexClosed
	}

	termQuery := bleve.NewTermQuery(checksum)
	termQuery.SetField(domain.IndexFieldChecksum)

	req := bleve.NewSearchRequest(termQuery)
	req.Size = 1
	req.Fields = []string{domain.IndexFieldSource, domain.IndexFieldFilePath, domain.IndexFieldLastModified}

	results, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("checksum lookup failed: %w", err)
	}
	if len(results.Hits) == 0 {
		return nil, nil
	}

	hit := results.Hits[0]
	return &domain.ExistingRef{
		ID:           hit.ID,
		Source:       domain.Source(stringField(hit.Fields, domain.IndexFieldSource)),
		FilePath:     stringField(hit.Fields, domain.IndexFieldFilePath),
		LastModified: domain.ParseLastModified(stringField(hit.Fields, domain.IndexFieldLastModified)),
	}, nil
}

// HoldsChecksum reports whether the document stored under id carries
// checksum.
func (i *Index) HoldsChecksum(ctx context.Context, id, checksum string) (bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.index == nil {
		return false, ErrIndexClosed
	}

	termQuery := bleve.NewTermQuery(checksum)
	termQuery.SetField(domain.IndexFieldChecksum)
	q := bleve.NewConjunctionQuery(bleve.NewDocIDQuery([]string{id}), termQuery)

	req := bleve.NewSearchRequest(q)
	req.Size = 0

	results, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return false, fmt.Errorf("checksum confirmation failed: %w", err)
	}
	return results.Total > 0, nil
}

// Search runs a full-text query over document content, optionally
// restricted to a single source.
func (i *Index) Search(ctx context.Context, queryStr, source string, size int) (*SearchResults, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.index == nil {
		return nil, ErrIndexClosed
	}
	if size <= 0 {
		size = 10
	}

	req := bleve.NewSearchRequest(buildQuery(queryStr, source))
	req.Size = size
	req.Fields = []string{domain.IndexFieldSource, domain.IndexFieldFilePath, domain.IndexFieldURL, domain.IndexFieldContent}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField(domain.IndexFieldContent)

	results, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := &SearchResults{Total: results.Total, Hits: make([]SearchHit, 0, len(results.Hits))}
	for _, hit := range results.Hits {
		snippet := ""
		if fragments := hit.Fragments[domain.IndexFieldContent]; len(fragments) > 0 {
			snippet = fragments[0]
		} else {
			snippet = truncate(stringField(hit.Fields, domain.IndexFieldContent), SnippetLength)
		}
		out.Hits = append(out.Hits, SearchHit{
			ID:       hit.ID,
			Source:   stringField(hit.Fields, domain.IndexFieldSource),
			FilePath: stringField(hit.Fields, domain.IndexFieldFilePath),
			URL:      stringField(hit.Fields, domain.IndexFieldURL),
			Score:    hit.Score,
			Snippet:  snippet,
		})
	}
	return out, nil
}

// buildQuery combines the content match with an optional source filter.
func buildQuery(queryStr, source string) query.Query {
	contentQuery := bleve.NewMatchQuery(queryStr)
	contentQuery.SetField(domain.IndexFieldContent)

	if source == "" {
		return contentQuery
	}

	sourceQuery := bleve.NewTermQuery(source)
	sourceQuery.SetField(domain.IndexFieldSource)
	return bleve.NewConjunctionQuery(contentQuery, sourceQuery)
}

// DocCount returns the number of documents in the index.
func (i *Index) DocCount() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.index == nil {
		return 0, ErrIndexClosed
	}
	return i.index.DocCount()
}

// Close closes the index. Subsequent calls return ErrIndexClosed.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.index == nil {
		return ErrIndexClosed
	}
	err := i.index.Close()
	i.index = nil
	return err
}

func stringField(fields map[string]interface{}, name string) string {
	if val, ok := fields[name].(string); ok {
		return val
	}
	return ""
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
