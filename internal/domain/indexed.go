package domain

import "time"

// IndexedDocument represents a canonical document persisted in the Bleve
// search index.
type IndexedDocument struct {
	// ID is the producer-assigned document ID.
	ID string `json:"id"`

	// Source is the origin system, stored as a keyword.
	Source string `json:"source"`

	// FilePath is the origin-relative path or URL path.
	FilePath string `json:"file_path"`

	// URL is the canonical URL, if any.
	URL string `json:"url"`

	// Checksum is the document fingerprint. Existence lookups query it.
	Checksum string `json:"checksum"`

	// LastModified is RFC 3339 formatted, empty when unknown.
	LastModified string `json:"last_modified"`

	// Priority is the effective producer priority.
	Priority float64 `json:"priority"`

	// Content is the full body used for search and snippets.
	Content string `json:"content"`
}

// Bleve field name constants for consistent field references in queries and mappings.
const (
	IndexFieldID           = "id"
	IndexFieldSource       = "source"
	IndexFieldFilePath     = "file_path"
	IndexFieldURL          = "url"
	IndexFieldChecksum     = "checksum"
	IndexFieldLastModified = "last_modified"
	IndexFieldPriority     = "priority"
	IndexFieldContent      = "content"
)

// NewIndexedDocument converts a document and its fingerprint into the
// stored form.
func NewIndexedDocument(doc *Document, checksum string) IndexedDocument {
	lastModified := ""
	if doc.Metadata.LastModified != nil {
		lastModified = doc.Metadata.LastModified.UTC().Format(time.RFC3339Nano)
	}
	return IndexedDocument{
		ID:           doc.ID,
		Source:       string(doc.Source),
		FilePath:     doc.FilePath,
		URL:          doc.Metadata.URL,
		Checksum:     checksum,
		LastModified: lastModified,
		Priority:     doc.EffectivePriority(),
		Content:      doc.Content,
	}
}

// ParseLastModified parses the stored timestamp, returning nil when it is
// empty or malformed.
func ParseLastModified(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil
	}
	return &t
}
