package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Source identifies the origin system a document was observed in.
// Sources are listed from most to least authoritative.
type Source string

const (
	SourceRepository Source = "repository"
	SourceWeb        Source = "web"
	SourceLocal      Source = "local"
)

// KnownSources lists every supported source in default trust order.
var KnownSources = []Source{SourceRepository, SourceWeb, SourceLocal}

// IsValid reports whether s is one of the known sources.
func (s Source) IsValid() bool {
	switch s {
	case SourceRepository, SourceWeb, SourceLocal:
		return true
	}
	return false
}

// ParseSource converts a raw string into a Source.
func ParseSource(raw string) (Source, error) {
	s := Source(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown source %q", raw)
	}
	return s, nil
}

// DefaultPriority is used when a producer leaves Document.Priority unset.
const DefaultPriority = 1.0

// Document is a unit of ingestible content produced by a scanner or crawler.
type Document struct {
	// ID is assigned by the producer and is unique within a batch.
	ID string `json:"id"`

	// Content is the raw text body.
	Content string `json:"content"`

	Source Source `json:"source"`

	// FilePath is the origin-relative path, or the URL path for web documents.
	FilePath string `json:"filepath"`

	// Priority reflects authority independent of Source. Zero means unset.
	Priority float64 `json:"priority,omitempty"`

	Metadata Metadata `json:"metadata"`
}

// Metadata carries optional attributes of a Document.
type Metadata struct {
	// URL is the canonical URL, normally present only for web documents.
	URL          string       `json:"url,omitempty"`
	Size         int64        `json:"size,omitempty"`
	LastModified *time.Time   `json:"last_modified,omitempty"`
	Checksum     *ExistingRef `json:"checksum,omitempty"`
}

// EffectivePriority returns the document priority, substituting
// DefaultPriority when it is unset or not positive.
func (d *Document) EffectivePriority() float64 {
	if d.Priority <= 0 {
		return DefaultPriority
	}
	return d.Priority
}

// ContentLength returns the content length in runes.
func (d *Document) ContentLength() int {
	return utf8.RuneCountInString(d.Content)
}

// LastModifiedMillis returns the last modification time in epoch
// milliseconds, or 0 when unknown.
func (d *Document) LastModifiedMillis() int64 {
	if d.Metadata.LastModified == nil {
		return 0
	}
	return d.Metadata.LastModified.UnixMilli()
}

// ExistingRef points at a record already present in the document store.
type ExistingRef struct {
	ID           string     `json:"id"`
	Source       Source     `json:"source"`
	FilePath     string     `json:"filepath"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}
