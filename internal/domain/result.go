package domain

import (
	"fmt"
	"time"
)

// Reason explains why documents were clustered together.
type Reason uint8

const (
	ReasonExactHash Reason = iota + 1
	ReasonURLSimilarity
	ReasonContentSimilarity
)

// String returns the wire name of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonExactHash:
		return "exact-hash"
	case ReasonURLSimilarity:
		return "url-similarity"
	case ReasonContentSimilarity:
		return "content-similarity"
	}
	return fmt.Sprintf("Reason(%d)", uint8(r))
}

// Confidence returns the fixed confidence attached to groups of this reason.
func (r Reason) Confidence() float64 {
	switch r {
	case ReasonExactHash:
		return 1.0
	case ReasonURLSimilarity:
		return 0.85
	case ReasonContentSimilarity:
		return 0.9
	}
	return 0
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	switch r {
	case ReasonExactHash, ReasonURLSimilarity, ReasonContentSimilarity:
		return []byte(r.String()), nil
	}
	return nil, fmt.Errorf("invalid reason %d", uint8(r))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reason) UnmarshalText(text []byte) error {
	switch string(text) {
	case "exact-hash":
		*r = ReasonExactHash
	case "url-similarity":
		*r = ReasonURLSimilarity
	case "content-similarity":
		*r = ReasonContentSimilarity
	default:
		return fmt.Errorf("unknown reason %q", string(text))
	}
	return nil
}

// DuplicateGroup is one cluster of equivalent documents.
type DuplicateGroup struct {
	CanonicalDocument *Document   `json:"canonical_document"`
	Duplicates        []*Document `json:"duplicates"`
	Reason            Reason      `json:"reason"`
	Confidence        float64     `json:"confidence"`
}

// DeduplicationResult is the outcome of running the pipeline over a set of
// documents. Every input document lands in exactly one of
// CanonicalDocuments, a group's Duplicates, or SkippedDocuments.
type DeduplicationResult struct {
	Processed          int              `json:"processed"`
	DuplicatesFound    int              `json:"duplicates_found"`
	DuplicateGroups    []DuplicateGroup `json:"duplicate_groups"`
	CanonicalDocuments []*Document      `json:"canonical_documents"`
	SkippedDocuments   []*Document      `json:"skipped_documents"`
	ProcessingTime     time.Duration    `json:"processing_time"`
}

// NewDeduplicationResult returns a result with empty, non-nil collections.
func NewDeduplicationResult() *DeduplicationResult {
	return &DeduplicationResult{
		DuplicateGroups:    []DuplicateGroup{},
		CanonicalDocuments: []*Document{},
		SkippedDocuments:   []*Document{},
	}
}

// Merge appends other into r. Counts and durations are summed.
func (r *DeduplicationResult) Merge(other *DeduplicationResult) {
	r.Processed += other.Processed
	r.DuplicatesFound += other.DuplicatesFound
	r.DuplicateGroups = append(r.DuplicateGroups, other.DuplicateGroups...)
	r.CanonicalDocuments = append(r.CanonicalDocuments, other.CanonicalDocuments...)
	r.SkippedDocuments = append(r.SkippedDocuments, other.SkippedDocuments...)
	r.ProcessingTime += other.ProcessingTime
}
