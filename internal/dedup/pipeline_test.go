package dedup

import (
	"errors"
	"strings"
	"testing"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
)

// pad repeats text until it is well past the default content threshold.
func pad(text string) string {
	return strings.Repeat(text+" ", 12)
}

func ids(docs []*domain.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

// newTestPipeline builds a pipeline from the default config after applying mutate.
func newTestPipeline(t *testing.T, mutate func(*Config)) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return p
}

// assertPartition checks that every input lands in exactly one output partition.
func assertPartition(t *testing.T, input []*domain.Document, res *domain.DeduplicationResult) {
	t.Helper()

	if res.Processed != len(input) {
		t.Errorf("Processed = %d, want %d", res.Processed, len(input))
	}

	seen := make(map[string]string)
	record := func(doc *domain.Document, where string) {
		if prev, ok := seen[doc.ID]; ok {
			t.Errorf("document %q appears in both %s and %s", doc.ID, prev, where)
		}
		seen[doc.ID] = where
	}

	duplicates := 0
	for _, d := range res.CanonicalDocuments {
		record(d, "canonical")
	}
	for _, g := range res.DuplicateGroups {
		for _, d := range g.Duplicates {
			record(d, "duplicates")
			duplicates++
		}
	}
	for _, d := range res.SkippedDocuments {
		record(d, "skipped")
	}

	if duplicates != res.DuplicatesFound {
		t.Errorf("DuplicatesFound = %d, but groups hold %d duplicates", res.DuplicatesFound, duplicates)
	}
	if total := len(res.CanonicalDocuments) + duplicates + len(res.SkippedDocuments); total != res.Processed {
		t.Errorf("partition sizes sum to %d, want %d", total, res.Processed)
	}
	for _, d := range input {
		if _, ok := seen[d.ID]; !ok {
			t.Errorf("document %q missing from result", d.ID)
		}
	}
}

func TestNewPipeline_InvalidConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"hash algorithm", func(c *Config) { c.HashAlgorithm = "md5" }, "hash_algorithm"},
		{"zero content threshold", func(c *Config) { c.ContentThreshold = 0 }, "content_threshold"},
		{"negative similarity", func(c *Config) { c.SimilarityThreshold = -0.1 }, "similarity_threshold"},
		{"similarity above one", func(c *Config) { c.SimilarityThreshold = 1.1 }, "similarity_threshold"},
		{"unknown source", func(c *Config) { c.SourceWinners = []domain.Source{"ftp"} }, "source_winners"},
		{"duplicate source", func(c *Config) {
			c.SourceWinners = []domain.Source{domain.SourceWeb, domain.SourceWeb}
		}, "source_winners"},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"batch size too large", func(c *Config) { c.BatchSize = 1001 }, "batch_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			p, err := NewPipeline(cfg)
			if err == nil {
				t.Fatal("Expected error for invalid config")
			}
			if p != nil {
				t.Error("Expected nil pipeline on error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("Expected error naming %q, got %q", tt.wantField, err.Error())
			}
		})
	}
}

func TestNewPipeline_BoundaryConfig(t *testing.T) {
	newTestPipeline(t, func(c *Config) {
		c.HashAlgorithm = HashXXHash
		c.ContentThreshold = 1
		c.SimilarityThreshold = 1
		c.SourceWinners = nil
		c.BatchSize = MaxBatchSize
	})
	newTestPipeline(t, func(c *Config) { c.SimilarityThreshold = 0 })
}

func TestPipeline_ConfigIsCopied(t *testing.T) {
	winners := []domain.Source{domain.SourceWeb, domain.SourceRepository}
	p := newTestPipeline(t, func(c *Config) { c.SourceWinners = winners })

	winners[0] = domain.SourceLocal
	got := p.Config()
	if got.SourceWinners[0] != domain.SourceWeb {
		t.Error("pipeline config should not observe caller mutation")
	}

	got.SourceWinners[1] = domain.SourceLocal
	if p.Config().SourceWinners[1] != domain.SourceRepository {
		t.Error("Config() should return a copy")
	}
}

func TestDeduplicate_Empty(t *testing.T) {
	p := newTestPipeline(t, nil)

	res := p.Deduplicate(nil)
	if res.Processed != 0 || res.DuplicatesFound != 0 {
		t.Errorf("counts = %d/%d, want 0/0", res.Processed, res.DuplicatesFound)
	}
	if len(res.DuplicateGroups) != 0 || len(res.CanonicalDocuments) != 0 || len(res.SkippedDocuments) != 0 {
		t.Error("expected all collections empty")
	}
}

func TestDeduplicate_SingleDocument(t *testing.T) {
	p := newTestPipeline(t, nil)
	doc := &domain.Document{ID: "one", Source: domain.SourceLocal, Content: pad("lonely document")}

	res := p.Deduplicate([]*domain.Document{doc})
	if res.Processed != 1 || res.DuplicatesFound != 0 {
		t.Errorf("counts = %d/%d, want 1/0", res.Processed, res.DuplicatesFound)
	}
	if len(res.CanonicalDocuments) != 1 || res.CanonicalDocuments[0] != doc {
		t.Errorf("expected the document to be canonical, got %v", ids(res.CanonicalDocuments))
	}
}

func TestDeduplicate_ThresholdSkip(t *testing.T) {
	p := newTestPipeline(t, nil)

	exactly := strings.Repeat("a", 100)
	docs := []*domain.Document{
		{ID: "short-1", Source: domain.SourceWeb, Content: "tiny"},
		{ID: "short-2", Source: domain.SourceWeb, Content: "tiny"},
		{ID: "padded", Source: domain.SourceWeb, Content: "   " + exactly + "   "},
		{ID: "long", Source: domain.SourceWeb, Content: exactly + "b"},
	}

	res := p.Deduplicate(docs)
	assertPartition(t, docs, res)

	if got := ids(res.SkippedDocuments); strings.Join(got, ",") != "short-1,short-2,padded" {
		t.Errorf("skipped = %v", got)
	}
	if len(res.DuplicateGroups) != 0 {
		t.Errorf("short documents must never be grouped, got %d groups", len(res.DuplicateGroups))
	}
	if got := ids(res.CanonicalDocuments); len(got) != 1 || got[0] != "long" {
		t.Errorf("canonical = %v, want [long]", got)
	}
}

func TestDeduplicate_SourcePriorityCanonical(t *testing.T) {
	p := newTestPipeline(t, nil)

	content := pad("mixed content")
	url := "https://example.com/mixed"
	docs := []*domain.Document{
		{ID: "A", Source: domain.SourceLocal, Priority: 2.0, Content: content, Metadata: domain.Metadata{URL: url}},
		{ID: "B", Source: domain.SourceRepository, Priority: 1.0, Content: content, Metadata: domain.Metadata{URL: url}},
		{ID: "C", Source: domain.SourceWeb, Priority: 1.5, Content: content, Metadata: domain.Metadata{URL: url}},
	}

	res := p.Deduplicate(docs)
	assertPartition(t, docs, res)

	if len(res.DuplicateGroups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(res.DuplicateGroups))
	}
	group := res.DuplicateGroups[0]
	if group.Reason != domain.ReasonExactHash {
		t.Errorf("reason = %v, want exact-hash", group.Reason)
	}
	if group.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", group.Confidence)
	}
	if group.CanonicalDocument.ID != "B" {
		t.Errorf("canonical = %q, want B", group.CanonicalDocument.ID)
	}
	if res.DuplicatesFound != 2 {
		t.Errorf("DuplicatesFound = %d, want 2", res.DuplicatesFound)
	}
}

func TestDeduplicate_ExactHashIgnoresCaseAndWhitespace(t *testing.T) {
	p := newTestPipeline(t, nil)

	docs := []*domain.Document{
		{ID: "1", Source: domain.SourceLocal, Content: pad("Shared Body")},
		{ID: "2", Source: domain.SourceLocal, Content: "\n" + strings.ToUpper(pad("shared body")) + "  "},
	}

	res := p.Deduplicate(docs)
	assertPartition(t, docs, res)

	if len(res.DuplicateGroups) != 1 || res.DuplicateGroups[0].Reason != domain.ReasonExactHash {
		t.Fatalf("expected one exact-hash group, got %+v", res.DuplicateGroups)
	}
}

func TestDeduplicate_URLSimilarity(t *testing.T) {
	p := newTestPipeline(t, nil)

	docs := []*domain.Document{
		{ID: "slash", Source: domain.SourceWeb, Content: pad("alpha release notes for the platform"),
			Metadata: domain.Metadata{URL: "https://example.com/page/"}},
		{ID: "frag", Source: domain.SourceWeb, Content: pad("completely rewritten copy about gardening tools"),
			Metadata: domain.Metadata{URL: "https://example.com/page#frag"}},
	}

	res := p.Deduplicate(docs)
	assertPartition(t, docs, res)

	if len(res.DuplicateGroups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(res.DuplicateGroups))
	}
	group := res.DuplicateGroups[0]
	if group.Reason != domain.ReasonURLSimilarity {
		t.Errorf("reason = %v, want url-similarity", group.Reason)
	}
	if group.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", group.Confidence)
	}
}

func TestDeduplicate_ExactPassRunsBeforeURLPass(t *testing.T) {
	p := newTestPipeline(t, nil)

	first := pad("alpha release notes for the platform")
	docs := []*domain.Document{
		{ID: "slash", Source: domain.SourceWeb, Content: first,
			Metadata: domain.Metadata{URL: "https://example.com/page/"}},
		{ID: "frag", Source: domain.SourceWeb, Content: pad("completely rewritten copy about gardening tools"),
			Metadata: domain.Metadata{URL: "https://example.com/page#frag"}},
		{ID: "copy", Source: domain.SourceWeb, Content: first,
			Metadata: domain.Metadata{URL: "https://example.com/page"}},
	}

	res := p.Deduplicate(docs)
	assertPartition(t, docs, res)

	if len(res.DuplicateGroups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(res.DuplicateGroups))
	}
	group := res.DuplicateGroups[0]
	if group.Reason != domain.ReasonExactHash {
		t.Errorf("reason = %v, want exact-hash", group.Reason)
	}
	members := append([]*domain.Document{group.CanonicalDocument}, group.Duplicates...)
	if got := strings.Join(ids(members), ","); got != "slash,copy" {
		t.Errorf("group members = %s, want slash,copy", got)
	}

	// The remaining document has nothing left to pair with.
	if got := ids(res.CanonicalDocuments); strings.Join(got, ",") != "slash,frag" {
		t.Errorf("canonical = %v, want [slash frag]", got)
	}
}

func TestDeduplicate_URLPassOnlyConsidersWebDocuments(t *testing.T) {
	p := newTestPipeline(t, nil)

	docs := []*domain.Document{
		{ID: "repo-1", Source: domain.SourceRepository, Content: pad("alpha release notes for the platform"),
			Metadata: domain.Metadata{URL: "https://example.com/page"}},
		{ID: "repo-2", Source: domain.SourceRepository, Content: pad("completely rewritten copy about gardening tools"),
			Metadata: domain.Metadata{URL: "https://example.com/page/"}},
		{ID: "web-no-url", Source: domain.SourceWeb, Content: pad("an unrelated article on distributed consensus")},
	}

	res := p.Deduplicate(docs)
	assertPartition(t, docs, res)

	if len(res.DuplicateGroups) != 0 {
		t.Errorf("expected no groups, got %+v", res.DuplicateGroups)
	}
}

func TestDeduplicate_NearDuplicate(t *testing.T) {
	p := newTestPipeline(t, func(c *Config) {
		c.ContentThreshold = 10
		c.SimilarityThreshold = 0.5
	})

	docs := []*domain.Document{
		{ID: "fox", Source: domain.SourceWeb, Content: foxSentence},
		{ID: "elephants", Source: domain.SourceWeb, Content: unrelatedWords},
		{ID: "fox-variant", Source: domain.SourceRepository, Content: foxVariant},
	}

	res := p.Deduplicate(docs)
	assertPartition(t, docs, res)

	if len(res.DuplicateGroups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(res.DuplicateGroups))
	}
	group := res.DuplicateGroups[0]
	if group.Reason != domain.ReasonContentSimilarity {
		t.Errorf("reason = %v, want content-similarity", group.Reason)
	}
	if group.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", group.Confidence)
	}
	if group.CanonicalDocument.ID != "fox-variant" {
		t.Errorf("canonical = %q, want the repository copy", group.CanonicalDocument.ID)
	}
	if len(group.Duplicates) != 1 || group.Duplicates[0].ID != "fox" {
		t.Errorf("duplicates = %v, want [fox]", ids(group.Duplicates))
	}
}

func TestDeduplicate_NearDuplicateClusterAbsorbsAllMatches(t *testing.T) {
	p := newTestPipeline(t, func(c *Config) {
		c.ContentThreshold = 10
		c.SimilarityThreshold = 0.5
	})

	docs := []*domain.Document{
		{ID: "1", Source: domain.SourceWeb, Content: foxSentence},
		{ID: "2", Source: domain.SourceWeb, Content: foxVariant},
		{ID: "3", Source: domain.SourceWeb, Content: "the quick brown fox jumps over the lazy cat"},
	}

	res := p.Deduplicate(docs)
	assertPartition(t, docs, res)

	if len(res.DuplicateGroups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(res.DuplicateGroups))
	}
	if got := len(res.DuplicateGroups[0].Duplicates); got != 2 {
		t.Errorf("expected 2 duplicates, got %d", got)
	}
}

func TestDeduplicate_BatchBoundaryNotDetected(t *testing.T) {
	p := newTestPipeline(t, func(c *Config) { c.BatchSize = 1 })

	content := pad("identical content in two batches")
	docs := []*domain.Document{
		{ID: "1", Source: domain.SourceLocal, Content: content},
		{ID: "2", Source: domain.SourceLocal, Content: content},
	}

	res := p.Deduplicate(docs)
	assertPartition(t, docs, res)

	if res.DuplicatesFound != 0 {
		t.Errorf("DuplicatesFound = %d, want 0", res.DuplicatesFound)
	}
	if len(res.CanonicalDocuments) != 2 {
		t.Errorf("expected both documents canonical, got %v", ids(res.CanonicalDocuments))
	}
}

func TestDeduplicate_BatchesMergeInOrder(t *testing.T) {
	p := newTestPipeline(t, func(c *Config) { c.BatchSize = 2 })

	a := pad("first shared body of text")
	b := pad("second shared body of text")

	together := []*domain.Document{
		{ID: "a1", Source: domain.SourceLocal, Content: a},
		{ID: "a2", Source: domain.SourceLocal, Content: a},
		{ID: "b1", Source: domain.SourceLocal, Content: b},
		{ID: "b2", Source: domain.SourceLocal, Content: b},
		{ID: "short", Source: domain.SourceLocal, Content: "x"},
	}
	res := p.Deduplicate(together)
	assertPartition(t, together, res)
	if len(res.DuplicateGroups) != 2 || res.DuplicatesFound != 2 {
		t.Errorf("groups = %d, duplicates = %d, want 2/2", len(res.DuplicateGroups), res.DuplicatesFound)
	}
	if got := strings.Join(ids(res.CanonicalDocuments), ","); got != "a1,b1" {
		t.Errorf("canonical = %s, want a1,b1", got)
	}

	split := []*domain.Document{
		{ID: "a1", Source: domain.SourceLocal, Content: a},
		{ID: "b1", Source: domain.SourceLocal, Content: b},
		{ID: "a2", Source: domain.SourceLocal, Content: a},
		{ID: "b2", Source: domain.SourceLocal, Content: b},
	}
	res = p.Deduplicate(split)
	assertPartition(t, split, res)
	if res.DuplicatesFound != 0 {
		t.Errorf("cross-batch duplicates should not be found, got %d", res.DuplicatesFound)
	}
}

func TestDeduplicate_PartitionOnMixedInput(t *testing.T) {
	p := newTestPipeline(t, func(c *Config) {
		c.ContentThreshold = 20
		c.SimilarityThreshold = 0.6
	})

	body := pad("the shared body everyone copies")
	docs := []*domain.Document{
		{ID: "repo", Source: domain.SourceRepository, Content: body},
		{ID: "web", Source: domain.SourceWeb, Content: body},
		{ID: "short", Source: domain.SourceLocal, Content: "too short"},
		{ID: "page-a", Source: domain.SourceWeb, Content: pad("one version of the landing page"),
			Metadata: domain.Metadata{URL: "https://example.com/landing/index.html"}},
		{ID: "page-b", Source: domain.SourceWeb, Content: pad("a fully different landing page text"),
			Metadata: domain.Metadata{URL: "https://example.com/landing?ref=nav"}},
		{ID: "fox", Source: domain.SourceLocal, Content: foxSentence},
		{ID: "fox-2", Source: domain.SourceLocal, Content: foxVariant},
		{ID: "unique", Source: domain.SourceLocal, Content: unrelatedWords},
	}

	res := p.Deduplicate(docs)
	assertPartition(t, docs, res)

	reasons := make(map[domain.Reason]int)
	for _, g := range res.DuplicateGroups {
		reasons[g.Reason]++
	}
	if reasons[domain.ReasonExactHash] != 1 || reasons[domain.ReasonURLSimilarity] != 1 || reasons[domain.ReasonContentSimilarity] != 1 {
		t.Errorf("unexpected group reasons: %v", reasons)
	}
}

// Exact groups collapse to one member each, so a rerun over an exact-only
// canonical set finds nothing.
func TestDeduplicate_IdempotentOnExactOnlyCanonicalSet(t *testing.T) {
	p := newTestPipeline(t, nil)

	body := pad("a document mirrored in several places")
	docs := []*domain.Document{
		{ID: "1", Source: domain.SourceWeb, Content: body},
		{ID: "2", Source: domain.SourceRepository, Content: body},
		{ID: "3", Source: domain.SourceLocal, Content: pad("an unrelated handbook about sailing boats")},
		{ID: "4", Source: domain.SourceLocal, Content: pad("an unrelated handbook about sailing boats")},
		{ID: "5", Source: domain.SourceWeb, Content: pad("quarterly earnings summary with numbers")},
	}

	first := p.Deduplicate(docs)
	if len(first.DuplicateGroups) == 0 {
		t.Fatal("expected groups on the first run")
	}

	second := p.Deduplicate(first.CanonicalDocuments)
	assertPartition(t, first.CanonicalDocuments, second)
	if len(second.DuplicateGroups) != 0 {
		t.Errorf("expected no groups on the canonical set, got %d", len(second.DuplicateGroups))
	}
}

// The exact pass consumes same-content siblings before the URL pass runs,
// so the surviving canonical can share a URL with a differing document.
// A rerun groups them by URL.
func TestDeduplicate_RerunRegroupsURLSiblings(t *testing.T) {
	p := newTestPipeline(t, nil)

	c1 := pad("the product page as it was first published")
	c2 := pad("a reworked product page with new pricing tables")
	docs := []*domain.Document{
		{ID: "A", Source: domain.SourceWeb, Content: c1, Metadata: domain.Metadata{URL: "https://example.com/page/"}},
		{ID: "B", Source: domain.SourceWeb, Content: c2, Metadata: domain.Metadata{URL: "https://example.com/page#frag"}},
		{ID: "C", Source: domain.SourceWeb, Content: c1, Metadata: domain.Metadata{URL: "https://example.com/page"}},
	}

	first := p.Deduplicate(docs)
	assertPartition(t, docs, first)
	if len(first.DuplicateGroups) != 1 || first.DuplicateGroups[0].Reason != domain.ReasonExactHash {
		t.Fatalf("expected one exact-hash group on the first run, got %+v", first.DuplicateGroups)
	}
	if got := strings.Join(ids(first.CanonicalDocuments), ","); got != "A,B" {
		t.Fatalf("canonical = %s, want A,B", got)
	}

	second := p.Deduplicate(first.CanonicalDocuments)
	assertPartition(t, first.CanonicalDocuments, second)
	if len(second.DuplicateGroups) != 1 {
		t.Fatalf("expected one group on the rerun, got %d", len(second.DuplicateGroups))
	}
	group := second.DuplicateGroups[0]
	if group.Reason != domain.ReasonURLSimilarity {
		t.Errorf("Reason = %s, want %s", group.Reason, domain.ReasonURLSimilarity)
	}
	if group.CanonicalDocument.ID != "A" || len(group.Duplicates) != 1 || group.Duplicates[0].ID != "B" {
		t.Errorf("expected A kept over B, got %s over %v", group.CanonicalDocument.ID, ids(group.Duplicates))
	}

	third := p.Deduplicate(second.CanonicalDocuments)
	if len(third.DuplicateGroups) != 0 {
		t.Errorf("expected the second canonical set to be stable, got %d groups", len(third.DuplicateGroups))
	}
}

func TestDeduplicate_DropsNilDocuments(t *testing.T) {
	p := newTestPipeline(t, nil)
	doc := &domain.Document{ID: "x", Source: domain.SourceWeb, Content: pad("content")}

	res := p.Deduplicate([]*domain.Document{nil, doc, nil})
	if res.Processed != 1 {
		t.Errorf("Processed = %d, want 1", res.Processed)
	}
}

func TestDeduplicate_CallsDoNotInteract(t *testing.T) {
	p := newTestPipeline(t, nil)
	content := pad("shared across calls")

	first := p.Deduplicate([]*domain.Document{{ID: "1", Source: domain.SourceWeb, Content: content}})
	second := p.Deduplicate([]*domain.Document{{ID: "2", Source: domain.SourceWeb, Content: content}})

	if first.DuplicatesFound != 0 || second.DuplicatesFound != 0 {
		t.Error("separate calls must not detect each other's documents")
	}
}
