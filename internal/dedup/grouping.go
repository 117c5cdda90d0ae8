package dedup

import (
	"strings"
	"unicode/utf8"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
)

// groupingEngine runs the exact-hash, URL and near-duplicate passes over a
// single batch. All state it builds is local to one call of group.
type groupingEngine struct {
	hasher              *Hasher
	selector            *CanonicalSelector
	contentThreshold    int
	similarityThreshold float64
}

// batchState tracks which batch positions have been claimed by a pass.
type batchState struct {
	docs      []*domain.Document
	processed []bool
	result    *domain.DeduplicationResult
}

// group clusters docs and resolves every cluster to a canonical document.
func (g *groupingEngine) group(docs []*domain.Document) *domain.DeduplicationResult {
	st := &batchState{
		docs:      docs,
		processed: make([]bool, len(docs)),
		result:    domain.NewDeduplicationResult(),
	}
	st.result.Processed = len(docs)

	candidates := g.exactHashPass(st)
	g.urlPass(st, candidates)
	g.nearDuplicatePass(st, candidates)

	// Whatever no pass claimed is unique.
	for _, i := range candidates {
		if !st.processed[i] {
			st.result.CanonicalDocuments = append(st.result.CanonicalDocuments, docs[i])
		}
	}
	return st.result
}

// belowThreshold reports whether a document is too short to compare.
func (g *groupingEngine) belowThreshold(doc *domain.Document) bool {
	return utf8.RuneCountInString(strings.TrimSpace(doc.Content)) <= g.contentThreshold
}

// exactHashPass records short documents as skipped, buckets the rest by
// fingerprint and emits every bucket of two or more. It returns the
// positions of the documents that were not skipped.
func (g *groupingEngine) exactHashPass(st *batchState) []int {
	candidates := make([]int, 0, len(st.docs))
	buckets := make(map[string][]int)
	var order []string

	for i, doc := range st.docs {
		if g.belowThreshold(doc) {
			st.processed[i] = true
			st.result.SkippedDocuments = append(st.result.SkippedDocuments, doc)
			continue
		}
		candidates = append(candidates, i)

		fp := g.hasher.Fingerprint(doc.Content, doc.Metadata.URL)
		if _, ok := buckets[fp]; !ok {
			order = append(order, fp)
		}
		buckets[fp] = append(buckets[fp], i)
	}

	for _, fp := range order {
		if members := buckets[fp]; len(members) >= 2 {
			g.emit(st, members, domain.ReasonExactHash)
		}
	}
	return candidates
}

// urlPass buckets unprocessed web documents by canonical URL and emits
// buckets whose members carry different content.
func (g *groupingEngine) urlPass(st *batchState, candidates []int) {
	buckets := make(map[string][]int)
	var order []string

	for _, i := range candidates {
		doc := st.docs[i]
		if st.processed[i] || doc.Source != domain.SourceWeb || CanonicalURL(doc.Metadata.URL) == "" {
			continue
		}
		key := g.hasher.URLHash(doc.Metadata.URL)
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], i)
	}

	for _, key := range order {
		members := buckets[key]
		if len(members) < 2 || g.sameContent(st, members) {
			continue
		}
		g.emit(st, members, domain.ReasonURLSimilarity)
	}
}

// sameContent reports whether every member has the same content hash.
func (g *groupingEngine) sameContent(st *batchState, members []int) bool {
	first := g.hasher.ContentHash(st.docs[members[0]].Content)
	for _, i := range members[1:] {
		if g.hasher.ContentHash(st.docs[i].Content) != first {
			return false
		}
	}
	return true
}

// nearDuplicatePass compares each remaining document with every later
// remaining one, in input order. A match joins the earlier document's
// cluster and is not compared again. O(n²) in the remaining count.
func (g *groupingEngine) nearDuplicatePass(st *batchState, candidates []int) {
	remaining := make([]int, 0, len(candidates))
	for _, i := range candidates {
		if !st.processed[i] {
			remaining = append(remaining, i)
		}
	}

	for a, i := range remaining {
		if st.processed[i] {
			continue
		}
		cluster := []int{i}
		for _, j := range remaining[a+1:] {
			if st.processed[j] {
				continue
			}
			if Combined(st.docs[i].Content, st.docs[j].Content) >= g.similarityThreshold {
				cluster = append(cluster, j)
				st.processed[j] = true
			}
		}
		if len(cluster) >= 2 {
			g.emit(st, cluster, domain.ReasonContentSimilarity)
		}
	}
}

// emit resolves a cluster, marks its members processed and records it.
func (g *groupingEngine) emit(st *batchState, members []int, reason domain.Reason) {
	cluster := make([]*domain.Document, len(members))
	for k, i := range members {
		cluster[k] = st.docs[i]
		st.processed[i] = true
	}

	group := g.selector.Resolve(cluster, reason)
	st.result.DuplicateGroups = append(st.result.DuplicateGroups, group)
	st.result.CanonicalDocuments = append(st.result.CanonicalDocuments, group.CanonicalDocument)
	st.result.DuplicatesFound += len(group.Duplicates)
}
