package dedup

import (
	"sort"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
)

// CanonicalSelector picks the representative of a duplicate cluster.
type CanonicalSelector struct {
	rank map[domain.Source]int
}

// NewCanonicalSelector creates a selector for the given source ranking.
// Earlier sources outrank later ones; unlisted sources rank last.
func NewCanonicalSelector(sourceWinners []domain.Source) *CanonicalSelector {
	rank := make(map[domain.Source]int, len(sourceWinners))
	for i, s := range sourceWinners {
		rank[s] = i
	}
	return &CanonicalSelector{rank: rank}
}

// sourceRank returns the position of s in the winners list, or the list
// length when s is not listed.
func (c *CanonicalSelector) sourceRank(s domain.Source) int {
	if r, ok := c.rank[s]; ok {
		return r
	}
	return len(c.rank)
}

// Score is the tie-break among documents of equal source rank:
// priority × content length × last-modified epoch millis. Undated
// documents score 0.
func Score(doc *domain.Document) float64 {
	return doc.EffectivePriority() * float64(doc.ContentLength()) * float64(doc.LastModifiedMillis())
}

// Select returns the canonical document of cluster and the remaining
// members in their original order. Ties left after both keys resolve to
// input order. cluster must not be empty.
func (c *CanonicalSelector) Select(cluster []*domain.Document) (*domain.Document, []*domain.Document) {
	order := make([]int, len(cluster))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := cluster[order[i]], cluster[order[j]]
		ra, rb := c.sourceRank(a.Source), c.sourceRank(b.Source)
		if ra != rb {
			return ra < rb
		}
		return Score(a) > Score(b)
	})

	winner := order[0]
	duplicates := make([]*domain.Document, 0, len(cluster)-1)
	for i, doc := range cluster {
		if i != winner {
			duplicates = append(duplicates, doc)
		}
	}
	return cluster[winner], duplicates
}

// Resolve builds a DuplicateGroup from a cluster of at least two documents.
func (c *CanonicalSelector) Resolve(cluster []*domain.Document, reason domain.Reason) domain.DuplicateGroup {
	canonical, duplicates := c.Select(cluster)
	return domain.DuplicateGroup{
		CanonicalDocument: canonical,
		Duplicates:        duplicates,
		Reason:            reason,
		Confidence:        reason.Confidence(),
	}
}
