package dedup

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Weights of the individual measures in Combined.
const (
	jaccardWeight     = 0.4
	cosineWeight      = 0.4
	levenshteinWeight = 0.2
)

// words splits case-folded text on whitespace.
func words(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// wordCounts builds a word frequency vector.
func wordCounts(s string) map[string]int {
	counts := make(map[string]int)
	for _, w := range words(s) {
		counts[w]++
	}
	return counts
}

// Jaccard returns the ratio of shared distinct words to the union of
// distinct words. It is 0 when both texts have no words.
func Jaccard(a, b string) float64 {
	setA := wordCounts(a)
	setB := wordCounts(b)

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Cosine returns the cosine similarity of the word frequency vectors of a
// and b. It is 0 when either text has no words.
func Cosine(a, b string) float64 {
	vecA := wordCounts(a)
	vecB := wordCounts(b)

	var dot, normA, normB float64
	for w, ca := range vecA {
		normA += float64(ca * ca)
		if cb, ok := vecB[w]; ok {
			dot += float64(ca * cb)
		}
	}
	for _, cb := range vecB {
		normB += float64(cb * cb)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Levenshtein returns 1 - editDistance/max(len(a), len(b)), measured in
// runes. Two empty strings are identical. Cost is O(len(a)·len(b)); callers
// bound the input size.
func Levenshtein(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return clamp01(1 - float64(dist)/float64(maxLen))
}

// Combined weights Jaccard, Cosine and Levenshtein 0.4/0.4/0.2.
func Combined(a, b string) float64 {
	return jaccardWeight*Jaccard(a, b) +
		cosineWeight*Cosine(a, b) +
		levenshteinWeight*Levenshtein(a, b)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
