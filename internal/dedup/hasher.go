package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// indexFilePattern matches a trailing index file such as /index.html.
var indexFilePattern = regexp.MustCompile(`/index\.(html?|php|aspx?)$`)

// Hasher fingerprints document content and URLs. It is pure and safe for
// concurrent use.
type Hasher struct {
	digest func(string) string
}

// NewHasher creates a Hasher for the given algorithm.
func NewHasher(algorithm string) (*Hasher, error) {
	switch algorithm {
	case HashSHA256:
		return &Hasher{digest: sha256Hex}, nil
	case HashXXHash:
		return &Hasher{digest: xxhashHex}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported hash algorithm %q", ErrInvalidConfig, algorithm)
	}
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func xxhashHex(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// ContentHash digests trimmed, lower-cased content.
func (h *Hasher) ContentHash(content string) string {
	return h.digest(NormalizeContent(content))
}

// URLHash digests the canonical form of a URL.
func (h *Hasher) URLHash(rawURL string) string {
	return h.digest(CanonicalURL(rawURL))
}

// Fingerprint digests normalized content together with the canonical URL
// when one is present. It is the key for exact-duplicate grouping and for
// store existence lookups.
func (h *Hasher) Fingerprint(content, rawURL string) string {
	normalized := NormalizeContent(content)
	if canonical := CanonicalURL(rawURL); canonical != "" {
		normalized += "|" + canonical
	}
	return h.digest(normalized)
}

// NormalizeContent trims surrounding whitespace and lower-cases content.
func NormalizeContent(content string) string {
	return strings.ToLower(strings.TrimSpace(content))
}

// CanonicalURL lower-cases a URL and strips its query string, fragment,
// trailing index file and trailing slashes.
//
// Examples:
//   - https://Example.com/Page/ -> https://example.com/page
//   - https://example.com/page#frag -> https://example.com/page
//   - https://example.com/docs/index.html?x=1 -> https://example.com/docs
func CanonicalURL(rawURL string) string {
	u := strings.ToLower(strings.TrimSpace(rawURL))
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	u = indexFilePattern.ReplaceAllString(u, "")
	return strings.TrimRight(u, "/")
}
