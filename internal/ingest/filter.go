package ingest

import (
	"path/filepath"
	"strings"
)

// DefaultExcludedDirs are directory names never descended into.
var DefaultExcludedDirs = []string{
	".git", ".hg", ".svn",
	"node_modules", "vendor", "venv", ".venv",
	"target", "build", "dist", "out",
	"__pycache__", ".pytest_cache", ".gradle", ".m2", ".npm", ".yarn",
}

// DefaultExcludedExtensions are file extensions that never hold ingestible text.
var DefaultExcludedExtensions = []string{
	// Images
	".png", ".jpg", ".jpeg", ".gif", ".ico", ".svg", ".bmp", ".tiff", ".webp", ".psd",
	// Fonts
	".woff", ".woff2", ".ttf", ".eot", ".otf",
	// Archives
	".zip", ".tar", ".gz", ".rar", ".7z", ".bz2", ".xz", ".jar", ".war",
	// Executables and libraries
	".exe", ".dll", ".so", ".dylib", ".a", ".lib", ".class", ".pyc", ".o", ".obj",
	// Office documents
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	// Databases and media
	".db", ".sqlite", ".sqlite3", ".mp3", ".mp4", ".wav", ".avi", ".mov", ".mkv",
}

// DefaultExcludedFiles are generated files matched by base name.
var DefaultExcludedFiles = []string{
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml",
	"go.sum", "poetry.lock", "Cargo.lock",
	"*.min.js", "*.min.css", "*.map",
}

// PathFilter decides which paths a local scan skips.
type PathFilter struct {
	dirs  map[string]bool
	exts  map[string]bool
	files []string
}

// NewPathFilter creates a filter with the default exclusions.
func NewPathFilter() *PathFilter {
	return NewPathFilterWith(DefaultExcludedDirs, DefaultExcludedExtensions, DefaultExcludedFiles)
}

// NewPathFilterWith creates a filter from explicit exclusion lists.
// File patterns use filepath.Match syntax against the base name.
func NewPathFilterWith(dirs, exts, files []string) *PathFilter {
	f := &PathFilter{
		dirs:  make(map[string]bool, len(dirs)),
		exts:  make(map[string]bool, len(exts)),
		files: files,
	}
	for _, d := range dirs {
		f.dirs[d] = true
	}
	for _, e := range exts {
		f.exts[strings.ToLower(e)] = true
	}
	return f
}

// SkipDir reports whether a directory with the given base name is excluded.
func (f *PathFilter) SkipDir(name string) bool {
	return f.dirs[name]
}

// SkipFile reports whether a file path (relative to the scan root) is
// excluded, either by living under an excluded directory or by its name.
func (f *PathFilter) SkipFile(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	parts := strings.Split(relPath, "/")
	for _, dir := range parts[:len(parts)-1] {
		if f.dirs[dir] {
			return true
		}
	}

	base := parts[len(parts)-1]
	if f.exts[strings.ToLower(filepath.Ext(base))] {
		return true
	}
	for _, pattern := range f.files {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// IsBinary reports whether content looks binary: a NUL byte within the
// first 512 bytes.
func IsBinary(content []byte) bool {
	head := content[:min(len(content), 512)]
	for _, b := range head {
		if b == 0 {
			return true
		}
	}
	return false
}
