package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
)

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}
	return path
}

func TestLoadDocuments_Array(t *testing.T) {
	path := writeInput(t, `
  [
    {"id": "a", "content": "alpha", "source": "repository", "filepath": "a.md", "priority": 2},
    {"id": "b", "content": "beta", "source": "web", "metadata": {"url": "https://example.com/b", "last_modified": "2024-01-02T03:04:05Z"}}
  ]`)

	result, err := LoadDocuments(path)
	if err != nil {
		t.Fatalf("LoadDocuments failed: %v", err)
	}
	if len(result.Documents) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(result.Documents))
	}

	a, b := result.Documents[0], result.Documents[1]
	if a.ID != "a" || a.Source != domain.SourceRepository || a.FilePath != "a.md" || a.Priority != 2 {
		t.Errorf("Unexpected first document: %+v", a)
	}
	if b.Metadata.URL != "https://example.com/b" || b.Metadata.LastModified == nil {
		t.Errorf("Unexpected second document metadata: %+v", b.Metadata)
	}
}

func TestLoadDocuments_InvalidArray(t *testing.T) {
	path := writeInput(t, `[{"id": "a", "content": ]`)

	if _, err := LoadDocuments(path); err == nil {
		t.Fatal("Expected error for malformed array")
	}
}

func TestLoadDocuments_JSONLines(t *testing.T) {
	lines := []string{
		`{"id": "1", "content": "one", "source": "local"}`,
		``,
		`not json`,
		`{"id": "2", "content": "two", "source": "local"}`,
		`   `,
		`{"id": "3", "content": "three", "source": "web"}`,
	}
	path := writeInput(t, strings.Join(lines, "\n"))

	result, err := LoadDocuments(path)
	if err != nil {
		t.Fatalf("LoadDocuments failed: %v", err)
	}
	if len(result.Documents) != 3 {
		t.Fatalf("Expected 3 documents, got %d", len(result.Documents))
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
	for i, want := range []string{"1", "2", "3"} {
		if result.Documents[i].ID != want {
			t.Errorf("Documents[%d].ID = %q, want %q", i, result.Documents[i].ID, want)
		}
	}
}

func TestLoadDocuments_Empty(t *testing.T) {
	result, err := LoadDocuments(writeInput(t, "  \n\n "))
	if err != nil {
		t.Fatalf("LoadDocuments failed: %v", err)
	}
	if result.Documents == nil || len(result.Documents) != 0 {
		t.Errorf("Expected an empty non-nil document list, got %v", result.Documents)
	}
}

func TestLoadDocuments_MissingFile(t *testing.T) {
	if _, err := LoadDocuments(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestReadDocuments_SingleObject(t *testing.T) {
	result, err := ReadDocuments(strings.NewReader(`{"id": "solo", "content": "x"}`))
	if err != nil {
		t.Fatalf("ReadDocuments failed: %v", err)
	}
	if len(result.Documents) != 1 || result.Documents[0].ID != "solo" {
		t.Errorf("Unexpected documents: %+v", result.Documents)
	}
}
