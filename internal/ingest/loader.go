package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
)

// maxLineSize bounds a single JSON-lines record (16MB).
const maxLineSize = 16 * 1024 * 1024

// LoadResult holds the documents read from an input file.
type LoadResult struct {
	Documents []*domain.Document

	// Skipped counts JSON-lines records that could not be decoded.
	Skipped int
}

// LoadDocuments reads documents from a file containing either a JSON array
// or one JSON object per line.
func LoadDocuments(path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadDocuments(f)
}

// ReadDocuments decodes documents from r. A leading '[' selects JSON array
// mode, anything else is treated as JSON lines. Malformed lines are
// skipped; a malformed array fails the whole read.
func ReadDocuments(r io.Reader) (*LoadResult, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return &LoadResult{Documents: []*domain.Document{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	if first == '[' {
		var docs []*domain.Document
		if err := json.NewDecoder(br).Decode(&docs); err != nil {
			return nil, fmt.Errorf("failed to parse document array: %w", err)
		}
		return &LoadResult{Documents: docs}, nil
	}

	result := &LoadResult{Documents: []*domain.Document{}}
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var doc domain.Document
		if err := json.Unmarshal(line, &doc); err != nil {
			result.Skipped++
			continue
		}
		result.Documents = append(result.Documents, &doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read document lines: %w", err)
	}
	return result, nil
}

// peekNonSpace discards leading whitespace and returns the next byte
// without consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
