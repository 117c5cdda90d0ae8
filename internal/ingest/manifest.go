package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// ManifestVersion is the current schema version
	ManifestVersion = 1

	// ManifestFilename is the manifest file name under the base directory
	ManifestFilename = "manifest.json"
)

// Totals are cumulative counters across ingest runs.
type Totals struct {
	Processed      int `json:"processed"`
	Duplicates     int `json:"duplicates"`
	Skipped        int `json:"skipped"`
	Indexed        int `json:"indexed"`
	AlreadyIndexed int `json:"already_indexed"`
}

// Add accumulates other into t.
func (t *Totals) Add(other Totals) {
	t.Processed += other.Processed
	t.Duplicates += other.Duplicates
	t.Skipped += other.Skipped
	t.Indexed += other.Indexed
	t.AlreadyIndexed += other.AlreadyIndexed
}

// Manifest records ingest history for a base directory.
type Manifest struct {
	Version       int          `json:"version"`
	LastRun       time.Time    `json:"last_run"`
	RunCount      int          `json:"run_count"`
	LastRunTotals Totals       `json:"last_run_totals"`
	Totals        Totals       `json:"totals"`
	mu            sync.RWMutex `json:"-"`
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{Version: ManifestVersion}
}

// LoadManifest reads a manifest from disk, returning an empty one when the
// file does not exist.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Version == 0 {
		m.Version = ManifestVersion
	}
	return &m, nil
}

// RecordRun adds one run's counters and stamps the run time.
func (m *Manifest) RecordRun(run Totals, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunCount++
	m.LastRun = at
	m.LastRunTotals = run
	m.Totals.Add(run)
}

// Snapshot returns the run count and cumulative totals.
func (m *Manifest) Snapshot() (int, Totals) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RunCount, m.Totals
}

// Save writes the manifest atomically via a temp file and rename.
func (m *Manifest) Save(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename manifest file: %w", err)
	}
	return nil
}
