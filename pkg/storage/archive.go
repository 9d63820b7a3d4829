package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ExportArchive keeps a dated copy of every rendered report document on
// disk so an admin can retrieve past exports without regenerating them.
type ExportArchive struct {
	baseDir string
}

// NewExportArchive ensures the archive directory exists and returns a handle.
func NewExportArchive(baseDir string) (*ExportArchive, error) {
	if baseDir == "" {
		baseDir = "./exports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &ExportArchive{baseDir: baseDir}, nil
}

// Store writes the document under a timestamped name derived from filename
// and returns the stored name.
func (a *ExportArchive) Store(filename string, data []byte) (string, error) {
	if a == nil {
		return "", nil
	}
	stamped := stampedName(filename, time.Now().UTC())
	path := filepath.Join(a.baseDir, stamped)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write archived export: %w", err)
	}
	return stamped, nil
}

// CleanupOlderThan removes archived documents older than ttl and returns
// the names it deleted.
func (a *ExportArchive) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	if a == nil {
		return nil, nil
	}
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	entries, err := os.ReadDir(a.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read archive directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(a.baseDir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("delete archived export: %w", err)
		}
		deleted = append(deleted, entry.Name())
	}
	return deleted, nil
}

func stampedName(filename string, at time.Time) string {
	ext := filepath.Ext(filename)
	base := filename[:len(filename)-len(ext)]
	return fmt.Sprintf("%s-%s%s", base, at.Format("20060102-150405"), ext)
}
