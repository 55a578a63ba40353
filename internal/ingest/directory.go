package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DirStats summarizes a directory walk.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// DirSource serves scans found under a local folder, in place.
type DirSource struct {
	root       string
	skipHidden bool
	logger     *slog.Logger
}

func NewDirSource(root string, logger *slog.Logger) *DirSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSource{root: root, skipHidden: true, logger: logger}
}

func (s *DirSource) Name() string { return "dir:" + s.root }

// List walks root and returns every image file. The item ID is the relative path.
func (s *DirSource) List(ctx context.Context) ([]Item, error) {
	if strings.TrimSpace(s.root) == "" {
		return nil, errors.New("root_path is required")
	}

	var items []Item
	var stats DirStats

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			s.logger.Warn("ingest.walk.error", "path", path, "error", walkErr)
			stats.Failed++
			return nil // continue walking
		}
		// skip hidden dirs/files, including our own cache and temp files
		if s.skipHidden && path != s.root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsImage(path) {
			return nil
		}
		stats.Matched++

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			stats.Failed++
			return nil
		}
		rel = filepath.ToSlash(rel)
		items = append(items, Item{ID: rel, RelPath: rel, LocalPath: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	s.logger.Info("ingest.dir.listed", "root", s.root, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
	return items, nil
}

func (s *DirSource) Fetch(_ context.Context, it Item) (string, error) {
	path := it.LocalPath
	if path == "" {
		path = filepath.Join(s.root, filepath.FromSlash(it.RelPath))
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat %s: %w", it.RelPath, err)
	}
	return path, nil
}
