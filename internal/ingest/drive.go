package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/marigram-tracker/internal/drive"
)

// DriveClient is the part of drive.Client the source needs.
type DriveClient interface {
	Walk(ctx context.Context, folderIDs []string) ([]drive.File, error)
	Download(ctx context.Context, fileID, dest string) error
}

// DriveSource serves scans from Drive folders through a local cache. The item
// ID is the Drive file id.
type DriveSource struct {
	client    DriveClient
	folderIDs []string
	cacheDir  string
	logger    *slog.Logger
}

func NewDriveSource(client DriveClient, folderIDs []string, cacheDir string, logger *slog.Logger) *DriveSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DriveSource{client: client, folderIDs: folderIDs, cacheDir: cacheDir, logger: logger}
}

func (s *DriveSource) Name() string { return "drive" }

func (s *DriveSource) List(ctx context.Context) ([]Item, error) {
	files, err := s.client.Walk(ctx, s.folderIDs)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(files))
	for _, f := range files {
		if !IsImage(f.RelPath) {
			continue
		}
		items = append(items, Item{ID: f.ID, RelPath: f.RelPath})
	}
	s.logger.Info("ingest.drive.listed", "files", len(files), "images", len(items))
	return items, nil
}

// Fetch downloads the file unless the cache already has it.
func (s *DriveSource) Fetch(ctx context.Context, it Item) (string, error) {
	local := filepath.Join(s.cacheDir, filepath.FromSlash(it.RelPath))
	_, err := os.Stat(local)
	switch {
	case err == nil:
		s.logger.Debug("ingest.drive.cached", "path", it.RelPath)
		return local, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("stat cache %s: %w", local, err)
	}
	s.logger.Info("ingest.drive.download", "file_id", it.ID, "path", it.RelPath)
	if err := s.client.Download(ctx, it.ID, local); err != nil {
		return "", err
	}
	return local, nil
}
