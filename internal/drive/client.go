// Package drive lists and downloads marigram scans from Google Drive folders.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/marigram-tracker/internal/common"
)

const (
	folderMime = "application/vnd.google-apps.folder"
	pageSize   = 1000
	listFields = "nextPageToken, files(id, name, mimeType)"
)

// Retry is the policy for every Drive call.
var Retry = common.RetryPolicy{Tries: 5, Initial: time.Second, Multiplier: 1.8}

// File is one non-folder entry found under the configured roots.
type File struct {
	ID       string
	RelPath  string // folder/sub/name.ext relative to the root folder
	MimeType string
}

// Client wraps the Drive v3 files API with retries.
type Client struct {
	svc    *drivev3.Service
	retry  common.RetryPolicy
	logger *slog.Logger
}

// New builds a read-only Drive client. With no extra options the credentials
// file is used; tests pass option.WithEndpoint and friends instead.
func New(ctx context.Context, credentialsFile string, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts) == 0 {
		opts = []option.ClientOption{
			option.WithCredentialsFile(credentialsFile),
			option.WithScopes(drivev3.DriveReadonlyScope),
		}
	}
	svc, err := drivev3.NewService(ctx, opts...)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "create drive service", err)
	}
	return &Client{svc: svc, retry: Retry, logger: logger}, nil
}

// WithRetry overrides the retry policy.
func (c *Client) WithRetry(p common.RetryPolicy) *Client {
	c.retry = p
	return c
}

// Walk lists every non-trashed file below folderIDs, descending into
// subfolders depth-first. The result order is the discovery order.
func (c *Client) Walk(ctx context.Context, folderIDs []string) ([]File, error) {
	type frame struct{ id, prefix string }
	stack := make([]frame, 0, len(folderIDs))
	for _, id := range folderIDs {
		stack = append(stack, frame{id: id})
	}

	var out []File
	seen := map[string]struct{}{}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := c.listChildren(ctx, top.id)
		if err != nil {
			return nil, err
		}
		for _, f := range children {
			if f.MimeType == folderMime {
				stack = append(stack, frame{id: f.Id, prefix: top.prefix + f.Name + "/"})
				continue
			}
			if _, dup := seen[f.Id]; dup {
				continue
			}
			seen[f.Id] = struct{}{}
			out = append(out, File{ID: f.Id, RelPath: top.prefix + f.Name, MimeType: f.MimeType})
		}
	}
	c.logger.Info("drive.walk.ok", "roots", len(folderIDs), "files", len(out))
	return out, nil
}

func (c *Client) listChildren(ctx context.Context, folderID string) ([]*drivev3.File, error) {
	var items []*drivev3.File
	pageToken := ""
	for {
		var resp *drivev3.FileList
		err := c.call(ctx, "list", func() error {
			call := c.svc.Files.List().
				Q(fmt.Sprintf("'%s' in parents and trashed=false", folderID)).
				Fields(listFields).
				PageSize(pageSize).
				SupportsAllDrives(true).
				IncludeItemsFromAllDrives(true).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", folderID, err)
		}
		items = append(items, resp.Files...)
		if resp.NextPageToken == "" {
			return items, nil
		}
		pageToken = resp.NextPageToken
	}
}

// Download writes the file content to dest through a temp file in the same
// directory, so dest only ever holds a complete download.
func (c *Client) Download(ctx context.Context, fileID, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	start := time.Now()
	var written int64
	err := c.call(ctx, "download", func() error {
		resp, err := c.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
		if err != nil {
			return common.Permanent(err)
		}
		tmpPath := tmp.Name()
		n, copyErr := io.Copy(tmp, resp.Body)
		closeErr := tmp.Close()
		if copyErr != nil || closeErr != nil {
			_ = os.Remove(tmpPath)
			return errors.Join(copyErr, closeErr)
		}
		if err := os.Rename(tmpPath, dest); err != nil {
			_ = os.Remove(tmpPath)
			return common.Permanent(err)
		}
		written = n
		return nil
	})
	if err != nil {
		return common.NewAppError(common.CodeDownload, fmt.Sprintf("download %s", fileID), err)
	}
	c.logger.Debug("drive.download.ok", "file_id", fileID, "bytes", written, "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// call retries op; client errors other than 429 are not retried.
func (c *Client) call(ctx context.Context, what string, op func() error) error {
	return common.Retry(ctx, c.retry, func() error {
		err := op()
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code/100 == 4 && gerr.Code != http.StatusTooManyRequests {
			return common.Permanent(err)
		}
		return err
	}, func(err error, wait time.Duration) {
		c.logger.Warn("drive.retry", "op", what, "error", err, "wait_ms", wait.Milliseconds())
	})
}
