// Package ingest enumerates marigram scans and makes each one available as a
// local file, whether it lives in a local folder or in Google Drive.
package ingest

import (
	"context"
	"math/rand"
	"slices"
	"strings"
)

// Item is one scan to process.
type Item struct {
	ID        string // stable identity used by the progress log
	RelPath   string // path relative to the source root, "/"-separated
	LocalPath string // set by Fetch
}

// Source lists the scans of a run and fetches them one at a time.
type Source interface {
	Name() string
	List(ctx context.Context) ([]Item, error)
	// Fetch returns a local path for it, downloading when needed.
	Fetch(ctx context.Context, it Item) (string, error)
}

// Selection controls processing order and count.
type Selection struct {
	Sort     bool
	Shuffle  bool
	Seed     int64
	MaxFiles int
}

// Select orders items (sort by path, then optional seeded shuffle) and caps
// the count. The input is not modified.
func Select(items []Item, s Selection) []Item {
	out := slices.Clone(items)
	if s.Sort {
		slices.SortStableFunc(out, func(a, b Item) int { return strings.Compare(a.RelPath, b.RelPath) })
	}
	if s.Shuffle {
		rng := rand.New(rand.NewSource(s.Seed))
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	if s.MaxFiles > 0 && len(out) > s.MaxFiles {
		out = out[:s.MaxFiles]
	}
	return out
}

// TopFolder is the first path segment of rel, or "" for files at the root.
func TopFolder(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if i := strings.IndexByte(rel, '/'); i > 0 {
		return rel[:i]
	}
	return ""
}
