// Package ledger records the outcome of every processed item so an
// interrupted run can resume. The log is append-only; the set of completed
// items is always recomputed by replaying it.
package ledger

import (
	"context"
	"time"

	"github.com/joseph-ayodele/marigram-tracker/constants"
)

// Entry is one outcome for one item. Later entries never remove earlier ones.
type Entry struct {
	FileID   string               `json:"file_id"`
	RelPath  string               `json:"rel_path"`
	Status   constants.ItemStatus `json:"status"`
	Error    string               `json:"error,omitempty"`
	PSM      int                  `json:"psm,omitempty"`
	OEM      int                  `json:"oem,omitempty"`
	RunID    string               `json:"run_id,omitempty"`
	LoggedAt time.Time            `json:"ts"`
}

// Writer appends entries in the order they are produced.
type Writer interface {
	Append(ctx context.Context, e Entry) error
}

// Reader returns every entry ever written, oldest first.
type Reader interface {
	ReadAll(ctx context.Context) ([]Entry, error)
}

// Log is a backend that can both append and replay.
type Log interface {
	Writer
	Reader
	Close() error
}

// Frontier is the set of items already completed, derived from a replay.
type Frontier struct {
	done   map[string]struct{}
	failed map[string]struct{}
}

// Replay folds entries into a Frontier. An item is done once any entry for it
// says ok; error entries before or after that do not matter.
func Replay(entries []Entry) Frontier {
	f := Frontier{done: map[string]struct{}{}, failed: map[string]struct{}{}}
	for _, e := range entries {
		if e.FileID == "" {
			continue
		}
		switch e.Status {
		case constants.StatusOK:
			f.done[e.FileID] = struct{}{}
			delete(f.failed, e.FileID)
		case constants.StatusError:
			if _, ok := f.done[e.FileID]; !ok {
				f.failed[e.FileID] = struct{}{}
			}
		}
	}
	return f
}

// Done reports whether id completed in some earlier run.
func (f Frontier) Done(id string) bool {
	_, ok := f.done[id]
	return ok
}

// Len is the number of completed items.
func (f Frontier) Len() int { return len(f.done) }

// Failed is the number of items that have only error entries.
func (f Frontier) Failed() int { return len(f.failed) }

// LoadFrontier replays everything r holds.
func LoadFrontier(ctx context.Context, r Reader) (Frontier, error) {
	entries, err := r.ReadAll(ctx)
	if err != nil {
		return Frontier{}, err
	}
	return Replay(entries), nil
}
