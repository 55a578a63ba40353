package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// JSONLLog stores one JSON object per line. Each append is written and synced
// before returning, so a crash loses at most the entry being written.
type JSONLLog struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
	f  *os.File
}

// ReadJSONL returns a log over an existing file that can only be replayed.
// Nothing is created; Append fails.
func ReadJSONL(path string, logger *slog.Logger) (*JSONLLog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open progress log: %w", err)
	}
	return &JSONLLog{path: path, logger: logger}, nil
}

// OpenJSONL opens (creating if needed) the log at path for appending.
func OpenJSONL(path string, logger *slog.Logger) (*JSONLLog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open progress log: %w", err)
	}
	return &JSONLLog{path: path, logger: logger, f: f}, nil
}

func (l *JSONLLog) Append(_ context.Context, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode ledger entry: %w", err)
	}
	b = append(b, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return errors.New("progress log is not open for writing")
	}
	if _, err := l.f.Write(b); err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return l.f.Sync()
}

// ReadAll replays the file. Lines that are not valid entries are skipped.
func (l *JSONLLog) ReadAll(ctx context.Context) ([]Entry, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open progress log: %w", err)
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil || e.FileID == "" {
			l.logger.Warn("ledger.line.skipped", "path", l.path, "line", line)
			continue
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read progress log: %w", err)
	}
	return out, nil
}

func (l *JSONLLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
