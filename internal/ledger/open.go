package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/marigram-tracker/internal/common"
	"github.com/joseph-ayodele/marigram-tracker/internal/repository"
)

// Open picks a backend from location: a postgres URL or a .db/.sqlite file
// selects the SQL table, anything else is a JSONL file.
func Open(ctx context.Context, location string, logger *slog.Logger) (Log, error) {
	var (
		l   Log
		err error
	)
	if isSQL(location) {
		l, err = OpenSQL(ctx, location, logger)
	} else {
		l, err = OpenJSONL(location, logger)
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeLedger, "open progress log", fmt.Errorf("%w: %w", common.ErrLedger, err))
	}
	return l, nil
}

// OpenReader opens an existing log for replay only. A missing JSONL or SQLite
// file is an error rather than a new empty log.
func OpenReader(ctx context.Context, location string, logger *slog.Logger) (Log, error) {
	var (
		l   Log
		err error
	)
	switch {
	case repository.DialectFor(location) == repository.DialectPostgres:
		l, err = OpenSQL(ctx, location, logger)
	case isSQL(location):
		if _, err = os.Stat(location); err == nil {
			l, err = OpenSQL(ctx, location, logger)
		}
	default:
		l, err = ReadJSONL(location, logger)
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeLedger, "open progress log", fmt.Errorf("%w: %w", common.ErrLedger, err))
	}
	return l, nil
}

func isSQL(location string) bool {
	if repository.DialectFor(location) == repository.DialectPostgres {
		return true
	}
	switch strings.ToLower(filepath.Ext(location)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}
