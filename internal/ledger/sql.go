package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/marigram-tracker/constants"
	"github.com/joseph-ayodele/marigram-tracker/internal/repository"
)

const createTable = `CREATE TABLE IF NOT EXISTS marigram_progress (
	seq        %s,
	file_id    TEXT NOT NULL,
	rel_path   TEXT NOT NULL,
	status     TEXT NOT NULL,
	error_text TEXT NOT NULL DEFAULT '',
	psm        INTEGER NOT NULL DEFAULT 0,
	oem        INTEGER NOT NULL DEFAULT 0,
	run_id     TEXT NOT NULL DEFAULT '',
	logged_at  TEXT NOT NULL
)`

// SQLLog keeps the ledger in a table. Rows are only ever inserted.
type SQLLog struct {
	db     *repository.DB
	owned  bool
	logger *slog.Logger
}

// NewSQLLog uses db, creating the table if needed. The caller keeps ownership of db.
func NewSQLLog(ctx context.Context, db *repository.DB, logger *slog.Logger) (*SQLLog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	seq := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.Dialect == repository.DialectPostgres {
		seq = "BIGSERIAL PRIMARY KEY"
	}
	if _, err := db.SQL.ExecContext(ctx, fmt.Sprintf(createTable, seq)); err != nil {
		return nil, fmt.Errorf("create progress table: %w", err)
	}
	return &SQLLog{db: db, logger: logger}, nil
}

// OpenSQL opens dsn and returns a log that closes the connection on Close.
func OpenSQL(ctx context.Context, dsn string, logger *slog.Logger) (*SQLLog, error) {
	db, err := repository.Open(ctx, repository.Config{DSN: dsn, MaxConns: 2, DialTimeout: 5 * time.Second}, logger)
	if err != nil {
		return nil, err
	}
	l, err := NewSQLLog(ctx, db, logger)
	if err != nil {
		db.Close(logger)
		return nil, err
	}
	l.owned = true
	return l, nil
}

func (l *SQLLog) Append(ctx context.Context, e Entry) error {
	_, err := l.db.SQL.ExecContext(ctx, l.db.Rebind(
		`INSERT INTO marigram_progress (file_id, rel_path, status, error_text, psm, oem, run_id, logged_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		e.FileID, e.RelPath, string(e.Status), e.Error, e.PSM, e.OEM, e.RunID, e.LoggedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (l *SQLLog) ReadAll(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.SQL.QueryContext(ctx,
		`SELECT file_id, rel_path, status, error_text, psm, oem, run_id, logged_at FROM marigram_progress ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query progress table: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			l.logger.Error("failed to close rows", "error", err)
		}
	}(rows)

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			status string
			ts     string
		)
		if err := rows.Scan(&e.FileID, &e.RelPath, &status, &e.Error, &e.PSM, &e.OEM, &e.RunID, &ts); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		e.Status = constants.ItemStatus(status)
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.LoggedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *SQLLog) Close() error {
	if l.owned {
		l.db.Close(l.logger)
	}
	return nil
}

// Ping checks the connection behind the log.
func (l *SQLLog) Ping(ctx context.Context) error {
	return l.db.HealthCheck(ctx, 2*time.Second, l.logger)
}
