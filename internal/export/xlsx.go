package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/marigram-tracker/constants"
	"github.com/joseph-ayodele/marigram-tracker/internal/entity"
)

const defaultSheet = "Sheet1"

// XLSXStore appends records to a workbook on disk. Every write goes to a
// temp file in the same directory that then replaces the workbook, so a
// failed append leaves the previous file as it was.
type XLSXStore struct {
	path   string
	logger *slog.Logger
}

func NewXLSXStore(path string, logger *slog.Logger) *XLSXStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXStore{path: path, logger: logger}
}

func (s *XLSXStore) Path() string { return s.path }

// Ensure creates the workbook with the header row if it does not exist, and
// rewrites the header if the first row is entirely empty.
func (s *XLSXStore) Ensure(ctx context.Context) error {
	f, sheet, created, err := s.open()
	if err != nil {
		return err
	}
	defer s.closeFile(f)

	repaired, err := s.ensureHeader(f, sheet)
	if err != nil {
		return err
	}
	if !created && !repaired {
		return nil
	}
	if err := s.save(ctx, f); err != nil {
		return err
	}
	s.logger.Info("export.xlsx.ready", "path", s.path, "created", created, "header_repaired", repaired)
	return nil
}

// Append writes recs after the last used row.
func (s *XLSXStore) Append(ctx context.Context, recs []entity.Record) error {
	if len(recs) == 0 {
		return nil
	}
	start := time.Now()
	f, sheet, _, err := s.open()
	if err != nil {
		return err
	}
	defer s.closeFile(f)

	if _, err := s.ensureHeader(f, sheet); err != nil {
		return err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}
	next := len(rows) + 1
	for i, r := range recs {
		cell, _ := excelize.CoordinatesToCellName(1, next+i)
		vals := r.Values()
		row := make([]any, len(vals))
		for j, v := range vals {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", next+i, err)
		}
	}
	if err := s.save(ctx, f); err != nil {
		return err
	}
	s.logger.Info("export.xlsx.ok",
		"path", s.path,
		"rows", len(recs),
		"first_row", next,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// open loads the workbook, or starts a new one when the file is absent.
func (s *XLSXStore) open() (*excelize.File, string, bool, error) {
	f, err := excelize.OpenFile(s.path)
	if err == nil {
		return f, f.GetSheetName(f.GetActiveSheetIndex()), false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, fmt.Errorf("open workbook %s: %w", s.path, err)
	}

	f = excelize.NewFile()
	_ = f.SetColWidth(defaultSheet, "A", "A", 48) // file name
	_ = f.SetColWidth(defaultSheet, "B", "D", 22) // country/state/location
	_ = f.SetColWidth(defaultSheet, "Q", "Q", 60) // comments
	return f, defaultSheet, true, nil
}

func (s *XLSXStore) ensureHeader(f *excelize.File, sheet string) (bool, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return false, fmt.Errorf("read header: %w", err)
	}
	headers := constants.Headers()
	if len(rows) > 0 && slices.ContainsFunc(rows[0], func(v string) bool { return v != "" }) {
		if !slices.Equal(rows[0], headers) {
			s.logger.Warn("export.xlsx.header_mismatch", "path", s.path, "found", rows[0])
		}
		return false, nil
	}
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return false, fmt.Errorf("write header: %w", err)
	}
	return true, nil
}

func (s *XLSXStore) save(ctx context.Context, f *excelize.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".marigrams-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := f.Write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("xlsx write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("xlsx sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("xlsx close: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}

func (s *XLSXStore) closeFile(f *excelize.File) {
	if err := f.Close(); err != nil {
		s.logger.Warn("export.xlsx.close_failed", "error", err)
	}
}
