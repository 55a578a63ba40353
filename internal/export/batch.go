package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/marigram-tracker/constants"
	"github.com/joseph-ayodele/marigram-tracker/internal/common"
	"github.com/joseph-ayodele/marigram-tracker/internal/entity"
)

// Store persists records in order.
type Store interface {
	Append(ctx context.Context, recs []entity.Record) error
}

// BatchWriter buffers records and hands them to a Store in batches. The
// buffer is only cleared after the Store accepted it.
type BatchWriter struct {
	store  Store
	size   int
	buf    []entity.Record
	logger *slog.Logger

	flushed int
	batches int
}

func NewBatchWriter(store Store, size int, logger *slog.Logger) *BatchWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if size <= 0 {
		size = constants.DefaultBatchSize
	}
	return &BatchWriter{store: store, size: size, logger: logger}
}

// Add buffers r and flushes once the buffer is full.
func (b *BatchWriter) Add(ctx context.Context, r entity.Record) error {
	b.buf = append(b.buf, r)
	if len(b.buf) >= b.size {
		return b.Flush(ctx)
	}
	return nil
}

// Flush writes everything buffered. On failure the buffer is kept so a later
// Flush can retry it.
func (b *BatchWriter) Flush(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}
	n := len(b.buf)
	if err := b.store.Append(ctx, b.buf); err != nil {
		b.logger.Error("export.flush.failed", "pending", n, "error", err)
		return common.NewAppError(common.CodeOutput, fmt.Sprintf("flush %d records", n), fmt.Errorf("%w: %w", common.ErrOutputStore, err))
	}
	b.buf = nil
	b.flushed += n
	b.batches++
	b.logger.Info("export.flush.ok", "rows", n, "batch", b.batches, "total_rows", b.flushed)
	return nil
}

// Pending returns the records not yet accepted by the store.
func (b *BatchWriter) Pending() []entity.Record {
	return append([]entity.Record(nil), b.buf...)
}

// Buffered is the number of records waiting for the next flush.
func (b *BatchWriter) Buffered() int { return len(b.buf) }

// Flushed is the number of records written so far.
func (b *BatchWriter) Flushed() int { return b.flushed }
