package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/marigram-tracker/constants"
	"github.com/joseph-ayodele/marigram-tracker/internal/common"
	"github.com/joseph-ayodele/marigram-tracker/internal/core/review"
	"github.com/joseph-ayodele/marigram-tracker/internal/export"
	"github.com/joseph-ayodele/marigram-tracker/internal/ingest"
	"github.com/joseph-ayodele/marigram-tracker/internal/ledger"
)

// ErrNoImages is returned when the source lists nothing to process.
var ErrNoImages = errors.New("no images found")

// ItemProcessor turns one fetched scan into a record.
type ItemProcessor interface {
	Process(ctx context.Context, it ingest.Item, localPath string) (Result, error)
}

// Stats summarizes one run.
type Stats struct {
	Listed      int
	Selected    int
	Resumed     int // skipped because the progress log already has them
	OK          int
	Errors      int
	Declined    int // subset of Errors rejected by the reviewer
	NeedsReview int // ok records that still carried a flag
	Flushed     int
	Unlogged    int // outcomes not written to the progress log when the run ended
}

// Runner drives the per-item loop: fetch, process, log, buffer.
//
// Ledger entries are appended in processing order. An ok entry is only
// appended once the batch holding its record has been flushed, and any
// entries behind it wait as well, so the log never claims output that was
// not written.
type Runner struct {
	logger  *slog.Logger
	source  ingest.Source
	proc    ItemProcessor
	log     ledger.Log
	batch   *export.BatchWriter
	resume  bool
	sel     ingest.Selection
	psm     int
	oem     int
	timeout time.Duration

	queued []ledger.Entry
}

type Option func(*Runner)

// WithResume skips items the progress log already marks ok.
func WithResume(on bool) Option {
	return func(r *Runner) { r.resume = on }
}

// WithSelection sets ordering and the item cap.
func WithSelection(s ingest.Selection) Option {
	return func(r *Runner) { r.sel = s }
}

// WithOCRParams stamps psm/oem on every ledger entry.
func WithOCRParams(psm, oem int) Option {
	return func(r *Runner) { r.psm, r.oem = psm, oem }
}

// WithProcessTimeout bounds the time spent on one item. Zero means no limit.
func WithProcessTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewRunner(logger *slog.Logger, source ingest.Source, proc ItemProcessor, log ledger.Log, batch *export.BatchWriter, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{logger: logger, source: source, proc: proc, log: log, batch: batch}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run processes every selected item once. It returns early on a fatal error or
// when ctx is cancelled; buffered records are flushed in every case.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	var st Stats
	logger := common.LoggerFrom(ctx, r.logger)

	items, err := r.source.List(ctx)
	if err != nil {
		return st, fmt.Errorf("list %s: %w", r.source.Name(), err)
	}
	st.Listed = len(items)
	if len(items) == 0 {
		return st, ErrNoImages
	}
	items = ingest.Select(items, r.sel)
	st.Selected = len(items)

	frontier := ledger.Replay(nil)
	if r.resume {
		frontier, err = ledger.LoadFrontier(ctx, r.log)
		if err != nil {
			return st, common.NewAppError(common.CodeLedger, "replay progress log", fmt.Errorf("%w: %w", common.ErrLedger, err))
		}
		logger.Info("runner.resume", "done", frontier.Len(), "failed", frontier.Failed())
	}
	logger.Info("runner.start", "source", r.source.Name(), "listed", st.Listed, "selected", st.Selected, "resume", r.resume)

	runErr := r.loop(ctx, items, frontier, &st)

	if err := r.finish(ctx); err != nil && runErr == nil {
		runErr = err
	}
	st.Flushed = r.batch.Flushed()
	st.Unlogged = len(r.queued)

	logger.Info("runner.done",
		"ok", st.OK,
		"errors", st.Errors,
		"declined", st.Declined,
		"resumed", st.Resumed,
		"needs_review", st.NeedsReview,
		"flushed", st.Flushed,
	)
	return st, runErr
}

func (r *Runner) loop(ctx context.Context, items []ingest.Item, frontier ledger.Frontier, st *Stats) error {
	for i, it := range items {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("runner.cancelled", "remaining", len(items)-i)
			return err
		}
		if r.resume && frontier.Done(it.ID) {
			st.Resumed++
			continue
		}

		res, err := r.processOne(common.WithItemID(ctx, it.ID), it)
		if err != nil {
			if common.IsFatal(err) {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			st.Errors++
			if errors.Is(err, review.ErrSkipped) {
				st.Declined++
			}
			if err := r.record(ctx, r.entry(ctx, it, constants.StatusError, err)); err != nil {
				return err
			}
			continue
		}

		st.OK++
		if res.NeedsReview {
			st.NeedsReview++
		}
		if err := r.accept(ctx, it, res); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) processOne(ctx context.Context, it ingest.Item) (Result, error) {
	logger := common.LoggerFrom(ctx, r.logger)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	local, err := r.source.Fetch(ctx, it)
	if err != nil {
		logger.Error("runner.fetch.failed", "path", it.RelPath, "error", err)
		return Result{}, err
	}
	res, err := r.proc.Process(ctx, it, local)
	if err != nil {
		if errors.Is(err, review.ErrSkipped) {
			logger.Info("runner.item.declined", "path", it.RelPath)
		} else {
			logger.Error("runner.item.failed", "path", it.RelPath, "error", err)
		}
		return Result{}, err
	}
	logger.Info("runner.item.ok",
		"path", it.RelPath,
		"variant", res.Variant,
		"anchors", res.Anchors,
		"confidence", res.Confidence,
		"needs_review", res.NeedsReview,
	)
	return res, nil
}

// accept buffers the record and queues its ok entry behind the flush.
func (r *Runner) accept(ctx context.Context, it ingest.Item, res Result) error {
	r.queued = append(r.queued, r.entry(ctx, it, constants.StatusOK, nil))
	if err := r.batch.Add(ctx, res.Record); err != nil {
		return err
	}
	if r.batch.Buffered() == 0 {
		return r.drain(ctx)
	}
	return nil
}

// record appends e now if nothing is waiting on a flush, else queues it.
func (r *Runner) record(ctx context.Context, e ledger.Entry) error {
	r.queued = append(r.queued, e)
	if r.batch.Buffered() == 0 {
		return r.drain(ctx)
	}
	return nil
}

func (r *Runner) drain(ctx context.Context) error {
	for len(r.queued) > 0 {
		if err := r.log.Append(ctx, r.queued[0]); err != nil {
			return common.NewAppError(common.CodeLedger, "append progress entry", fmt.Errorf("%w: %w", common.ErrLedger, err))
		}
		r.queued = r.queued[1:]
	}
	return nil
}

// finish flushes what is left and logs the queued entries. It runs on a
// context detached from cancellation so an interrupted run still saves.
func (r *Runner) finish(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	if err := r.batch.Flush(ctx); err != nil {
		for _, rec := range r.batch.Pending() {
			r.logger.Error("runner.record.unflushed", "file_name", rec.FileName)
		}
		return err
	}
	return r.drain(ctx)
}

func (r *Runner) entry(ctx context.Context, it ingest.Item, status constants.ItemStatus, err error) ledger.Entry {
	e := ledger.Entry{
		FileID:   it.ID,
		RelPath:  it.RelPath,
		Status:   status,
		PSM:      r.psm,
		OEM:      r.oem,
		RunID:    common.RunIDFromContext(ctx),
		LoggedAt: time.Now().UTC(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
