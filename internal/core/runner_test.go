package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/marigram-tracker/constants"
	"github.com/joseph-ayodele/marigram-tracker/internal/common"
	"github.com/joseph-ayodele/marigram-tracker/internal/core/review"
	"github.com/joseph-ayodele/marigram-tracker/internal/entity"
	"github.com/joseph-ayodele/marigram-tracker/internal/export"
	"github.com/joseph-ayodele/marigram-tracker/internal/ingest"
	"github.com/joseph-ayodele/marigram-tracker/internal/ledger"
)

type fakeSource struct {
	items    []ingest.Item
	fetchErr map[string]error
	fetched  []string
}

func (s *fakeSource) Name() string { return "fake" }
func (s *fakeSource) List(context.Context) ([]ingest.Item, error) {
	return s.items, nil
}
func (s *fakeSource) Fetch(_ context.Context, it ingest.Item) (string, error) {
	s.fetched = append(s.fetched, it.ID)
	if err := s.fetchErr[it.ID]; err != nil {
		return "", err
	}
	return "/tmp/" + it.RelPath, nil
}

type fakeProc struct {
	errs  map[string]error
	after func(id string) // runs after each item
}

func (p *fakeProc) Process(_ context.Context, it ingest.Item, _ string) (Result, error) {
	if p.after != nil {
		defer p.after(it.ID)
	}
	if err := p.errs[it.ID]; err != nil {
		return Result{}, err
	}
	return Result{Record: entity.Record{FileName: it.RelPath}, NeedsReview: it.ID == "f1"}, nil
}

type memLog struct {
	entries []ledger.Entry
	failOn  int // fail the n-th append (1-based); 0 never
}

func (m *memLog) Append(_ context.Context, e ledger.Entry) error {
	if m.failOn > 0 && len(m.entries)+1 == m.failOn {
		return errors.New("disk full")
	}
	m.entries = append(m.entries, e)
	return nil
}
func (m *memLog) ReadAll(context.Context) ([]ledger.Entry, error) { return m.entries, nil }
func (m *memLog) Close() error                                    { return nil }

type memStore struct {
	batches [][]entity.Record
	fail    int // number of Append calls to fail before succeeding
}

func (m *memStore) Append(_ context.Context, recs []entity.Record) error {
	if m.fail > 0 {
		m.fail--
		return errors.New("workbook locked")
	}
	m.batches = append(m.batches, append([]entity.Record(nil), recs...))
	return nil
}

func items(n int) []ingest.Item {
	out := make([]ingest.Item, n)
	for i := range out {
		out[i] = ingest.Item{ID: fmt.Sprintf("f%d", i), RelPath: fmt.Sprintf("reel/%02d.tif", i)}
	}
	return out
}

func newTestRunner(src ingest.Source, proc ItemProcessor, log ledger.Log, store export.Store, opts ...Option) *Runner {
	return NewRunner(nil, src, proc, log, export.NewBatchWriter(store, constants.DefaultBatchSize, nil), opts...)
}

func statuses(entries []ledger.Entry) map[string]constants.ItemStatus {
	out := map[string]constants.ItemStatus{}
	for _, e := range entries {
		out[e.FileID] = e.Status
	}
	return out
}

func TestRunner_ThirtyItemsFlushTwice(t *testing.T) {
	store := &memStore{}
	log := &memLog{}
	r := newTestRunner(&fakeSource{items: items(30)}, &fakeProc{}, log, store, WithOCRParams(6, 3))

	st, err := r.Run(common.WithRunID(context.Background(), "run-1"))
	require.NoError(t, err)
	require.Len(t, store.batches, 2)
	assert.Len(t, store.batches[0], 25)
	assert.Len(t, store.batches[1], 5)
	assert.Equal(t, 30, st.OK)
	assert.Equal(t, 30, st.Flushed)
	assert.Equal(t, 1, st.NeedsReview)
	assert.Equal(t, 0, st.Unlogged)

	require.Len(t, log.entries, 30)
	for i, e := range log.entries {
		assert.Equal(t, fmt.Sprintf("f%d", i), e.FileID)
		assert.Equal(t, constants.StatusOK, e.Status)
		assert.Equal(t, 6, e.PSM)
		assert.Equal(t, 3, e.OEM)
		assert.Equal(t, "run-1", e.RunID)
	}
}

func TestRunner_ItemErrorsAreIsolated(t *testing.T) {
	store := &memStore{}
	log := &memLog{}
	src := &fakeSource{items: items(4), fetchErr: map[string]error{"f1": errors.New("download failed")}}
	proc := &fakeProc{errs: map[string]error{"f2": review.ErrSkipped}}

	st, err := newTestRunner(src, proc, log, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.OK)
	assert.Equal(t, 2, st.Errors)
	assert.Equal(t, 1, st.Declined)
	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 2)

	// processing order is kept even though ok entries wait for the flush
	require.Len(t, log.entries, 4)
	for i, e := range log.entries {
		assert.Equal(t, fmt.Sprintf("f%d", i), e.FileID)
	}
	assert.Equal(t, constants.StatusError, log.entries[1].Status)
	assert.Contains(t, log.entries[1].Error, "download failed")
	assert.Equal(t, constants.StatusError, log.entries[2].Status)
}

func TestRunner_OkEntriesWaitForFlush(t *testing.T) {
	store := &memStore{}
	log := &memLog{}
	var seen []int
	proc := &fakeProc{after: func(string) { seen = append(seen, len(log.entries)) }}

	_, err := newTestRunner(&fakeSource{items: items(3)}, proc, log, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, seen)
	assert.Len(t, log.entries, 3)
}

func TestRunner_ResumeSkipsOkAndRetriesErrors(t *testing.T) {
	log := &memLog{entries: []ledger.Entry{
		{FileID: "f0", Status: constants.StatusOK},
		{FileID: "f1", Status: constants.StatusError},
		{FileID: "f2", Status: constants.StatusError},
		{FileID: "f2", Status: constants.StatusOK},
	}}
	src := &fakeSource{items: items(4)}

	st, err := newTestRunner(src, &fakeProc{}, log, &memStore{}, WithResume(true)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Resumed)
	assert.Equal(t, []string{"f1", "f3"}, src.fetched)
	assert.Equal(t, constants.StatusOK, statuses(log.entries)["f1"])
}

func TestRunner_WithoutResumeProcessesEverything(t *testing.T) {
	log := &memLog{entries: []ledger.Entry{{FileID: "f0", Status: constants.StatusOK}}}
	src := &fakeSource{items: items(2)}
	st, err := newTestRunner(src, &fakeProc{}, log, &memStore{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, st.Resumed)
	assert.Equal(t, []string{"f0", "f1"}, src.fetched)
}

func TestRunner_FatalErrorStillFlushes(t *testing.T) {
	store := &memStore{}
	log := &memLog{}
	fatal := common.NewAppError(common.CodeOCR, "tesseract vanished", common.ErrOCRUnavailable)
	proc := &fakeProc{errs: map[string]error{"f3": fatal}}

	st, err := newTestRunner(&fakeSource{items: items(6)}, proc, log, store).Run(context.Background())
	require.ErrorIs(t, err, common.ErrOCRUnavailable)
	assert.Equal(t, 3, st.OK)
	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 3)
	assert.Len(t, log.entries, 3)
}

func TestRunner_FlushFailureRetriedAtEnd(t *testing.T) {
	store := &memStore{fail: 1}
	log := &memLog{}

	st, err := newTestRunner(&fakeSource{items: items(26)}, &fakeProc{}, log, store).Run(context.Background())
	require.ErrorIs(t, err, common.ErrOutputStore)
	assert.Equal(t, 25, st.OK)
	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 25)
	assert.Len(t, log.entries, 25)
	assert.Equal(t, 0, st.Unlogged)
}

func TestRunner_FlushFailureKeepsEntriesUnlogged(t *testing.T) {
	store := &memStore{fail: 2}
	log := &memLog{}

	st, err := newTestRunner(&fakeSource{items: items(3)}, &fakeProc{}, log, store).Run(context.Background())
	require.ErrorIs(t, err, common.ErrOutputStore)
	assert.Empty(t, store.batches)
	assert.Empty(t, log.entries)
	assert.Equal(t, 3, st.Unlogged)
}

func TestRunner_LedgerFailureIsFatal(t *testing.T) {
	log := &memLog{failOn: 1}
	src := &fakeSource{items: items(3), fetchErr: map[string]error{"f0": errors.New("gone")}}

	_, err := newTestRunner(src, &fakeProc{}, log, &memStore{}).Run(context.Background())
	require.ErrorIs(t, err, common.ErrLedger)
	assert.Equal(t, []string{"f0"}, src.fetched)
}

func TestRunner_CancelStopsBetweenItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &memStore{}
	proc := &fakeProc{after: func(id string) {
		if id == "f1" {
			cancel()
		}
	}}

	st, err := newTestRunner(&fakeSource{items: items(5)}, proc, &memLog{}, store).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, st.OK)
	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 2)
}

func TestRunner_SelectionAndEmptySource(t *testing.T) {
	src := &fakeSource{items: items(10)}
	st, err := newTestRunner(src, &fakeProc{}, &memLog{}, &memStore{},
		WithSelection(ingest.Selection{Sort: true, MaxFiles: 3})).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, st.Listed)
	assert.Equal(t, 3, st.Selected)
	assert.Equal(t, []string{"f0", "f1", "f2"}, src.fetched)

	_, err = newTestRunner(&fakeSource{}, &fakeProc{}, &memLog{}, &memStore{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoImages)
}
