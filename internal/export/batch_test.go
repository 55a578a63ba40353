package export

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/marigram-tracker/internal/common"
	"github.com/joseph-ayodele/marigram-tracker/internal/entity"
)

type memStore struct {
	batches [][]entity.Record
	failN   int // fail this many calls before succeeding
}

func (m *memStore) Append(_ context.Context, recs []entity.Record) error {
	if m.failN > 0 {
		m.failN--
		return errors.New("disk full")
	}
	m.batches = append(m.batches, append([]entity.Record(nil), recs...))
	return nil
}

func rec(i int) entity.Record {
	return entity.Record{FileName: fmt.Sprintf("reel/%03d.tif", i)}
}

func TestBatchWriter_ThirtyItems(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	bw := NewBatchWriter(st, 25, nil)
	for i := 0; i < 30; i++ {
		require.NoError(t, bw.Add(ctx, rec(i)))
	}
	require.Len(t, st.batches, 1)
	assert.Len(t, st.batches[0], 25)
	assert.Len(t, bw.Pending(), 5)

	require.NoError(t, bw.Flush(ctx))
	require.Len(t, st.batches, 2)
	assert.Len(t, st.batches[1], 5)
	assert.Equal(t, "reel/029.tif", st.batches[1][4].FileName)
	assert.Equal(t, 30, bw.Flushed())
	assert.Empty(t, bw.Pending())
}

func TestBatchWriter_FailureKeepsBuffer(t *testing.T) {
	ctx := context.Background()
	st := &memStore{failN: 1}
	bw := NewBatchWriter(st, 2, nil)

	require.NoError(t, bw.Add(ctx, rec(1)))
	err := bw.Add(ctx, rec(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrOutputStore)
	assert.True(t, common.IsFatal(err))
	assert.Len(t, bw.Pending(), 2)

	require.NoError(t, bw.Flush(ctx))
	require.Len(t, st.batches, 1)
	assert.Equal(t, []entity.Record{rec(1), rec(2)}, st.batches[0])
	assert.Empty(t, bw.Pending())
}

func TestBatchWriter_EmptyFlush(t *testing.T) {
	st := &memStore{}
	require.NoError(t, NewBatchWriter(st, 0, nil).Flush(context.Background()))
	assert.Empty(t, st.batches)
}
