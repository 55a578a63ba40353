package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/marigram-tracker/constants"
	"github.com/joseph-ayodele/marigram-tracker/internal/common"
)

func ok(id string) Entry {
	return Entry{FileID: id, RelPath: id + ".tif", Status: constants.StatusOK, PSM: 6, OEM: 3}
}

func failed(id string) Entry {
	return Entry{FileID: id, RelPath: id + ".tif", Status: constants.StatusError, Error: "boom"}
}

func TestReplay(t *testing.T) {
	f := Replay([]Entry{
		failed("a"),
		ok("a"),
		ok("b"),
		failed("b"),
		failed("c"),
		failed("c"),
		{FileID: "", Status: constants.StatusOK},
	})
	assert.True(t, f.Done("a"), "error then ok")
	assert.True(t, f.Done("b"), "ok then error")
	assert.False(t, f.Done("c"))
	assert.False(t, f.Done(""))
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, 1, f.Failed())
}

// Replaying a log and then skipping frontier members never loses or repeats
// work: the remaining items are exactly those without an ok entry.
func TestReplay_ResumeLaw(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	var log []Entry
	// first run dies after c; b failed
	log = append(log, ok("a"), failed("b"), ok("c"))

	f := Replay(log)
	var todo []string
	for _, id := range items {
		if !f.Done(id) {
			todo = append(todo, id)
		}
	}
	assert.Equal(t, []string{"b", "d", "e"}, todo)

	for _, id := range todo {
		log = append(log, ok(id))
	}
	f = Replay(log)
	for _, id := range items {
		assert.True(t, f.Done(id), id)
	}
}

func TestReplay_Empty(t *testing.T) {
	f := Replay(nil)
	assert.Equal(t, 0, f.Len())
	assert.False(t, f.Done("x"))
}

func TestJSONLLog(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "_progress", "processed.jsonl")

	l, err := OpenJSONL(path, nil)
	require.NoError(t, err)
	e := ok("1AbC")
	e.RunID = "run-1"
	e.LoggedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, l.Append(ctx, e))
	require.NoError(t, l.Append(ctx, failed("2XyZ")))
	require.NoError(t, l.Close())

	// foreign and truncated lines from older runs
	fh, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = fh.WriteString("{\"file_id\": \"3\", \"rel_path\": \"r/3.tif\", \"status\": \"ok\", \"psm\": 6, \"oem\": 3}\nnot json\n{\"status\":\"ok\"}\n{\"file_id\":\"4\",\"sta")
	require.NoError(t, err)
	require.NoError(t, fh.Close())

	l, err = OpenJSONL(path, nil)
	require.NoError(t, err)
	defer l.Close()

	entries, err := l.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, e, entries[0])
	assert.Equal(t, constants.StatusError, entries[1].Status)
	assert.Equal(t, "r/3.tif", entries[2].RelPath)

	f, err := LoadFrontier(ctx, l)
	require.NoError(t, err)
	assert.True(t, f.Done("1AbC"))
	assert.True(t, f.Done("3"))
	assert.False(t, f.Done("2XyZ"))
	assert.False(t, f.Done("4"))
}

func TestJSONLLog_MissingFile(t *testing.T) {
	l := &JSONLLog{path: filepath.Join(t.TempDir(), "absent.jsonl")}
	entries, err := l.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenReader_MissingLogIsNotCreated(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"_progress/processed.jsonl", "processed.db"} {
		path := filepath.Join(dir, name)
		_, err := OpenReader(context.Background(), path, nil)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, common.ErrLedger)
		assert.ErrorIs(t, err, os.ErrNotExist)
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), name)
	}
	_, err := os.Stat(filepath.Join(dir, "_progress"))
	assert.True(t, os.IsNotExist(err))
}

func TestOpenReader_ReplaysExistingLog(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "processed.jsonl")
	w, err := OpenJSONL(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Append(ctx, ok("a")))
	require.NoError(t, w.Close())

	l, err := OpenReader(ctx, path, nil)
	require.NoError(t, err)
	defer l.Close()
	entries, err := l.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].FileID)
	assert.Error(t, l.Append(ctx, ok("b")))
}

func TestSQLLog_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.db")

	l, err := Open(ctx, path, nil)
	require.NoError(t, err)
	_, isSQL := l.(*SQLLog)
	require.True(t, isSQL)

	first := ok("a")
	first.RunID = "run-1"
	first.LoggedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, l.Append(ctx, first))
	require.NoError(t, l.Append(ctx, failed("b")))
	require.NoError(t, l.Close())

	l, err = Open(ctx, path, nil)
	require.NoError(t, err)
	defer l.Close()
	require.NoError(t, l.(*SQLLog).Ping(ctx))
	require.NoError(t, l.Append(ctx, ok("b")))

	entries, err := l.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, first, entries[0])
	assert.Equal(t, "boom", entries[1].Error)

	f := Replay(entries)
	assert.True(t, f.Done("a"))
	assert.True(t, f.Done("b"))
	assert.Equal(t, 0, f.Failed())
}

func TestOpen_PicksBackend(t *testing.T) {
	assert.True(t, isSQL("postgres://localhost/marigrams"))
	assert.True(t, isSQL("./_progress/processed.sqlite"))
	assert.True(t, isSQL("run.DB"))
	assert.False(t, isSQL("./_progress/processed.jsonl"))

	l, err := Open(context.Background(), filepath.Join(t.TempDir(), "p.jsonl"), nil)
	require.NoError(t, err)
	defer l.Close()
	_, isJSONL := l.(*JSONLLog)
	assert.True(t, isJSONL)
}
