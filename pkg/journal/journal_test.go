package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/sheetmerge/pkg/merge"
)

func openMemory(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func sampleRun(primary string) *Run {
	now := time.Now().UTC()
	return &Run{
		StartedAt:  now,
		FinishedAt: now.Add(150 * time.Millisecond),
		Status:     StatusOK,
		Primary:    primary,
		Sources:    []string{"jan.xlsx", "feb.xlsx"},
		Output:     "main_updated.xlsx",
		Settings: Settings{
			MainKey:      "ID",
			SecondaryKey: "ID",
			ValueColumn:  "Status",
			Policy:       "marker",
			OnError:      "abort",
		},
		Rows:    3,
		Columns: 4,
		Reports: []merge.StepReport{
			{Source: "jan", Rows: 3, Matched: 2, Unmatched: 1},
			{Source: "feb", Rows: 3, Matched: 1, Unmatched: 2, DuplicateKeys: 1},
		},
	}
}

func TestJournal_RecordAndGet(t *testing.T) {
	j := openMemory(t)
	ctx := context.Background()

	run := sampleRun("main.xlsx")
	id, err := j.Record(ctx, run)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, run.ID)

	got, err := j.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "main.xlsx", got.Primary)
	assert.Equal(t, run.Sources, got.Sources)
	assert.Equal(t, run.Settings, got.Settings)
	assert.Equal(t, run.Reports, got.Reports)
	assert.Equal(t, 150*time.Millisecond, got.Duration())
}

func TestJournal_GetNotFound(t *testing.T) {
	j := openMemory(t)

	_, err := j.Get(context.Background(), "0190b1c2-0000-7000-8000-000000000000")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestJournal_RecordInvalidID(t *testing.T) {
	j := openMemory(t)

	run := sampleRun("main.xlsx")
	run.ID = "not-a-uuid"
	_, err := j.Record(context.Background(), run)
	assert.Error(t, err)
}

func TestJournal_ListNewestFirst(t *testing.T) {
	j := openMemory(t)
	ctx := context.Background()

	var ids []string
	for _, p := range []string{"a.xlsx", "b.xlsx", "c.xlsx"} {
		id, err := j.Record(ctx, sampleRun(p))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := j.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	// limit
	runs, err = j.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c.xlsx", runs[0].Primary)
	assert.Equal(t, "b.xlsx", runs[1].Primary)
}

func TestJournal_ListEmpty(t *testing.T) {
	j := openMemory(t)

	runs, err := j.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestJournal_Delete(t *testing.T) {
	j := openMemory(t)
	ctx := context.Background()

	id, err := j.Record(ctx, sampleRun("main.xlsx"))
	require.NoError(t, err)

	require.NoError(t, j.Delete(ctx, id))
	_, err = j.Get(ctx, id)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, j.Delete(ctx, id), ErrRunNotFound)
}

func TestJournal_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	j, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	failed := sampleRun("main.xlsx")
	failed.Status = StatusFailed
	failed.Error = "column not found"
	id, err := j.Record(ctx, failed)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	// 重新打开后记录仍在
	j, err = Open(Options{Dir: dir})
	require.NoError(t, err)
	defer j.Close()

	got, err := j.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "column not found", got.Error)
}

func TestJournal_Closed(t *testing.T) {
	j, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	_, err = j.Record(context.Background(), sampleRun("main.xlsx"))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = j.List(context.Background(), 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpen_RequiresDir(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}

func TestJournal_Canceled(t *testing.T) {
	j := openMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := j.Record(ctx, sampleRun("main.xlsx"))
	assert.ErrorIs(t, err, context.Canceled)
}
