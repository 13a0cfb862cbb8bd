package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coredatabase "github.com/m3rciful/gptbot/core/database"
	"github.com/m3rciful/gptbot/core/fsm"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	cfg := coredatabase.Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "journal.db")}
	require.NoError(t, Migrate(cfg))
	require.NoError(t, Migrate(cfg), "second run is a no-op")

	db, err := coredatabase.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func TestRecordAndTotals(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, Entry{UserID: 1, Flow: "text", Model: "gpt-4", Status: StatusOK}))
	require.NoError(t, j.Record(ctx, Entry{UserID: 1, Flow: "text", Model: "gpt-4", Status: StatusFail, Error: "rate limited"}))
	require.NoError(t, j.Record(ctx, Entry{UserID: 2, Flow: "image", Model: "dall-e-3", Status: StatusOK}))

	totals, err := j.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Total{
		{Flow: "image", Total: 1, Failed: 0},
		{Flow: "text", Total: 2, Failed: 1},
	}, totals)

	recent, err := j.Recent(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, StatusFail, recent[0].Status)
	assert.Equal(t, "rate limited", recent[0].Error)
}

func TestObserve(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	j.Observe(ctx, fsm.Report{
		User:    7,
		Flow:    "image",
		Params:  fsm.Params{"model": fsm.Text("dall-e-3")},
		Outcome: fsm.OutcomeFinished,
		Elapsed: 1500 * time.Millisecond,
	})
	j.Observe(ctx, fsm.Report{
		User:    7,
		Flow:    "image",
		Params:  fsm.Params{"model": fsm.Text("dall-e-2")},
		Outcome: fsm.OutcomeFailed,
		Err:     fsm.Fail("content policy"),
	})

	recent, err := j.Recent(ctx, 7, 5)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "dall-e-2", recent[0].Model)
	assert.Equal(t, "content policy", recent[0].Error)
	assert.Equal(t, "dall-e-3", recent[1].Model)
	assert.Equal(t, int64(1500), recent[1].DurationMS)
}

func TestDisabledJournal(t *testing.T) {
	var nilJournal *Journal
	ctx := context.Background()

	assert.False(t, nilJournal.Enabled())
	assert.NoError(t, nilJournal.Record(ctx, Entry{Flow: "text"}))
	totals, err := nilJournal.Totals(ctx)
	assert.NoError(t, err)
	assert.Empty(t, totals)

	j := New(nil)
	assert.False(t, j.Enabled())
	j.Observe(ctx, fsm.Report{User: 1, Flow: "text"})
}
