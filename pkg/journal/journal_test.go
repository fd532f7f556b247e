package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paceline/paceline/pkg/events"
	"github.com/paceline/paceline/pkg/types"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "paceline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndGetRun(t *testing.T) {
	store := openStore(t)

	info := &types.RunInfo{
		ID:         "run-1",
		TaskID:     "task-42",
		Stub:       "foo.nl",
		StopMode:   true,
		StartedAt:  time.Now().UTC(),
		ExitStatus: 0,
		BestValue:  5.0,
		HasBest:    true,
	}
	require.NoError(t, store.SaveRun(info))

	got, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "task-42", got.TaskID)
	assert.Equal(t, "foo.nl", got.Stub)
	assert.True(t, got.StopMode)
	assert.Equal(t, 5.0, got.BestValue)

	_, err = store.GetRun("run-2")
	assert.Error(t, err)
}

func TestListRuns(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.SaveRun(&types.RunInfo{ID: "run-1", Stub: "foo.nl"}))
	require.NoError(t, store.SaveRun(&types.RunInfo{ID: "run-2", Stub: "bar.nl"}))

	runs, err := store.ListRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestAppendAssignsSequence(t *testing.T) {
	store := openStore(t)

	for i, value := range []float64{10.0, 7.5, 5.0} {
		entry := &Entry{Time: time.Now(), Type: "record.published", Value: value}
		require.NoError(t, store.Append("run-1", entry))
		assert.Equal(t, uint64(i+1), entry.Seq)
	}

	entries, err := store.Entries("run-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Append order survives the round trip
	assert.Equal(t, 10.0, entries[0].Value)
	assert.Equal(t, 7.5, entries[1].Value)
	assert.Equal(t, 5.0, entries[2].Value)
}

func TestEntriesIsolatedPerRun(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.Append("run-1", &Entry{Type: "record.published", Value: 5.0}))
	require.NoError(t, store.Append("run-2", &Entry{Type: "record.received", Value: 3.0}))

	entries, err := store.Entries("run-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "record.published", entries[0].Type)

	entries, err = store.Entries("run-3")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendWithoutRunID(t *testing.T) {
	store := openStore(t)
	assert.Error(t, store.Append("", &Entry{Type: "record.published"}))
}

func TestFollowerJournalsEvents(t *testing.T) {
	store := openStore(t)

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	follower := NewFollower(store, broker)
	follower.Start()

	broker.Publish(&events.Event{
		Type:  events.EventRecordPublished,
		RunID: "run-1",
		Value: 5.0,
	})
	broker.Publish(&events.Event{
		Type:     events.EventSolutionStored,
		RunID:    "run-1",
		Value:    4.5,
		Metadata: map[string]string{"seq": "1"},
	})

	// Entries land asynchronously; wait for both
	require.Eventually(t, func() bool {
		entries, err := store.Entries("run-1")
		return err == nil && len(entries) == 2
	}, 2*time.Second, 10*time.Millisecond)

	follower.Stop()

	entries, err := store.Entries("run-1")
	require.NoError(t, err)
	assert.Equal(t, string(events.EventRecordPublished), entries[0].Type)
	assert.Equal(t, string(events.EventSolutionStored), entries[1].Type)
	assert.Equal(t, "1", entries[1].Labels["seq"])
}
