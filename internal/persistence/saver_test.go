package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tinymud/internal/world"
)

func TestDebouncedSavesCoalesce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world_state.json")
	s := NewSaver(50 * time.Millisecond)
	w := world.New()

	// Two rapid debounced requests produce a single write.
	s.SaveWorld(w, path, true)
	w.Description = "updated"
	s.SaveWorld(w, path, true)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing written inside the window")

	time.Sleep(150 * time.Millisecond)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "updated", "latest snapshot wins")

	stats := s.Stats()
	assert.GreaterOrEqual(t, stats.Debounced, uint64(2))
	assert.Equal(t, uint64(0), stats.Errors)
}

func TestImmediateSaveCancelsPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world_state.json")
	s := NewSaver(time.Hour) // window long enough to never fire
	w := world.New()

	s.SaveWorld(w, path, true)
	s.SaveWorld(w, path, false)

	_, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.Stats().Immediate)

	// FlushAll after the immediate write has nothing left to do.
	before, _ := os.Stat(path)
	s.FlushAll()
	after, _ := os.Stat(path)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestFlushAllWritesPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world_state.json")
	s := NewSaver(time.Hour)
	s.SaveWorld(world.New(), path, true)

	s.FlushAll()
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestJournalRoundTrip(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Record(1, CategoryTick, "tick complete"))
	require.NoError(t, j.RecordBatch([]Event{
		{Tick: 2, Description: "Gareth dies", Category: CategoryDeath},
		{Tick: 2, Description: "Alice attacks Gareth", Category: CategoryCombat},
	}))

	events, err := j.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, CategoryCombat, events[0].Category, "newest first")

	require.NoError(t, j.SaveMeta("build", "1"))
	v, err := j.GetMeta("build")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}
