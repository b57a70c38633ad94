package session

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoadDelete(t *testing.T) {
	store, err := NewStoreAt(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)

	s := &Session{
		ID:        "abc12345",
		Port:      "8080",
		PID:       100,
		Status:    StatusRunning,
		StartedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(s))

	loaded, err := store.Load("abc12345")
	require.NoError(t, err)
	assert.Equal(t, s.Port, loaded.Port)
	assert.Equal(t, s.PID, loaded.PID)
	assert.True(t, s.StartedAt.Equal(loaded.StartedAt))

	require.NoError(t, os.WriteFile(store.LogPath("abc12345"), []byte("log"), 0644))
	require.NoError(t, store.Delete("abc12345"))

	_, err = store.Load("abc12345")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoFileExists(t, store.LogPath("abc12345"))

	// Deleting twice is fine
	assert.NoError(t, store.Delete("abc12345"))
}

func TestStore_ListNewestFirst(t *testing.T) {
	store, err := NewStoreAt(t.TempDir())
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "newest", "middle"} {
		offset := map[string]time.Duration{"old": 0, "newest": 2 * time.Hour, "middle": time.Hour}[id]
		require.NoError(t, store.Save(&Session{ID: id, Port: string(rune('0' + i)), StartedAt: base.Add(offset)}))
	}

	// Garbage files are skipped
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "broken.json"), []byte("{"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("hi"), 0644))

	sessions, err := store.List()
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "newest", sessions[0].ID)
	assert.Equal(t, "middle", sessions[1].ID)
	assert.Equal(t, "old", sessions[2].ID)
}

func TestStore_ListByStatus(t *testing.T) {
	store, err := NewStoreAt(t.TempDir())
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, st := range []string{StatusCreated, StatusRunning, StatusStopped, StatusRunning} {
		require.NoError(t, store.Save(&Session{
			ID:        fmt.Sprintf("s%d", i),
			Status:    st,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	running, err := store.ListByStatus(StatusRunning)
	require.NoError(t, err)
	assert.Equal(t, []string{"s3", "s1"}, ids(running))

	live, err := store.ListByStatus(StatusCreated, StatusRunning)
	require.NoError(t, err)
	assert.Equal(t, []string{"s3", "s1", "s0"}, ids(live))

	latest, err := store.LatestRunning()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "s3", latest.ID)
}

func TestStore_LatestRunningNone(t *testing.T) {
	store, err := NewStoreAt(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(&Session{ID: "done", Status: StatusStopped}))

	latest, err := store.LatestRunning()
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestStore_SaveLeavesNoTempFile(t *testing.T) {
	store, err := NewStoreAt(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(&Session{ID: "x", PIDCreateTime: 1712000000123}))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x.json", entries[0].Name())

	loaded, err := store.Load("x")
	require.NoError(t, err)
	assert.Equal(t, int64(1712000000123), loaded.PIDCreateTime)
}

func ids(sessions []*Session) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.ID)
	}
	return out
}
