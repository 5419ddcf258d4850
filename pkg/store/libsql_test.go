package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yatra-test.db")
	s := NewLibSQLStore(path, nil)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndAllRecordsOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const k = 5
	for i := 0; i < k; i++ {
		err := s.Record(ctx, fmt.Sprintf("query %d", i), fmt.Sprintf("reply %d", i))
		require.NoError(t, err)
	}

	records, err := s.AllRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, k)

	// Most recent first.
	for i, rec := range records {
		assert.Equal(t, fmt.Sprintf("query %d", k-1-i), rec.UserQuery)
		assert.Equal(t, fmt.Sprintf("reply %d", k-1-i), rec.BotReply)
		assert.False(t, rec.CreatedAt.IsZero())
	}

	// IDs are monotonically increasing with insertion order.
	for i := 1; i < len(records); i++ {
		assert.Greater(t, records[i-1].ID, records[i].ID)
	}
}

func TestRecordAfterConnectionDrop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "before", "drop"))

	// Simulate a dropped connection between two Record calls.
	require.NoError(t, s.Close())

	assert.NotPanics(t, func() {
		err := s.Record(ctx, "after", "drop")
		// The internal reconnect must make this succeed against a healthy file.
		require.NoError(t, err)
	})

	records, err := s.AllRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "after", records[0].UserQuery)
}

func TestCorruptFileIsRecreatedAtStartup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a database"), 0o644))

	s := NewLibSQLStore(path, nil)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Record(ctx, "fresh", "start"))

	records, err := s.AllRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fresh", records[0].UserQuery)
}

func TestUnavailableStoreDegradesWithoutPanic(t *testing.T) {
	// A path whose parent cannot exist keeps the store Disconnected.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0o644))
	path := filepath.Join(blocker, "nested", "yatra.db")

	var s *LibSQLStore
	assert.NotPanics(t, func() {
		s = NewLibSQLStore(path, nil)
	})
	defer s.Close()

	ctx := context.Background()

	err := s.Record(ctx, "q", "r")
	assert.Error(t, err, "record reports the failure for logging")

	records, err := s.AllRecords(ctx)
	assert.Error(t, err)
	assert.Empty(t, records, "history degrades to empty")
}

func TestAllRecordsEmptyStore(t *testing.T) {
	s := newTestStore(t)

	records, err := s.AllRecords(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestNoopStore(t *testing.T) {
	var s Store = NoopStore{}
	ctx := context.Background()

	assert.NoError(t, s.Record(ctx, "q", "r"))
	records, err := s.AllRecords(ctx)
	assert.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, s.Close())
}
