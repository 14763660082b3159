package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/geo-analyzer/internal/db"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open(db.Config{DataDir: t.TempDir(), DBName: "history_test"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	store, err := New(context.Background(), conn)
	require.NoError(t, err)
	return store
}

func TestStore_RecordAndList(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, Entry{
		ID: "a", Filename: "first.geojson", Status: "success",
		Anomalies: 5, MeanScore: "0.42", ModelType: "IsolationForest", CreatedAt: base,
	}))
	require.NoError(t, store.Record(ctx, Entry{
		ID: "b", Filename: "second.geojson", Status: "failure",
		MeanScore: "N/A", ModelType: "Unknown", ErrorCount: 1,
		Message: "Service unavailable", CreatedAt: base.Add(time.Minute),
	}))

	entries, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].ID)
	assert.Equal(t, "Service unavailable", entries[0].Message)
	assert.Equal(t, "a", entries[1].ID)
	assert.Equal(t, 5, entries[1].Anomalies)

	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_DuplicateID(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	e := Entry{ID: "dup", Filename: "x.json", Status: "success", MeanScore: "N/A", ModelType: "Unknown"}
	require.NoError(t, store.Record(ctx, e))
	assert.Error(t, store.Record(ctx, e))
}

func TestStore_EmptyList(t *testing.T) {
	entries, err := newStore(t).List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}
