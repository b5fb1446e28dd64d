package history_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piske-alex/mongoexpr/internal/expression"
	"github.com/piske-alex/mongoexpr/internal/history"
)

func TestNewEntry(t *testing.T) {
	entry := history.NewEntry("db.Cars['insertOne']({})")

	_, err := uuid.Parse(entry.ID)
	require.NoError(t, err)
	assert.True(t, entry.Recognized)
	assert.Equal(t, "Cars", entry.Collection)
	assert.Equal(t, "insertOne", entry.Method)
	assert.Equal(t, expression.KindWrite, entry.Kind)
	assert.Equal(t, expression.ViewKeyValue, entry.View)
	assert.False(t, entry.CreatedAt.IsZero())

	entry = history.NewEntry("show dbs")
	assert.False(t, entry.Recognized)
	assert.Empty(t, entry.Method)
}

func TestMemoryStore_AddGetDelete(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore(0)

	added, err := store.Add(ctx, history.Entry{Expression: "db.Cars.find()"})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.False(t, added.CreatedAt.IsZero())

	got, err := store.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added, got)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, store.Delete(ctx, added.ID))
	_, err = store.Get(ctx, added.ID)
	assert.ErrorIs(t, err, history.ErrEntryNotFound)
	assert.ErrorIs(t, store.Delete(ctx, added.ID), history.ErrEntryNotFound)
}

func TestMemoryStore_InvalidID(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore(0)

	_, err := store.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, history.ErrInvalidID)

	_, err = store.Add(ctx, history.Entry{ID: "not-a-uuid"})
	assert.ErrorIs(t, err, history.ErrInvalidID)

	assert.ErrorIs(t, store.Delete(ctx, "not-a-uuid"), history.ErrInvalidID)
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore(0)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	exprs := []string{
		"db.Cars.find()",
		"db.Cars.insertOne({})",
		"db.Boats.find()",
		"db.Cars.aggregate([])",
		"not an expression",
	}
	for i, expr := range exprs {
		entry := history.NewEntry(expr)
		entry.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := store.Add(ctx, entry)
		require.NoError(t, err)
	}

	tests := []struct {
		name     string
		opts     history.ListOptions
		expected []string
	}{
		{
			name:     "newest first",
			opts:     history.ListOptions{},
			expected: []string{"not an expression", "db.Cars.aggregate([])", "db.Boats.find()", "db.Cars.insertOne({})", "db.Cars.find()"},
		},
		{
			name:     "skip and limit",
			opts:     history.ListOptions{Skip: 1, Limit: 2},
			expected: []string{"db.Cars.aggregate([])", "db.Boats.find()"},
		},
		{
			name:     "skip past end",
			opts:     history.ListOptions{Skip: 10},
			expected: []string{},
		},
		{
			name:     "time window",
			opts:     history.ListOptions{From: base.Add(time.Minute), To: base.Add(2 * time.Minute)},
			expected: []string{"db.Boats.find()", "db.Cars.insertOne({})"},
		},
		{
			name:     "collection",
			opts:     history.ListOptions{Collection: "Cars"},
			expected: []string{"db.Cars.aggregate([])", "db.Cars.insertOne({})", "db.Cars.find()"},
		},
		{
			name:     "method",
			opts:     history.ListOptions{Method: "find"},
			expected: []string{"db.Boats.find()", "db.Cars.find()"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.List(ctx, tt.opts)
			require.NoError(t, err)

			got := make([]string, 0, len(entries))
			for _, e := range entries {
				got = append(got, e.Expression)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMemoryStore_Eviction(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore(2)

	first, err := store.Add(ctx, history.NewEntry("db.a.find()"))
	require.NoError(t, err)
	_, err = store.Add(ctx, history.NewEntry("db.b.find()"))
	require.NoError(t, err)
	_, err = store.Add(ctx, history.NewEntry("db.c.find()"))
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	_, err = store.Get(ctx, first.ID)
	assert.ErrorIs(t, err, history.ErrEntryNotFound)
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore(0)

	_, err := store.Add(ctx, history.NewEntry("db.a.find()"))
	require.NoError(t, err)
	require.NoError(t, store.Clear(ctx))

	entries, err := store.List(ctx, history.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, store.DisplayStoreInfo())
}

func TestMemoryStore_ConcurrentAdd(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Add(ctx, history.NewEntry("db.Cars.find()"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 50, count)
}
