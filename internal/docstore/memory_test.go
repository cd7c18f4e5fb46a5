package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Name  string    `json:"name"`
	Count int       `json:"count"`
	Tags  []string  `json:"tags"`
	When  time.Time `json:"when"`
}

func TestMemoryGetSetRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	in := testDoc{Name: "kitchen", Count: 3, Tags: []string{"a"}}
	require.NoError(t, m.Set(ctx, "rooms/r1", in))

	var out testDoc
	found, err := m.Get(ctx, "rooms/r1", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Count, out.Count)

	// decoded value is a copy, not a shared pointer
	out.Name = "changed"
	var again testDoc
	_, err = m.Get(ctx, "rooms/r1", &again)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", again.Name)
}

func TestMemoryGetMissing(t *testing.T) {
	m := NewMemory()
	var out testDoc
	found, err := m.Get(context.Background(), "rooms/nope", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryUpdateMissingDoc(t *testing.T) {
	m := NewMemory()
	err := m.Update(context.Background(), "rooms/nope", map[string]any{"name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryArrayUnionDeduplicates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "shares/s1", map[string]any{"sharedWith": []string{"u1"}}))

	require.NoError(t, m.Update(ctx, "shares/s1", map[string]any{"sharedWith": ArrayUnion("u2")}))
	require.NoError(t, m.Update(ctx, "shares/s1", map[string]any{"sharedWith": ArrayUnion("u2", "u3")}))

	var out struct {
		SharedWith []string `json:"sharedWith"`
	}
	_, err := m.Get(ctx, "shares/s1", &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2", "u3"}, out.SharedWith)
}

func TestMemoryIncrementAndServerTimestamp(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "users/u1", map[string]any{"count": 1}))

	require.NoError(t, m.Update(ctx, "users/u1", map[string]any{
		"count":     Increment(4),
		"updatedAt": ServerTimestamp(),
	}))

	var out struct {
		Count     int       `json:"count"`
		UpdatedAt time.Time `json:"updatedAt"`
	}
	_, err := m.Get(ctx, "users/u1", &out)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Count)
	assert.WithinDuration(t, time.Now(), out.UpdatedAt, time.Minute)
}

func TestMemoryBatchAtomicity(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.Batch(ctx, []WriteOp{
		{Path: "rooms/r1", Value: testDoc{Name: "a"}},
		{Path: "rooms/missing", Fields: map[string]any{"name": "x"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var out testDoc
	found, err := m.Get(ctx, "rooms/r1", &out)
	require.NoError(t, err)
	assert.False(t, found, "failed batch writes nothing")
}

func TestMemoryQueryFiltersOrderLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, m.Set(ctx, "items/"+name, testDoc{
			Name:  name,
			Count: i,
			When:  base.AddDate(0, 0, i),
		}))
	}

	docs, err := m.Query(ctx, Query{
		Collection: "items",
		Filters:    []Filter{{Field: "count", Op: ">=", Value: 1}},
		OrderBy:    "when",
		Desc:       true,
		Limit:      2,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "d", docs[0].ID)
	assert.Equal(t, "c", docs[1].ID)
}

func TestMemoryQueryTimeFilter(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, m.Set(ctx, "acts/old", testDoc{When: base}))
	require.NoError(t, m.Set(ctx, "acts/new", testDoc{When: base.AddDate(0, 0, 5)}))

	docs, err := m.Query(ctx, Query{
		Collection: "acts",
		Filters:    []Filter{{Field: "when", Op: ">=", Value: base.AddDate(0, 0, 1)}},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "new", docs[0].ID)
}

func TestMemoryQueryArrayContains(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "shares/s1", map[string]any{"sharedWith": []string{"u1", "u2"}}))
	require.NoError(t, m.Set(ctx, "shares/s2", map[string]any{"sharedWith": []string{"u3"}}))

	docs, err := m.Query(ctx, Query{
		Collection: "shares",
		Filters:    []Filter{{Field: "sharedWith", Op: "array-contains", Value: "u2"}},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "s1", docs[0].ID)
}

func TestMemorySubscribe(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "rooms/r1", testDoc{Name: "a"}))

	var mu sync.Mutex
	var deliveries [][]Doc
	stop, err := m.Subscribe(ctx, Query{Collection: "rooms"}, func(docs []Doc) {
		mu.Lock()
		deliveries = append(deliveries, docs)
		mu.Unlock()
	})
	require.NoError(t, err)

	mu.Lock()
	require.Len(t, deliveries, 1, "initial snapshot delivered on subscribe")
	assert.Len(t, deliveries[0], 1)
	mu.Unlock()

	require.NoError(t, m.Set(ctx, "rooms/r2", testDoc{Name: "b"}))

	mu.Lock()
	require.Len(t, deliveries, 2)
	assert.Len(t, deliveries[1], 2)
	mu.Unlock()

	stop()
	require.NoError(t, m.Set(ctx, "rooms/r3", testDoc{Name: "c"}))
	mu.Lock()
	assert.Len(t, deliveries, 2, "no deliveries after stop")
	mu.Unlock()
}

func TestMemoryTransactionStagesWrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "c/doc", map[string]any{"n": 1}))

	err := m.RunTransaction(ctx, func(tx Tx) error {
		var cur map[string]any
		found, err := tx.Get("c/doc", &cur)
		require.NoError(t, err)
		require.True(t, found)

		require.NoError(t, tx.Set("c/doc", map[string]any{"n": 2}))

		// transaction reads see their own staged writes
		var staged map[string]any
		found, err = tx.Get("c/doc", &staged)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, float64(2), staged["n"])
		return nil
	})
	require.NoError(t, err)

	var out map[string]any
	_, err = m.Get(ctx, "c/doc", &out)
	require.NoError(t, err)
	assert.Equal(t, float64(2), out["n"])
}

func TestMemoryTransactionRollbackOnError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "c/doc", map[string]any{"n": 1}))

	boom := errors.New("boom")
	err := m.RunTransaction(ctx, func(tx Tx) error {
		require.NoError(t, tx.Set("c/doc", map[string]any{"n": 99}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var out map[string]any
	_, err = m.Get(ctx, "c/doc", &out)
	require.NoError(t, err)
	assert.Equal(t, float64(1), out["n"], "failed transaction commits nothing")
}

func TestDisabledStore(t *testing.T) {
	var s Store = Disabled{}
	ctx := context.Background()

	_, err := s.Get(ctx, "a/b", nil)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.ErrorIs(t, s.Set(ctx, "a/b", nil), ErrDisabled)
	assert.ErrorIs(t, s.Update(ctx, "a/b", nil), ErrDisabled)
	assert.ErrorIs(t, s.Delete(ctx, "a/b"), ErrDisabled)
	assert.ErrorIs(t, s.Batch(ctx, nil), ErrDisabled)
	_, err = s.Query(ctx, Query{})
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = s.Subscribe(ctx, Query{}, nil)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.ErrorIs(t, s.RunTransaction(ctx, nil), ErrDisabled)
}
