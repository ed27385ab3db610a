package sitecontext

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func id(v int64) *int64 { return &v }

func TestScopeStore_SetAndGet(t *testing.T) {
	store := NewScopeStore("tab", nil)

	assert.Nil(t, store.GetOverride("/sites"))
	assert.False(t, store.Has("/sites"))

	store.SetOverride("/sites", id(7))
	require.NotNil(t, store.GetOverride("/sites"))
	assert.Equal(t, int64(7), *store.GetOverride("/sites"))

	store.SetOverride("/sites", nil)
	assert.Nil(t, store.GetOverride("/sites"))
	assert.True(t, store.Has("/sites"), "nil override still records an entry")
}

func TestScopeStore_ReturnedValueIsACopy(t *testing.T) {
	store := NewScopeStore("section", nil)
	v := int64(3)
	store.SetOverride("s1", &v)
	v = 99

	got := store.GetOverride("s1")
	assert.Equal(t, int64(3), *got)
	*got = 42
	assert.Equal(t, int64(3), *store.GetOverride("s1"))
}

func TestScopeStore_EvictStaleEntries(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	store := NewScopeStore("tab", clock.Now)

	store.SetOverride("old", id(1))
	clock.t = clock.t.Add(time.Hour)
	store.SetOverride("at-cutoff", id(2))
	clock.t = clock.t.Add(time.Minute)
	store.SetOverride("fresh", id(3))

	// cutoff lands exactly on "at-cutoff"
	clock.t = clock.t.Add(24*time.Hour - time.Minute)
	removed := store.EvictStaleEntries(24 * time.Hour)

	assert.Equal(t, 1, removed)
	assert.False(t, store.Has("old"))
	assert.True(t, store.Has("at-cutoff"))
	assert.True(t, store.Has("fresh"))

	assert.Equal(t, 0, store.EvictStaleEntries(24*time.Hour), "second sweep is a no-op")
}

func TestScopeStore_WriteRefreshesAge(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	store := NewScopeStore("tab", clock.Now)

	store.SetOverride("t1", id(1))
	clock.t = clock.t.Add(30 * time.Hour)
	store.SetOverride("t1", id(1))

	assert.Equal(t, 0, store.EvictStaleEntries(DefaultMaxAge))
	assert.True(t, store.Has("t1"))
}

func TestScopeStore_ClearAndRestore(t *testing.T) {
	store := NewScopeStore("section", nil)
	store.SetOverride("a", id(1))
	store.SetOverride("b", nil)

	snapshot := store.Entries()
	assert.Len(t, snapshot, 2)

	assert.True(t, store.Clear("a"))
	assert.False(t, store.Clear("a"))
	assert.Equal(t, 1, store.ClearAll())
	assert.Equal(t, 0, store.Len())

	store.Restore(snapshot)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, int64(1), *store.GetOverride("a"))
	assert.True(t, store.Has("b"))
}
