package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorypulse/mempulse-go/pkg/cache"
	"github.com/memorypulse/mempulse-go/pkg/storage"
)

func result(projectID string) *storage.RecallResult {
	return &storage.RecallResult{
		Memories: []*storage.Memory{{ID: "mem_" + projectID, ProjectID: projectID}},
		Total:    1,
		Strategy: storage.StrategyFulltext,
	}
}

func TestKeyFieldOrderIndependence(t *testing.T) {
	a := &storage.SearchFilters{
		Query:     "auth bug",
		ProjectID: "shop-api",
		Tags:      []string{"auth", "backend"},
		Limit:     10,
	}
	b := &storage.SearchFilters{
		Limit:     10,
		Tags:      []string{"backend", "auth"},
		ProjectID: "shop-api",
		Query:     "auth bug",
	}

	assert.Equal(t, cache.Key(a), cache.Key(b))
}

func TestKeyDistinguishesFilters(t *testing.T) {
	base := &storage.SearchFilters{Query: "auth", ProjectID: "p1"}

	withType := &storage.SearchFilters{Query: "auth", ProjectID: "p1", Type: storage.TypeCode}
	withOffset := &storage.SearchFilters{Query: "auth", ProjectID: "p1", Offset: 20}

	assert.NotEqual(t, cache.Key(base), cache.Key(withType))
	assert.NotEqual(t, cache.Key(base), cache.Key(withOffset))
}

func TestKeyNormalizesEmptyStrategyToAuto(t *testing.T) {
	implicit := &storage.SearchFilters{Query: "auth", ProjectID: "p1"}
	explicit := &storage.SearchFilters{Query: "auth", ProjectID: "p1", Strategy: storage.StrategyAuto}

	assert.Equal(t, cache.Key(implicit), cache.Key(explicit))
}

func TestGetTagsCopyAsCacheHit(t *testing.T) {
	c := cache.NewLRU(10)
	key := cache.Key(&storage.SearchFilters{ProjectID: "p1"})

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Set(key, result("p1"))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.True(t, got.Metrics.CacheHit)

	// The stored value itself is never tagged.
	again, ok := c.Get(key)
	require.True(t, ok)
	assert.True(t, again.Metrics.CacheHit)
	assert.Equal(t, got.Memories, again.Memories)
}

func TestLRUEviction(t *testing.T) {
	c := cache.NewLRU(2)

	k1 := cache.Key(&storage.SearchFilters{ProjectID: "p1"})
	k2 := cache.Key(&storage.SearchFilters{ProjectID: "p2"})
	k3 := cache.Key(&storage.SearchFilters{ProjectID: "p3"})

	c.Set(k1, result("p1"))
	c.Set(k2, result("p2"))
	c.Set(k3, result("p3"))

	_, ok := c.Get(k1)
	assert.False(t, ok, "oldest entry should be evicted")

	_, ok = c.Get(k2)
	assert.True(t, ok)
	_, ok = c.Get(k3)
	assert.True(t, ok)
}

func TestGetPromotesEntry(t *testing.T) {
	c := cache.NewLRU(2)

	k1 := cache.Key(&storage.SearchFilters{ProjectID: "p1"})
	k2 := cache.Key(&storage.SearchFilters{ProjectID: "p2"})
	k3 := cache.Key(&storage.SearchFilters{ProjectID: "p3"})

	c.Set(k1, result("p1"))
	c.Set(k2, result("p2"))

	// Touch k1 so k2 becomes least recently used.
	_, ok := c.Get(k1)
	require.True(t, ok)

	c.Set(k3, result("p3"))

	_, ok = c.Get(k2)
	assert.False(t, ok)
	_, ok = c.Get(k1)
	assert.True(t, ok)
}

func TestInvalidateProject(t *testing.T) {
	c := cache.NewLRU(10)

	p1a := cache.Key(&storage.SearchFilters{Query: "auth", ProjectID: "p1"})
	p1b := cache.Key(&storage.SearchFilters{Query: "cache", ProjectID: "p1"})
	p2 := cache.Key(&storage.SearchFilters{Query: "auth", ProjectID: "p2"})

	c.Set(p1a, result("p1"))
	c.Set(p1b, result("p1"))
	c.Set(p2, result("p2"))

	removed := c.InvalidateProject("p1")
	assert.Equal(t, 2, removed)

	_, ok := c.Get(p1a)
	assert.False(t, ok)
	_, ok = c.Get(p1b)
	assert.False(t, ok)
	_, ok = c.Get(p2)
	assert.True(t, ok)
}

func TestInvalidateProjectMatchesGroupScopedKeys(t *testing.T) {
	c := cache.NewLRU(10)

	grouped := cache.Key(&storage.SearchFilters{
		Query:      "auth",
		ProjectID:  "shop-api",
		ProjectIDs: []string{"shop-web", "shop-admin"},
	})
	c.Set(grouped, result("shop-api"))

	assert.Equal(t, 1, c.InvalidateProject("shop-web"))

	_, ok := c.Get(grouped)
	assert.False(t, ok)
}

func TestInvalidateProjectWithSeparatorInQuery(t *testing.T) {
	c := cache.NewLRU(10)

	// A query containing the key separator must not shift the project
	// field out from under invalidation.
	key := cache.Key(&storage.SearchFilters{Query: "alpha|x", ProjectID: "p1"})
	c.Set(key, result("p1"))

	assert.Equal(t, 1, c.InvalidateProject("p1"))

	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestInvalidateProjectWithSeparatorInProjectID(t *testing.T) {
	c := cache.NewLRU(10)

	key := cache.Key(&storage.SearchFilters{Query: "auth", ProjectID: "p|1"})
	c.Set(key, result("p|1"))

	assert.Equal(t, 1, c.InvalidateProject("p|1"))
	assert.Equal(t, 0, c.InvalidateProject("p"))
	assert.Equal(t, 0, c.InvalidateProject("1"))
}

func TestKeyEscapesEmbeddedSeparators(t *testing.T) {
	// A query containing the separator cannot mimic a different tuple.
	a := cache.Key(&storage.SearchFilters{Query: "auth|p1"})
	b := cache.Key(&storage.SearchFilters{Query: "auth", ProjectID: "p1"})
	assert.NotEqual(t, a, b)

	// One tag containing a comma is not two tags.
	joined := cache.Key(&storage.SearchFilters{Tags: []string{"x,y"}})
	split := cache.Key(&storage.SearchFilters{Tags: []string{"x", "y"}})
	assert.NotEqual(t, joined, split)

	// A literal backslash cannot forge an escape sequence.
	forged := cache.Key(&storage.SearchFilters{Tags: []string{`x\,y`}})
	assert.NotEqual(t, forged, joined)
	assert.NotEqual(t, forged, split)
}

func TestStats(t *testing.T) {
	c := cache.NewLRU(5)
	key := cache.Key(&storage.SearchFilters{ProjectID: "p1"})

	c.Get(key) // miss
	c.Set(key, result("p1"))
	c.Get(key) // hit

	s := c.Stats()
	assert.Equal(t, 1, s.Size)
	assert.Equal(t, 5, s.Capacity)
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.InDelta(t, 0.5, s.HitRate, 1e-9)
}

func TestClear(t *testing.T) {
	c := cache.NewLRU(5)
	key := cache.Key(&storage.SearchFilters{ProjectID: "p1"})
	c.Set(key, result("p1"))

	c.Clear()

	assert.Equal(t, 0, c.Stats().Size)
	_, ok := c.Get(key)
	assert.False(t, ok)
}
