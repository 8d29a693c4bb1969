package relation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorypulse/mempulse-go/pkg/relation"
	"github.com/memorypulse/mempulse-go/pkg/storage"
)

// mapFetcher is an in-memory Fetcher for graph tests.
type mapFetcher map[string]*storage.Memory

func (f mapFetcher) GetByID(_ context.Context, id string) (*storage.Memory, error) {
	return f[id], nil
}

func (f mapFetcher) GetByIDs(_ context.Context, ids []string) ([]*storage.Memory, error) {
	var memories []*storage.Memory
	for _, id := range ids {
		if m, ok := f[id]; ok {
			memories = append(memories, m)
		}
	}
	return memories, nil
}

func linked(id string, relatedTo ...string) *storage.Memory {
	return &storage.Memory{
		ID:        id,
		Relations: storage.MemoryRelations{RelatedTo: relatedTo},
	}
}

func TestExpandSingleHop(t *testing.T) {
	f := mapFetcher{
		"a": linked("a", "b", "c"),
		"b": linked("b", "d"),
		"c": linked("c"),
		"d": linked("d"),
	}

	expanded, err := relation.Expand(context.Background(), f, []*storage.Memory{f["a"]}, 1)
	require.NoError(t, err)

	ids := idsOf(expanded)
	assert.ElementsMatch(t, []string{"b", "c"}, ids)
}

func TestExpandTwoHops(t *testing.T) {
	f := mapFetcher{
		"a": linked("a", "b"),
		"b": linked("b", "c"),
		"c": linked("c"),
	}

	expanded, err := relation.Expand(context.Background(), f, []*storage.Memory{f["a"]}, 2)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"b", "c"}, idsOf(expanded))
}

func TestExpandDeduplicatesAndExcludesRoots(t *testing.T) {
	// b is reachable from both roots; a root is also a target.
	f := mapFetcher{
		"a": linked("a", "b", "x"),
		"x": linked("x", "b", "a"),
		"b": linked("b"),
	}

	expanded, err := relation.Expand(context.Background(), f, []*storage.Memory{f["a"], f["x"]}, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, idsOf(expanded))
}

func TestExpandTerminatesOnCycle(t *testing.T) {
	f := mapFetcher{
		"a": linked("a", "b"),
		"b": linked("b", "a"),
	}

	expanded, err := relation.Expand(context.Background(), f, []*storage.Memory{f["a"]}, 100)
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, idsOf(expanded))
}

func TestExpandDepthZero(t *testing.T) {
	f := mapFetcher{"a": linked("a", "b"), "b": linked("b")}

	expanded, err := relation.Expand(context.Background(), f, []*storage.Memory{f["a"]}, 0)
	require.NoError(t, err)
	assert.Nil(t, expanded)
}

func TestExpandSkipsDanglingTargets(t *testing.T) {
	f := mapFetcher{"a": linked("a", "gone", "b"), "b": linked("b")}

	expanded, err := relation.Expand(context.Background(), f, []*storage.Memory{f["a"]}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, idsOf(expanded))
}

func TestExpandFollowsAllEdgeKinds(t *testing.T) {
	a := &storage.Memory{
		ID: "a",
		Relations: storage.MemoryRelations{
			Replaces:    []string{"r"},
			RelatedTo:   []string{"rt"},
			Impacts:     []string{"i"},
			DerivedFrom: "d",
		},
	}
	f := mapFetcher{
		"a": a, "r": linked("r"), "rt": linked("rt"), "i": linked("i"), "d": linked("d"),
	}

	expanded, err := relation.Expand(context.Background(), f, []*storage.Memory{a}, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r", "rt", "i", "d"}, idsOf(expanded))
}

func TestTreeStructure(t *testing.T) {
	f := mapFetcher{
		"a": linked("a", "b"),
		"b": linked("b", "c"),
		"c": linked("c"),
	}

	node, err := relation.Tree(context.Background(), f, "a", 2)
	require.NoError(t, err)

	assert.Equal(t, "a", node.Memory.ID)
	require.Len(t, node.Related, 1)
	assert.Equal(t, "b", node.Related[0].Memory.ID)
	require.Len(t, node.Related[0].Related, 1)
	assert.Equal(t, "c", node.Related[0].Related[0].Memory.ID)
}

func TestTreeDepthZeroHasNoChildren(t *testing.T) {
	f := mapFetcher{"a": linked("a", "b"), "b": linked("b")}

	node, err := relation.Tree(context.Background(), f, "a", 0)
	require.NoError(t, err)
	assert.Equal(t, "a", node.Memory.ID)
	assert.Nil(t, node.Related)
}

func TestTreeMissingRoot(t *testing.T) {
	_, err := relation.Tree(context.Background(), mapFetcher{}, "nope", 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestInferProjectGroup(t *testing.T) {
	cases := map[string]string{
		"shop-api":     "shop",
		"shop-web":     "shop",
		"backend-api":  "backend",
		"monolith":     "monolith",
		"-leading":     "-leading",
		"multi-part-x": "multi-part",
	}

	for input, want := range cases {
		assert.Equal(t, want, relation.InferProjectGroup(input), "input %q", input)
	}
}

func idsOf(memories []*storage.Memory) []string {
	ids := make([]string, 0, len(memories))
	for _, m := range memories {
		ids = append(ids, m.ID)
	}
	return ids
}
