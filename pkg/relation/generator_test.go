package relation_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorypulse/mempulse-go/pkg/relation"
	"github.com/memorypulse/mempulse-go/pkg/storage"
	sqliteStore "github.com/memorypulse/mempulse-go/pkg/storage/sqlite"
)

func setupGeneratorStore(t *testing.T) *sqliteStore.Client {
	t.Helper()

	store, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "generator_test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func seedMemory(t *testing.T, store *sqliteStore.Client, id, projectID, summary string) *storage.Memory {
	t.Helper()

	now := time.Now()
	m := &storage.Memory{
		ID:        id,
		ProjectID: projectID,
		Timestamp: now,
		Type:      storage.TypeDecision,
		Version:   1,
		Content:   storage.MemoryContent{Summary: summary},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.Searchable = storage.BuildSearchable(m)
	require.NoError(t, store.Store(context.Background(), m))
	return m
}

func TestProcessCreatesRelations(t *testing.T) {
	store := setupGeneratorStore(t)
	ctx := context.Background()

	seedMemory(t, store, "mem_old", "p1", "kafka consumer rebalance strategy")
	source := seedMemory(t, store, "mem_new", "p1", "kafka consumer rebalance strategy")

	gen := relation.NewGenerator(store, zerolog.Nop(), relation.GeneratorConfig{})
	created := gen.Process(ctx, source)
	assert.Equal(t, 1, created)

	edges, err := store.MemoryRelations(ctx, "mem_new")
	require.NoError(t, err)
	require.Len(t, edges, 1)

	edge := edges[0]
	assert.Equal(t, "mem_new", edge.SourceID)
	assert.Equal(t, "mem_old", edge.TargetID)
	assert.Equal(t, storage.RelationRelatedTo, edge.Type)
	assert.True(t, edge.IsAutoGenerated)
	assert.Greater(t, edge.Confidence, 0.0)
	assert.Regexp(t, `^shares \d+ keywords, similarity \d\.\d{2}$`, edge.Reason)
}

func TestProcessFiltersByThreshold(t *testing.T) {
	store := setupGeneratorStore(t)
	ctx := context.Background()

	// One shared keyword out of many keeps the Jaccard score well below
	// the default threshold.
	seedMemory(t, store, "mem_far", "p1", "kafka invoice batching ledger export archive rollup")
	source := seedMemory(t, store, "mem_new", "p1", "kafka consumer rebalance")

	gen := relation.NewGenerator(store, zerolog.Nop(), relation.GeneratorConfig{})
	created := gen.Process(ctx, source)
	assert.Equal(t, 0, created)
}

func TestProcessCapsRelations(t *testing.T) {
	store := setupGeneratorStore(t)
	ctx := context.Background()

	seedMemory(t, store, "mem_a", "p1", "circuit breaker retry budget")
	seedMemory(t, store, "mem_b", "p1", "circuit breaker retry budget")
	seedMemory(t, store, "mem_c", "p1", "circuit breaker retry budget")
	source := seedMemory(t, store, "mem_new", "p1", "circuit breaker retry budget")

	gen := relation.NewGenerator(store, zerolog.Nop(), relation.GeneratorConfig{MaxRelations: 2})
	created := gen.Process(ctx, source)
	assert.Equal(t, 2, created)
}

func TestProcessNoKeywordsIsNoop(t *testing.T) {
	store := setupGeneratorStore(t)

	gen := relation.NewGenerator(store, zerolog.Nop(), relation.GeneratorConfig{})
	created := gen.Process(context.Background(), &storage.Memory{
		ID:        "mem_blank",
		ProjectID: "p1",
	})
	assert.Equal(t, 0, created)
}

func TestProcessScopesByProjectGroup(t *testing.T) {
	store := setupGeneratorStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveGroup(ctx, &storage.ProjectGroup{
		Name:     "platform",
		Projects: []string{"backend-api", "backend-worker"},
	}))

	seedMemory(t, store, "mem_worker", "backend-worker", "graceful shutdown drain sequence")
	seedMemory(t, store, "mem_other", "unrelated-svc", "graceful shutdown drain sequence")
	source := seedMemory(t, store, "mem_api", "backend-api", "graceful shutdown drain sequence")

	gen := relation.NewGenerator(store, zerolog.Nop(), relation.GeneratorConfig{})
	created := gen.Process(ctx, source)
	assert.Equal(t, 1, created)

	edges, err := store.MemoryRelations(ctx, "mem_api")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "mem_worker", edges[0].TargetID)
}

func TestProcessScopesByInferredGroup(t *testing.T) {
	store := setupGeneratorStore(t)
	ctx := context.Background()

	// No configured group, but shop-api and shop-web share the inferred
	// "shop" prefix, so the sibling is in scope.
	seedMemory(t, store, "mem_web", "shop-web", "checkout idempotency keys")
	seedMemory(t, store, "mem_other", "billing", "checkout idempotency keys")
	source := seedMemory(t, store, "mem_api", "shop-api", "checkout idempotency keys")

	gen := relation.NewGenerator(store, zerolog.Nop(), relation.GeneratorConfig{})
	created := gen.Process(ctx, source)
	assert.Equal(t, 1, created)

	edges, err := store.MemoryRelations(ctx, "mem_api")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "mem_web", edges[0].TargetID)
}

func TestProcessIsIdempotent(t *testing.T) {
	store := setupGeneratorStore(t)
	ctx := context.Background()

	seedMemory(t, store, "mem_old", "p1", "rate limiter token bucket")
	source := seedMemory(t, store, "mem_new", "p1", "rate limiter token bucket")

	gen := relation.NewGenerator(store, zerolog.Nop(), relation.GeneratorConfig{})
	assert.Equal(t, 1, gen.Process(ctx, source))
	assert.Equal(t, 0, gen.Process(ctx, source))
}
