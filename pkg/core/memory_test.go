package core_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorypulse/mempulse-go/pkg/core"
	mockEmbedder "github.com/memorypulse/mempulse-go/pkg/embedder/mock"
	"github.com/memorypulse/mempulse-go/pkg/storage"
	sqliteStore "github.com/memorypulse/mempulse-go/pkg/storage/sqlite"
)

func setupClient(t *testing.T, opts ...core.ClientOption) *core.Client {
	t.Helper()

	store, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "client_test.db"),
	})
	require.NoError(t, err)

	logger := zerolog.Nop()
	cfg := &core.Config{
		Cache: core.CacheConfig{Enabled: true},
	}

	client, err := core.NewClient(cfg, append([]core.ClientOption{
		core.WithLogger(logger),
		core.WithStore(store),
	}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestStoreAndGetByID(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	result, err := client.Store(ctx, &core.StoreRequest{
		ProjectID: "backend-api",
		Type:      "decision",
		Summary:   "use jwt with 15 minute expiry",
		Tags:      []string{"auth"},
		Data:      map[string]interface{}{"chosen": "jwt"},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Regexp(t, `^mem_`, result.ID)

	memory, err := client.GetByID(ctx, result.ID)
	require.NoError(t, err)
	require.NotNil(t, memory)

	assert.Equal(t, "backend-api", memory.ProjectID)
	assert.Equal(t, storage.TypeDecision, memory.Type)
	assert.Equal(t, "use jwt with 15 minute expiry", memory.Content.Summary)
	assert.Equal(t, []string{"auth"}, memory.Tags)
	assert.Equal(t, 1, memory.Version)
	assert.False(t, memory.Timestamp.IsZero())
	assert.NotEmpty(t, memory.Searchable.Keywords)
	assert.NotEmpty(t, memory.Searchable.FullText)
}

func TestStoreValidation(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  *core.StoreRequest
	}{
		{"nil request", nil},
		{"missing project", &core.StoreRequest{Type: "decision", Summary: "s"}},
		{"blank summary", &core.StoreRequest{ProjectID: "p1", Type: "decision", Summary: "   "}},
		{"unknown type", &core.StoreRequest{ProjectID: "p1", Type: "poem", Summary: "s"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Store(ctx, tc.req)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestStoreWithEmbedderAttachesVector(t *testing.T) {
	client := setupClient(t, core.WithEmbedder(mockEmbedder.NewClient(8)))
	ctx := context.Background()

	result, err := client.Store(ctx, &core.StoreRequest{
		ProjectID: "p1",
		Type:      "solution",
		Summary:   "connection pool exhaustion under load",
	})
	require.NoError(t, err)

	memory, err := client.GetByID(ctx, result.ID)
	require.NoError(t, err)
	require.NotNil(t, memory)
	assert.Len(t, memory.Embedding, 8)
}

func TestStoreDecisionPrefixAndData(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	result, err := client.StoreDecision(ctx, "p1", &core.DecisionContext{
		Question: "postgres or mysql",
		Options: []core.DecisionOption{
			{Name: "postgres", Pros: []string{"jsonb"}},
			{Name: "mysql", Cons: []string{"weaker json"}},
		},
		Chosen: "postgres",
		Reason: "jsonb support",
	}, []string{"db"})
	require.NoError(t, err)

	memory, err := client.GetByID(ctx, result.ID)
	require.NoError(t, err)
	require.NotNil(t, memory)

	assert.Equal(t, storage.TypeDecision, memory.Type)
	assert.Equal(t, "[decision] postgres or mysql", memory.Content.Summary)
	assert.Equal(t, "postgres", memory.Content.Data["chosen"])
}

func TestStoreDecisionRequiresQuestion(t *testing.T) {
	client := setupClient(t)

	_, err := client.StoreDecision(context.Background(), "p1", &core.DecisionContext{}, nil)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestStoreSolutionPrefixAndRelations(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	base, err := client.Store(ctx, &core.StoreRequest{
		ProjectID: "p1",
		Type:      "error",
		Summary:   "deadlock on relation insert",
	})
	require.NoError(t, err)

	result, err := client.StoreSolution(ctx, "p1", &core.SolutionContext{
		Problem:       "deadlock on relation insert",
		RootCause:     "lock ordering",
		Solution:      "sort ids before locking",
		RelatedIssues: []string{base.ID},
	}, nil)
	require.NoError(t, err)

	memory, err := client.GetByID(ctx, result.ID)
	require.NoError(t, err)
	require.NotNil(t, memory)

	assert.Equal(t, storage.TypeSolution, memory.Type)
	assert.Equal(t, "[solution] deadlock on relation insert", memory.Content.Summary)
	assert.Equal(t, []string{base.ID}, memory.Relations.RelatedTo)
}

func TestStoreSessionDefaultsSessionID(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	result, err := client.StoreSession(ctx, "p1", "", &core.SessionContext{
		Summary:   "migrated auth middleware",
		NextSteps: []string{"roll out to staging"},
	}, nil)
	require.NoError(t, err)

	memory, err := client.GetByID(ctx, result.ID)
	require.NoError(t, err)
	require.NotNil(t, memory)

	assert.Equal(t, storage.TypeSession, memory.Type)
	assert.Equal(t, "[session] migrated auth middleware", memory.Content.Summary)
	assert.Equal(t, memory.ID, memory.SessionID)
}

func TestStoreSessionKeepsExplicitSessionID(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	result, err := client.StoreSession(ctx, "p1", "sess_42", &core.SessionContext{
		Summary: "paired on cache invalidation",
	}, nil)
	require.NoError(t, err)

	memory, err := client.GetByID(ctx, result.ID)
	require.NoError(t, err)
	require.NotNil(t, memory)
	assert.Equal(t, "sess_42", memory.SessionID)
}

func TestRecallCacheHit(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	_, err := client.Store(ctx, &core.StoreRequest{
		ProjectID: "p1",
		Type:      "decision",
		Summary:   "jwt refresh token rotation",
	})
	require.NoError(t, err)

	first, err := client.Recall(ctx, "jwt", core.WithProject("p1"))
	require.NoError(t, err)
	assert.False(t, first.Metrics.CacheHit)
	assert.Equal(t, 1, first.Total)

	second, err := client.Recall(ctx, "jwt", core.WithProject("p1"))
	require.NoError(t, err)
	assert.True(t, second.Metrics.CacheHit)
	assert.Equal(t, 1, second.Total)

	stats := client.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
}

func TestStoreInvalidatesProjectCache(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	_, err := client.Store(ctx, &core.StoreRequest{
		ProjectID: "p1",
		Type:      "decision",
		Summary:   "jwt refresh token rotation",
	})
	require.NoError(t, err)

	first, err := client.Recall(ctx, "jwt", core.WithProject("p1"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Total)

	_, err = client.Store(ctx, &core.StoreRequest{
		ProjectID: "p1",
		Type:      "decision",
		Summary:   "jwt audience claims",
	})
	require.NoError(t, err)

	// The write dropped the cached result, so the recall sees both records.
	again, err := client.Recall(ctx, "jwt", core.WithProject("p1"))
	require.NoError(t, err)
	assert.False(t, again.Metrics.CacheHit)
	assert.Equal(t, 2, again.Total)
}

func TestRecallRejectsUnknownType(t *testing.T) {
	client := setupClient(t)

	_, err := client.Recall(context.Background(), "x", core.WithType(storage.MemoryType("poem")))
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestRecallSemanticWithoutEmbedderFails(t *testing.T) {
	client := setupClient(t)

	_, err := client.Recall(context.Background(), "anything",
		core.WithProject("p1"),
		core.WithStrategy(storage.StrategySemantic),
	)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestRecallExpandsRelations(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	target, err := client.Store(ctx, &core.StoreRequest{
		ProjectID: "p1",
		Type:      "config",
		Summary:   "nginx upstream timeout settings",
	})
	require.NoError(t, err)

	_, err = client.Store(ctx, &core.StoreRequest{
		ProjectID: "p1",
		Type:      "solution",
		Summary:   "gateway 504 fix",
		RelatedTo: []string{target.ID},
	})
	require.NoError(t, err)

	result, err := client.Recall(ctx, "gateway", core.WithProject("p1"))
	require.NoError(t, err)

	require.Len(t, result.Memories, 1)
	require.Len(t, result.RelatedMemories, 1)
	assert.Equal(t, target.ID, result.RelatedMemories[0].ID)
}

func TestRecallExpansionCanBeDisabled(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	target, err := client.Store(ctx, &core.StoreRequest{
		ProjectID: "p1",
		Type:      "config",
		Summary:   "nginx upstream timeout settings",
	})
	require.NoError(t, err)

	_, err = client.Store(ctx, &core.StoreRequest{
		ProjectID: "p1",
		Type:      "solution",
		Summary:   "gateway 504 fix",
		RelatedTo: []string{target.ID},
	})
	require.NoError(t, err)

	result, err := client.Recall(ctx, "gateway",
		core.WithProject("p1"),
		core.WithRelationExpansion(false, 0),
	)
	require.NoError(t, err)
	assert.Empty(t, result.RelatedMemories)
}

func TestUpdateBumpsVersion(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	result, err := client.Store(ctx, &core.StoreRequest{
		ProjectID: "p1",
		Type:      "decision",
		Summary:   "cache results in redis",
	})
	require.NoError(t, err)

	newSummary := "cache results in memcached"
	updated, err := client.Update(ctx, result.ID, &storage.MemoryUpdate{Summary: &newSummary})
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, newSummary, updated.Content.Summary)
}

func TestUpdateMissingMemory(t *testing.T) {
	client := setupClient(t)

	summary := "x"
	_, err := client.Update(context.Background(), "mem_missing", &storage.MemoryUpdate{Summary: &summary})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDelete(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	result, err := client.Store(ctx, &core.StoreRequest{
		ProjectID: "p1",
		Type:      "code",
		Summary:   "retry helper",
	})
	require.NoError(t, err)

	require.NoError(t, client.Delete(ctx, result.ID))

	memory, err := client.GetByID(ctx, result.ID)
	require.NoError(t, err)
	assert.Nil(t, memory)

	assert.ErrorIs(t, client.Delete(ctx, result.ID), core.ErrNotFound)
}

func TestGetTimelineRequiresProject(t *testing.T) {
	client := setupClient(t)

	_, err := client.GetTimeline(context.Background(), &storage.TimelineOptions{})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestGetStats(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	_, err := client.Store(ctx, &core.StoreRequest{
		ProjectID: "p1",
		Type:      "decision",
		Summary:   "first record",
	})
	require.NoError(t, err)

	stats, err := client.GetStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByProject["p1"])
}

func TestProjectGroupLifecycle(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	group, err := client.SaveProjectGroup(ctx, "platform", []string{"backend-api", "backend-worker"})
	require.NoError(t, err)
	assert.Equal(t, "platform", group.Name)
	assert.Equal(t, []string{"backend-api", "backend-worker"}, group.Projects)

	fetched, err := client.GetProjectGroup(ctx, "platform")
	require.NoError(t, err)
	assert.Equal(t, group.Projects, fetched.Projects)

	list, err := client.ListProjectGroups(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, client.DeleteProjectGroup(ctx, "platform"))

	_, err = client.GetProjectGroup(ctx, "platform")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSaveProjectGroupValidation(t *testing.T) {
	client := setupClient(t)

	_, err := client.SaveProjectGroup(context.Background(), "", []string{"p1"})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = client.SaveProjectGroup(context.Background(), "g", nil)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestRelationEdgeLifecycle(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	a, err := client.Store(ctx, &core.StoreRequest{ProjectID: "p1", Type: "decision", Summary: "record a"})
	require.NoError(t, err)
	b, err := client.Store(ctx, &core.StoreRequest{ProjectID: "p1", Type: "decision", Summary: "record b"})
	require.NoError(t, err)

	created, err := client.CreateRelations(ctx, []*storage.MemoryRelation{{
		SourceID: a.ID,
		TargetID: b.ID,
		Type:     storage.RelationRelatedTo,
		Reason:   "same rollout",
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	edges, err := client.GetMemoryRelations(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, b.ID, edges[0].TargetID)

	removed, err := client.DeleteRelation(ctx, a.ID, b.ID, storage.RelationRelatedTo)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestCreateRelationsValidation(t *testing.T) {
	client := setupClient(t)

	_, err := client.CreateRelations(context.Background(), []*storage.MemoryRelation{{
		SourceID: "a",
	}})
	assert.ErrorIs(t, err, core.ErrValidation)
}

// bareStore implements only storage.Store, so every optional capability
// call must fail cleanly.
type storeIface = storage.Store

type bareStore struct {
	storeIface
}

func (bareStore) Close() error { return nil }

func TestUnsupportedCapabilities(t *testing.T) {
	client, err := core.NewClient(&core.Config{}, core.WithStore(bareStore{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()

	_, err = client.GetStats(ctx, "")
	assert.ErrorIs(t, err, core.ErrUnsupportedCapability)

	_, err = client.SaveProjectGroup(ctx, "g", []string{"p1"})
	assert.ErrorIs(t, err, core.ErrUnsupportedCapability)

	_, err = client.GetMemoryRelations(ctx, "mem_x")
	assert.ErrorIs(t, err, core.ErrUnsupportedCapability)

	_, err = client.CreateRelations(ctx, nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedCapability)

	_, err = client.DeleteRelation(ctx, "a", "b", "")
	assert.ErrorIs(t, err, core.ErrUnsupportedCapability)
}

func TestCloseIsIdempotent(t *testing.T) {
	client := setupClient(t)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
}
