package query_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorypulse/mempulse-go/pkg/query"
	"github.com/memorypulse/mempulse-go/pkg/storage"
	sqliteStore "github.com/memorypulse/mempulse-go/pkg/storage/sqlite"
)

func setupPlanner(t *testing.T) (*query.Planner, *sqliteStore.Client) {
	t.Helper()

	store, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "planner_test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return query.NewPlanner(store, zerolog.Nop()), store
}

func storeMemory(t *testing.T, store *sqliteStore.Client, id, projectID, summary string, memType storage.MemoryType, tags []string) {
	t.Helper()

	now := time.Now()
	m := &storage.Memory{
		ID:        id,
		ProjectID: projectID,
		Timestamp: now,
		Type:      memType,
		Tags:      tags,
		Version:   1,
		Content:   storage.MemoryContent{Summary: summary},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.Searchable = storage.BuildSearchable(m)
	require.NoError(t, store.Store(context.Background(), m))
}

func TestAnalyzeIntent(t *testing.T) {
	cases := []struct {
		name    string
		filters *storage.SearchFilters
		want    query.Intent
	}{
		{"session wins", &storage.SearchFilters{SessionID: "s1", Query: "x", ProjectID: "p1"}, query.IntentResumeSession},
		{"project context", &storage.SearchFilters{ProjectID: "p1"}, query.IntentProjectContext},
		{"topic search", &storage.SearchFilters{Query: "jwt", ProjectID: "p1"}, query.IntentTopicSearch},
		{"global", &storage.SearchFilters{Query: "jwt"}, query.IntentGlobalSearch},
		{"empty", &storage.SearchFilters{}, query.IntentGlobalSearch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, query.AnalyzeIntent(tc.filters))
		})
	}
}

func TestRecallNoDegradationWhenResultsExist(t *testing.T) {
	planner, store := setupPlanner(t)
	storeMemory(t, store, "mem_1", "p1", "jwt token rotation", storage.TypeDecision, nil)

	result, err := planner.Recall(context.Background(), &storage.SearchFilters{
		Query:     "jwt",
		ProjectID: "p1",
	})
	require.NoError(t, err)

	assert.False(t, result.Degraded)
	assert.Empty(t, result.DegradationReasons)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, query.IntentTopicSearch, result.Intent)
}

func TestDegradationRemovesTypeFilter(t *testing.T) {
	planner, store := setupPlanner(t)

	// The record matches the query but not the requested type, so the
	// strict query is empty and the first ladder step recovers it.
	storeMemory(t, store, "mem_1", "p1", "auth middleware setup", storage.TypeCode, []string{"auth"})

	result, err := planner.Recall(context.Background(), &storage.SearchFilters{
		Query:     "auth",
		ProjectID: "p1",
		Type:      storage.TypeConfig,
	})
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Equal(t, []string{"remove type filter"}, result.DegradationReasons)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, "mem_1", result.Memories[0].ID)
}

func TestDegradationStopsAtFirstProductiveStep(t *testing.T) {
	planner, store := setupPlanner(t)

	storeMemory(t, store, "mem_1", "p1", "redis cache eviction", storage.TypeSolution, []string{"cache"})

	// Type matches but the tag filter excludes the record; the type step
	// is skipped (no type filter set) and the tag step recovers it.
	result, err := planner.Recall(context.Background(), &storage.SearchFilters{
		Query:     "redis",
		ProjectID: "p1",
		Tags:      []string{"networking"},
	})
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Equal(t, []string{"remove tag filter"}, result.DegradationReasons)
	assert.Equal(t, 1, result.Total)
}

func TestDegradationWidensToProjectGroup(t *testing.T) {
	planner, store := setupPlanner(t)
	ctx := context.Background()

	require.NoError(t, store.SaveGroup(ctx, &storage.ProjectGroup{
		Name:     "platform",
		Projects: []string{"backend-api", "backend-worker"},
	}))

	storeMemory(t, store, "mem_1", "backend-worker", "kafka consumer rebalance", storage.TypeSolution, nil)

	result, err := planner.Recall(ctx, &storage.SearchFilters{
		Query:     "kafka",
		ProjectID: "backend-api",
	})
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Equal(t, []string{"widen to project group"}, result.DegradationReasons)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, "mem_1", result.Memories[0].ID)
}

func TestDegradationFallsBackToRecent(t *testing.T) {
	planner, store := setupPlanner(t)

	storeMemory(t, store, "mem_1", "p1", "completely unrelated record", storage.TypeDecision, nil)

	result, err := planner.Recall(context.Background(), &storage.SearchFilters{
		Query:     "nonexistent_token",
		ProjectID: "p1",
	})
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Contains(t, result.DegradationReasons, "drop query, fall back to most recent in scope")
	assert.Equal(t, 1, result.Total)
}

func TestDegradationGoesGlobalLast(t *testing.T) {
	planner, store := setupPlanner(t)

	storeMemory(t, store, "mem_1", "other-project", "the only record", storage.TypeDecision, nil)

	result, err := planner.Recall(context.Background(), &storage.SearchFilters{
		Query:     "nonexistent_token",
		ProjectID: "empty-project",
	})
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Equal(t, []string{
		"drop query, fall back to most recent in scope",
		"search globally across all projects",
	}, result.DegradationReasons)
	assert.Equal(t, 1, result.Total)
}

func TestDegradationExhaustedReturnsEmpty(t *testing.T) {
	planner, _ := setupPlanner(t)

	result, err := planner.Recall(context.Background(), &storage.SearchFilters{
		Query:     "anything",
		ProjectID: "p1",
	})
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Equal(t, 0, result.Total)
	assert.Empty(t, result.Memories)
}

func TestNoDegradationWithoutQuery(t *testing.T) {
	planner, _ := setupPlanner(t)

	// An empty project is a true empty result, not a degradation case.
	result, err := planner.Recall(context.Background(), &storage.SearchFilters{
		ProjectID: "p1",
	})
	require.NoError(t, err)

	assert.False(t, result.Degraded)
	assert.Equal(t, 0, result.Total)
}

func TestScoreMemoriesFieldWeights(t *testing.T) {
	strong := &storage.Memory{
		ProjectID: "auth-service",
		Tags:      []string{"auth"},
		Content:   storage.MemoryContent{Summary: "auth token design"},
		Searchable: storage.Searchable{
			Keywords: []string{"auth"},
			FullText: "auth token design",
		},
		Timestamp: time.Now(),
	}
	weak := &storage.Memory{
		ProjectID: "billing",
		Content:   storage.MemoryContent{Summary: "invoice batching"},
		Searchable: storage.Searchable{
			FullText: "invoice batching auth",
		},
		Timestamp: time.Now(),
	}

	query.ScoreMemories([]*storage.Memory{strong, weak}, "auth", "auth-service")

	assert.Greater(t, strong.Score, weak.Score)
	assert.LessOrEqual(t, strong.Score, 1.0)
	assert.Greater(t, weak.Score, 0.0)
}

func TestScoreMemoriesRecencyFallback(t *testing.T) {
	fresh := &storage.Memory{ProjectID: "p2", Timestamp: time.Now()}
	old := &storage.Memory{ProjectID: "p2", Timestamp: time.Now().AddDate(0, 0, -60)}

	query.ScoreMemories([]*storage.Memory{fresh, old}, "", "")

	assert.InDelta(t, 1.0, fresh.Score, 0.01)
	assert.Equal(t, 0.0, old.Score)
}

func TestScoreMemoriesProjectMatchWithoutQuery(t *testing.T) {
	m := &storage.Memory{ProjectID: "p1", Timestamp: time.Now().AddDate(0, 0, -60)}

	query.ScoreMemories([]*storage.Memory{m}, "", "p1")

	assert.Equal(t, 1.0, m.Score)
}
