package keywords_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorypulse/mempulse-go/pkg/keywords"
)

func TestExtractEmptyInput(t *testing.T) {
	assert.Empty(t, keywords.Extract("", nil))
}

func TestExtractBasicEnglish(t *testing.T) {
	got := keywords.Extract("database connection error in the connection pool", nil)

	assert.Contains(t, got, "database")
	assert.Contains(t, got, "connection")
	assert.Contains(t, got, "error")
	assert.Contains(t, got, "pool")
	// Stopwords never survive.
	assert.NotContains(t, got, "the")
	assert.NotContains(t, got, "in")
}

func TestExtractSpecialPatternsSurvive(t *testing.T) {
	got := keywords.Extract("fixed GET /api/users after deploying v1.2.3 on port :8080", nil)

	assert.Contains(t, got, "/api/users")
	assert.Contains(t, got, "v1.2.3")
	assert.Contains(t, got, ":8080")
}

func TestExtractPreservesIdentifierCasing(t *testing.T) {
	got := keywords.Extract("refactored getUserById in UserService, renamed MAX_RETRY", nil)

	assert.Contains(t, got, "getUserById")
	assert.Contains(t, got, "UserService")
	assert.Contains(t, got, "MAX_RETRY")
}

func TestExtractChineseBigrams(t *testing.T) {
	got := keywords.Extract("数据库连接失败，需要重试", nil)

	// The whole run plus its two-character windows.
	assert.Contains(t, got, "数据库连接失败")
	assert.Contains(t, got, "数据")
	assert.Contains(t, got, "连接")
	assert.Contains(t, got, "失败")
	assert.Contains(t, got, "重试")
}

func TestExtractStructuredContext(t *testing.T) {
	ctx := map[string]interface{}{
		"problem":  "redis timeout",
		"solution": "increase pool size",
		"id":       "mem_abc123",
		"nested": map[string]interface{}{
			"rootCause": "slow network",
		},
	}

	got := keywords.Extract("production incident", ctx)

	assert.Contains(t, got, "redis")
	assert.Contains(t, got, "timeout")
	assert.Contains(t, got, "network")
	// Informative key names contribute, metadata keys do not.
	assert.Contains(t, got, "problem")
	assert.NotContains(t, got, "mem_abc123")
}

func TestExtractDeterministic(t *testing.T) {
	content := "debugging WebSocket reconnect loop in /ws/events handler"
	ctx := map[string]interface{}{
		"zebra": "last alphabetically",
		"alpha": "first alphabetically",
		"tags":  []interface{}{"websocket", "reconnect"},
	}

	first := keywords.Extract(content, ctx)
	require.NotEmpty(t, first)

	for i := 0; i < 10; i++ {
		assert.Equal(t, first, keywords.Extract(content, ctx))
	}
}

func TestExtractCapped(t *testing.T) {
	long := ""
	for _, w := range []string{
		"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf",
		"hotel", "india", "juliet", "kilo", "lima", "mike", "november",
		"oscar", "papa", "quebec", "romeo", "sierra", "tango", "uniform",
		"victor", "whiskey", "xray", "yankee", "zulu", "anchor", "beacon",
		"cipher", "dynamo", "ember", "falcon", "granite", "harbor",
		"island", "jungle", "kernel", "lantern", "meadow", "nebula",
		"orbit", "prism", "quartz", "raven", "summit", "tundra",
	} {
		long += w + " " + w + " "
	}

	got := keywords.Extract(long, nil)
	assert.LessOrEqual(t, len(got), 40)
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []string
		b        []string
		expected float64
	}{
		{name: "both empty", a: nil, b: nil, expected: 0},
		{name: "one empty", a: []string{"redis"}, b: nil, expected: 0},
		{name: "identical", a: []string{"redis", "cache"}, b: []string{"redis", "cache"}, expected: 1},
		{name: "disjoint", a: []string{"redis"}, b: []string{"mysql"}, expected: 0},
		{name: "half overlap", a: []string{"redis", "cache"}, b: []string{"redis", "queue"}, expected: 1.0 / 3.0},
		{name: "case insensitive", a: []string{"Redis"}, b: []string{"redis"}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, keywords.JaccardSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestIntersection(t *testing.T) {
	got := keywords.Intersection(
		[]string{"Redis", "cache", "timeout", "redis"},
		[]string{"REDIS", "timeout", "pool"},
	)
	assert.Equal(t, []string{"redis", "timeout"}, got)

	assert.Empty(t, keywords.Intersection([]string{"a"}, []string{"b"}))
}
