package query

import (
	"sort"
	"strings"
	"time"

	"github.com/memorypulse/mempulse-go/pkg/storage"
)

// Field weights for relevance scoring. A project-id match is the strongest
// signal; a raw full-text hit the weakest.
const (
	weightProjectID = 1.0
	weightTags      = 0.9
	weightKeywords  = 0.8
	weightSummary   = 0.7
	weightRelation  = 0.6
	weightFullText  = 0.5
)

// maxWeightPerToken is the theoretical maximum score one query token can
// contribute.
const maxWeightPerToken = weightProjectID + weightTags + weightKeywords +
	weightSummary + weightRelation + weightFullText

// recencyWindowDays bounds the recency fallback: a record older than this
// scores 0.
const recencyWindowDays = 30

// ScoreMemories assigns a relevance score in [0, 1] to every memory.
//
// With a query, the score sums field-weighted matches across all query
// tokens, normalized by the maximum achievable score. Without a query the
// score reflects a project-id match when one is given, else a linear
// recency decay over the last 30 days.
func ScoreMemories(memories []*storage.Memory, query, projectID string) {
	tokens := strings.Fields(strings.ToLower(query))
	for _, m := range memories {
		m.Score = scoreMemory(m, tokens, projectID)
	}
}

func scoreMemory(m *storage.Memory, tokens []string, projectID string) float64 {
	if len(tokens) == 0 {
		if projectID != "" && strings.EqualFold(m.ProjectID, projectID) {
			return 1.0
		}
		return recencyScore(m.Timestamp)
	}

	var score float64
	for _, token := range tokens {
		score += tokenScore(m, token)
	}

	normalized := score / (float64(len(tokens)) * maxWeightPerToken)
	if normalized > 1 {
		normalized = 1
	}
	return normalized
}

// tokenScore sums the weights of every field the token matches in,
// case-insensitive.
func tokenScore(m *storage.Memory, token string) float64 {
	var score float64

	if strings.Contains(strings.ToLower(m.ProjectID), token) {
		score += weightProjectID
	}
	if containsFold(m.Tags, token) {
		score += weightTags
	}
	if containsFold(m.Searchable.Keywords, token) {
		score += weightKeywords
	}
	if strings.Contains(strings.ToLower(m.Content.Summary), token) {
		score += weightSummary
	}
	if containsFold(m.Relations.TargetIDs(), token) {
		score += weightRelation
	}
	if strings.Contains(m.Searchable.FullText, token) {
		score += weightFullText
	}

	return score
}

// containsFold reports whether any element contains token,
// case-insensitive.
func containsFold(values []string, token string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), token) {
			return true
		}
	}
	return false
}

// recencyScore decays linearly from 1 (now) to 0 (30 days and older).
func recencyScore(timestamp time.Time) float64 {
	ageDays := time.Since(timestamp).Hours() / 24
	score := 1 - ageDays/recencyWindowDays
	if score < 0 {
		return 0
	}
	return score
}

// sortByScore orders memories by score descending, preserving the stored
// order (newest first) among equal scores.
func sortByScore(memories []*storage.Memory) {
	sort.SliceStable(memories, func(i, j int) bool {
		return memories[i].Score > memories[j].Score
	})
}
