package sqlite

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/memorypulse/mempulse-go/pkg/storage"
	"github.com/memorypulse/mempulse-go/pkg/vector"
)

const (
	// defaultRecallLimit applies when filters carry no limit.
	defaultRecallLimit = 10

	// defaultSemanticThreshold is the minimum cosine similarity for
	// semantic matches.
	defaultSemanticThreshold = 0.7
)

// exactColumns and fulltextColumns are the searchable columns per tier.
var (
	exactColumns    = []string{"summary", "full_text"}
	fulltextColumns = []string{"project_id", "summary", "full_text", "tags", "keywords"}
)

// Recall executes the multi-dimensional query for the selected strategy.
//
// The auto strategy tries the exact tier first and falls back to the
// fulltext tier on zero results; the result reports the tier actually
// used. Degradation beyond that is the planner's responsibility.
func (c *Client) Recall(ctx context.Context, filters *storage.SearchFilters) (*storage.RecallResult, error) {
	start := time.Now()

	strategy := filters.Strategy
	if strategy == "" {
		strategy = storage.StrategyAuto
	}

	var (
		result *storage.RecallResult
		err    error
	)

	switch strategy {
	case storage.StrategySemantic:
		result, err = c.semanticSearch(ctx, filters)
	case storage.StrategyExact:
		result, err = c.keywordSearch(ctx, filters, storage.StrategyExact)
	case storage.StrategyFulltext:
		result, err = c.keywordSearch(ctx, filters, storage.StrategyFulltext)
	case storage.StrategyAuto:
		result, err = c.keywordSearch(ctx, filters, storage.StrategyExact)
		if err == nil && result.Total == 0 {
			result, err = c.keywordSearch(ctx, filters, storage.StrategyFulltext)
		}
	default:
		return nil, fmt.Errorf("Recall: unknown strategy %q", strategy)
	}
	if err != nil {
		return nil, err
	}

	result.Took = time.Since(start)
	result.Metrics.StrategyTime = result.Took - result.Metrics.DBTime - result.Metrics.ParseTime
	return result, nil
}

// keywordSearch runs the substring tier over the columns of the given
// strategy, with structural filters ANDed on top.
func (c *Client) keywordSearch(ctx context.Context, filters *storage.SearchFilters, strategy storage.Strategy) (*storage.RecallResult, error) {
	columns := fulltextColumns
	if strategy == storage.StrategyExact {
		columns = exactColumns
	}

	conditions, args := structuralWhere(filters)
	if cond, condArgs := keywordWhere(filters.Query, columns); cond != "" {
		conditions = append(conditions, cond)
		args = append(args, condArgs...)
	}
	where := whereClause(conditions)

	result := &storage.RecallResult{Strategy: strategy}

	dbStart := time.Now()
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM memories %s`, where)
	if err := c.db.QueryRowContext(ctx, countQuery, args...).Scan(&result.Total); err != nil {
		return nil, fmt.Errorf("Recall: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}

	query := fmt.Sprintf(`
		SELECT %s FROM memories
		%s
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`, memoryColumns, where)

	rows, err := c.db.QueryContext(ctx, query, append(args, limit, filters.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("Recall: %w", err)
	}
	defer func() { _ = rows.Close() }()
	result.Metrics.DBTime = time.Since(dbStart)

	parseStart := time.Now()
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("Recall: %w", err)
		}
		result.Memories = append(result.Memories, memory)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Recall: %w", err)
	}
	result.Metrics.ParseTime = time.Since(parseStart)

	return result, nil
}

// semanticSearch ranks records carrying embeddings by cosine similarity
// against the query embedding.
//
// SQLite has no native vector operations, so similarity is computed in
// memory over the structurally filtered candidate set.
func (c *Client) semanticSearch(ctx context.Context, filters *storage.SearchFilters) (*storage.RecallResult, error) {
	if len(filters.QueryEmbedding) == 0 {
		return nil, fmt.Errorf("Recall: semantic strategy requires a query embedding")
	}

	threshold := filters.Threshold
	if threshold <= 0 {
		threshold = defaultSemanticThreshold
	}

	conditions, args := structuralWhere(filters)
	conditions = append(conditions, "embedding IS NOT NULL")

	result := &storage.RecallResult{Strategy: storage.StrategySemantic}

	dbStart := time.Now()
	query := fmt.Sprintf(`SELECT %s FROM memories %s`, memoryColumns, whereClause(conditions))
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Recall: %w", err)
	}
	defer func() { _ = rows.Close() }()
	result.Metrics.DBTime = time.Since(dbStart)

	parseStart := time.Now()
	var matches []*storage.Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("Recall: %w", err)
		}

		score, err := vector.CosineSimilarity(filters.QueryEmbedding, memory.Embedding)
		if err != nil {
			// Stored vectors of a different dimension cannot match.
			continue
		}
		if score < threshold {
			continue
		}

		memory.Score = score
		matches = append(matches, memory)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Recall: %w", err)
	}
	result.Metrics.ParseTime = time.Since(parseStart)

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	result.Total = len(matches)

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}
	if filters.Offset < len(matches) {
		matches = matches[filters.Offset:]
	} else {
		matches = nil
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	result.Memories = matches

	return result, nil
}

// Timeline returns records for a project ordered newest first, annotating
// each entry with its neighboring record ids for linear browsing.
func (c *Client) Timeline(ctx context.Context, opts *storage.TimelineOptions) (*storage.TimelineResult, error) {
	conditions := []string{"project_id = ?"}
	args := []interface{}{opts.ProjectID}

	if opts.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(opts.Type))
	}
	if opts.Since != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, *opts.Since)
	}
	if opts.Until != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, *opts.Until)
	}
	where := whereClause(conditions)

	result := &storage.TimelineResult{}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM memories %s`, where)
	if err := c.db.QueryRowContext(ctx, countQuery, args...).Scan(&result.Total); err != nil {
		return nil, fmt.Errorf("Timeline: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}

	// Fetch one record on each side of the page so boundary entries can
	// still name their neighbors.
	fetchOffset := opts.Offset
	lead := 0
	if fetchOffset > 0 {
		fetchOffset--
		lead = 1
	}
	fetchLimit := limit + lead + 1

	query := fmt.Sprintf(`
		SELECT %s FROM memories
		%s
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`, memoryColumns, where)

	rows, err := c.db.QueryContext(ctx, query, append(args, fetchLimit, fetchOffset)...)
	if err != nil {
		return nil, fmt.Errorf("Timeline: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var window []*storage.Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("Timeline: %w", err)
		}
		window = append(window, memory)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Timeline: %w", err)
	}

	end := lead + limit
	if end > len(window) {
		end = len(window)
	}
	for i := lead; i < end; i++ {
		entry := &storage.TimelineEntry{Memory: window[i]}
		if i > 0 {
			entry.NextID = window[i-1].ID
		}
		if i+1 < len(window) {
			entry.PrevID = window[i+1].ID
		}
		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}
