// Package query orchestrates recall on top of a storage backend: intent
// analysis, strategy selection, the degradation ladder, and relevance
// scoring of the matched records.
package query

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/memorypulse/mempulse-go/pkg/storage"
)

// Intent classifies what a recall query is trying to do.
type Intent string

const (
	// IntentProjectContext loads recent context for one project.
	IntentProjectContext Intent = "project_context"

	// IntentTopicSearch searches a topic within a project scope.
	IntentTopicSearch Intent = "topic_search"

	// IntentGlobalSearch searches across all projects.
	IntentGlobalSearch Intent = "global_search"

	// IntentResumeSession restores the memories of one working session.
	IntentResumeSession Intent = "resume_session"
)

// Result is a recall outcome annotated with the analyzed intent.
type Result struct {
	*storage.RecallResult

	Intent Intent
}

// Planner runs recall queries against a store, widening them step by step
// when a stricter query returns nothing.
type Planner struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewPlanner creates a Planner over store.
func NewPlanner(store storage.Store, logger zerolog.Logger) *Planner {
	return &Planner{store: store, logger: logger}
}

// AnalyzeIntent classifies the filters into a query intent.
func AnalyzeIntent(filters *storage.SearchFilters) Intent {
	switch {
	case filters.SessionID != "":
		return IntentResumeSession
	case filters.Query == "" && len(filters.Scope()) > 0:
		return IntentProjectContext
	case filters.Query != "" && len(filters.Scope()) > 0:
		return IntentTopicSearch
	default:
		return IntentGlobalSearch
	}
}

// Recall executes the query, applies the degradation ladder on an empty
// result, and scores the matches.
//
// Ladder steps, strictly in order, each widening the candidate pool: drop
// the type filter, drop the tag filter, widen to the caller's project
// group, drop the query keywords, drop the project restriction. Every
// applied step is reported in DegradationReasons so callers can tell a
// true empty result from a widened one.
func (p *Planner) Recall(ctx context.Context, filters *storage.SearchFilters) (*Result, error) {
	intent := AnalyzeIntent(filters)

	result, err := p.store.Recall(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("Recall: %w", err)
	}

	if result.Total == 0 && filters.Query != "" {
		result, err = p.degrade(ctx, filters, result)
		if err != nil {
			return nil, err
		}
	}

	ScoreMemories(result.Memories, filters.Query, filters.ProjectID)
	sortByScore(result.Memories)

	return &Result{RecallResult: result, Intent: intent}, nil
}

// degradationStep is one rung of the ladder: a reason for the caller and a
// mutation that widens the filters. apply reports false when the step does
// not change anything for these filters and should be skipped.
type degradationStep struct {
	reason string
	apply  func(ctx context.Context, f *storage.SearchFilters) bool
}

// degrade walks the ladder until a step produces results or the ladder is
// exhausted. The last result is returned either way, carrying every
// applied step's reason.
func (p *Planner) degrade(ctx context.Context, filters *storage.SearchFilters, empty *storage.RecallResult) (*storage.RecallResult, error) {
	widened := *filters
	widened.Tags = append([]string(nil), filters.Tags...)
	widened.ProjectIDs = append([]string(nil), filters.ProjectIDs...)

	steps := []degradationStep{
		{
			reason: "remove type filter",
			apply: func(_ context.Context, f *storage.SearchFilters) bool {
				if f.Type == "" {
					return false
				}
				f.Type = ""
				return true
			},
		},
		{
			reason: "remove tag filter",
			apply: func(_ context.Context, f *storage.SearchFilters) bool {
				if len(f.Tags) == 0 {
					return false
				}
				f.Tags = nil
				return true
			},
		},
		{
			reason: "widen to project group",
			apply:  p.widenToGroup,
		},
		{
			reason: "drop query, fall back to most recent in scope",
			apply: func(_ context.Context, f *storage.SearchFilters) bool {
				if f.Query == "" {
					return false
				}
				f.Query = ""
				return true
			},
		},
		{
			reason: "search globally across all projects",
			apply: func(_ context.Context, f *storage.SearchFilters) bool {
				if len(f.Scope()) == 0 {
					return false
				}
				f.ProjectID = ""
				f.ProjectIDs = nil
				return true
			},
		},
	}

	result := empty
	var reasons []string

	for _, step := range steps {
		if !step.apply(ctx, &widened) {
			continue
		}
		reasons = append(reasons, step.reason)

		p.logger.Debug().Str("step", step.reason).Msg("degrading query")

		widenedResult, err := p.store.Recall(ctx, &widened)
		if err != nil {
			return nil, fmt.Errorf("Recall: %w", err)
		}

		result = widenedResult
		if result.Total > 0 {
			break
		}
	}

	result.Degraded = len(reasons) > 0
	result.DegradationReasons = reasons
	return result, nil
}

// widenToGroup replaces the project scope with the caller's configured
// project group, when the store tracks groups and one exists.
func (p *Planner) widenToGroup(ctx context.Context, f *storage.SearchFilters) bool {
	if f.ProjectID == "" {
		return false
	}
	groups, ok := p.store.(storage.GroupStore)
	if !ok {
		return false
	}

	group, err := groups.GroupForProject(ctx, f.ProjectID)
	if err != nil || group == nil || len(group.Projects) <= 1 {
		return false
	}

	f.ProjectIDs = group.Projects
	return true
}
