package core

import (
	"github.com/rs/zerolog"

	"github.com/memorypulse/mempulse-go/pkg/embedder"
	"github.com/memorypulse/mempulse-go/pkg/storage"
)

// ClientOption is a function type for configuring client construction.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type ClientOption func(*clientOptions)

// clientOptions collects construction overrides before the client is built.
type clientOptions struct {
	// logger overrides the default logger.
	logger *zerolog.Logger

	// store overrides the backend that would be built from config. Useful
	// for tests and for custom Store implementations.
	store storage.Store

	// embedder overrides the provider that would be built from config.
	embedder embedder.Provider
}

// WithLogger sets the logger used by the client and its components.
//
// Example:
//
//	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	client, _ := core.NewClient(config, core.WithLogger(logger))
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(opts *clientOptions) {
		opts.logger = &logger
	}
}

// WithStore injects a pre-built storage backend, bypassing the storage
// section of the configuration.
//
// Example:
//
//	store, _ := sqlite.NewClient(&sqlite.Config{DBPath: ":memory:"})
//	client, _ := core.NewClient(config, core.WithStore(store))
func WithStore(store storage.Store) ClientOption {
	return func(opts *clientOptions) {
		opts.store = store
	}
}

// WithEmbedder injects a pre-built embedding provider, bypassing the
// embedder section of the configuration.
//
// Example:
//
//	client, _ := core.NewClient(config, core.WithEmbedder(mock.NewClient(64)))
func WithEmbedder(provider embedder.Provider) ClientOption {
	return func(opts *clientOptions) {
		opts.embedder = provider
	}
}

// applyClientOptions applies construction options.
func applyClientOptions(opts []ClientOption) *clientOptions {
	options := &clientOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// RecallOption is a function type for configuring Recall operations.
type RecallOption func(*storage.SearchFilters)

// WithProject restricts recall to a single project.
//
// Example:
//
//	result, _ := client.Recall(ctx, "jwt refresh", core.WithProject("backend-api"))
func WithProject(projectID string) RecallOption {
	return func(f *storage.SearchFilters) {
		f.ProjectID = projectID
	}
}

// WithProjects restricts recall to an explicit set of projects.
func WithProjects(projectIDs ...string) RecallOption {
	return func(f *storage.SearchFilters) {
		f.ProjectIDs = projectIDs
	}
}

// WithType restricts recall to one memory type.
//
// Example:
//
//	result, _ := client.Recall(ctx, "token", core.WithType(storage.TypeDecision))
func WithType(memoryType storage.MemoryType) RecallOption {
	return func(f *storage.SearchFilters) {
		f.Type = memoryType
	}
}

// WithSession restricts recall to memories from one session.
func WithSession(sessionID string) RecallOption {
	return func(f *storage.SearchFilters) {
		f.SessionID = sessionID
	}
}

// WithTags restricts recall to memories carrying at least one of the tags.
func WithTags(tags ...string) RecallOption {
	return func(f *storage.SearchFilters) {
		f.Tags = tags
	}
}

// WithStrategy forces a specific search strategy instead of auto.
//
// Example:
//
//	result, _ := client.Recall(ctx, "auth", core.WithStrategy(storage.StrategySemantic))
func WithStrategy(strategy storage.Strategy) RecallOption {
	return func(f *storage.SearchFilters) {
		f.Strategy = strategy
	}
}

// WithRecallLimit sets the maximum number of results. Default: 10.
func WithRecallLimit(limit int) RecallOption {
	return func(f *storage.SearchFilters) {
		f.Limit = limit
	}
}

// WithRecallOffset skips the first offset results (for pagination).
func WithRecallOffset(offset int) RecallOption {
	return func(f *storage.SearchFilters) {
		f.Offset = offset
	}
}

// WithRelationExpansion controls relation-graph expansion of results.
// Expansion is on by default at depth 1; pass false to disable it, or a
// larger depth to walk further.
func WithRelationExpansion(expand bool, depth int) RecallOption {
	return func(f *storage.SearchFilters) {
		f.ExpandRelations = &expand
		f.RelationDepth = depth
	}
}

// WithThreshold sets the minimum cosine similarity for semantic recall.
// Default: 0.7.
func WithThreshold(threshold float64) RecallOption {
	return func(f *storage.SearchFilters) {
		f.Threshold = threshold
	}
}

// applyRecallOptions builds SearchFilters from a query and options.
func applyRecallOptions(query string, opts []RecallOption) *storage.SearchFilters {
	filters := &storage.SearchFilters{Query: query}
	for _, opt := range opts {
		opt(filters)
	}
	return filters
}
