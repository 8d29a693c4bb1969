package core

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/memorypulse/mempulse-go/pkg/cache"
	"github.com/memorypulse/mempulse-go/pkg/embedder"
	mockEmbedder "github.com/memorypulse/mempulse-go/pkg/embedder/mock"
	ollamaEmbedder "github.com/memorypulse/mempulse-go/pkg/embedder/ollama"
	openaiEmbedder "github.com/memorypulse/mempulse-go/pkg/embedder/openai"
	"github.com/memorypulse/mempulse-go/pkg/query"
	"github.com/memorypulse/mempulse-go/pkg/relation"
	"github.com/memorypulse/mempulse-go/pkg/storage"
	mysqlStore "github.com/memorypulse/mempulse-go/pkg/storage/mysql"
	postgresStore "github.com/memorypulse/mempulse-go/pkg/storage/postgres"
	sqliteStore "github.com/memorypulse/mempulse-go/pkg/storage/sqlite"
)

// memoryIDSize is the length of the random part of memory ids.
const memoryIDSize = 21

// Client is the main Memory Pulse client.
//
// It provides a complete interface for storing and recalling memories with
// support for:
//   - Multi-strategy recall (exact, fulltext, semantic, auto)
//   - Progressive filter degradation when a query comes back empty
//   - An LRU result cache invalidated on project writes
//   - Relation-graph expansion of recall results
//   - Background auto-relation discovery after writes
//
// The client is thread-safe and can be used concurrently from multiple
// goroutines.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, _ := core.NewClient(config)
//	defer client.Close()
//
//	result, _ := client.Store(ctx, &core.StoreRequest{
//	    ProjectID: "backend-api",
//	    Type:      "decision",
//	    Summary:   "Use JWT with 15 minute expiry",
//	})
type Client struct {
	// config contains the client configuration.
	config *Config

	// store is the storage backend for memory persistence.
	store storage.Store

	// embedder is the embedding provider (nil when embeddings are disabled).
	embedder embedder.Provider

	// planner runs recall with intent analysis and degradation.
	planner *query.Planner

	// cache holds recent recall results (nil when disabled).
	cache *cache.LRU

	// generator discovers relations after writes (nil when disabled).
	generator *relation.Generator

	logger zerolog.Logger

	// mu protects concurrent access to the client.
	mu sync.RWMutex

	// wg tracks in-flight auto-relation goroutines so Close can drain them.
	wg sync.WaitGroup

	closed bool
}

// NewClient creates a new Memory Pulse client.
//
// The client is initialized with:
//   - Storage backend (SQLite, PostgreSQL, or MySQL)
//   - Embedding provider (OpenAI, Ollama, mock; optional)
//   - LRU result cache (if enabled in config)
//   - Auto-relation generator (if enabled in config)
//
// Parameters:
//   - cfg: Configuration containing storage, embedder, cache, and
//     auto-relation settings
//   - opts: Optional construction overrides (logger, store, embedder)
//
// Returns a new Client instance, or an error if initialization fails.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	options := applyClientOptions(opts)

	// An injected store makes the storage config section optional.
	if options.store == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "mempulse").Logger()
	if options.logger != nil {
		logger = *options.logger
	}

	store := options.store
	if store == nil {
		var err error
		store, err = initStorage(cfg.Storage)
		if err != nil {
			return nil, err
		}
	}

	embedderProvider := options.embedder
	if embedderProvider == nil {
		var err error
		embedderProvider, err = initEmbedder(cfg.Embedder)
		if err != nil {
			return nil, err
		}
	}

	client := &Client{
		config:   cfg,
		store:    store,
		embedder: embedderProvider,
		planner:  query.NewPlanner(store, logger),
		logger:   logger,
	}

	if cfg.Cache.Enabled {
		size := cfg.Cache.Size
		if size <= 0 {
			size = cache.DefaultCapacity
		}
		client.cache = cache.NewLRU(size)
	}

	if cfg.AutoRelation.Enabled {
		client.generator = relation.NewGenerator(store, logger, relation.GeneratorConfig{
			Threshold:    cfg.AutoRelation.Threshold,
			MaxRelations: cfg.AutoRelation.MaxRelations,
		})
	}

	return client, nil
}

// Store persists a new memory.
//
// The method:
//  1. Validates the required fields (ProjectID, Type, Summary)
//  2. Builds the derived searchable fields (keywords, full text)
//  3. Generates an embedding when a provider is configured; embedding
//     failure is logged and the write proceeds without a vector
//  4. Writes the memory and invalidates cached results for its project
//  5. Kicks off background auto-relation discovery (if enabled)
//
// Parameters:
//   - ctx: Context for cancellation
//   - req: The memory to store
//
// Returns the new memory id, or an error if validation or the write fails.
func (c *Client) Store(ctx context.Context, req *StoreRequest) (*StoreResult, error) {
	memory, err := c.buildMemory(req)
	if err != nil {
		return nil, err
	}

	if c.embedder != nil && memory.Searchable.FullText != "" {
		embedding, err := c.embedder.Embed(ctx, memory.Searchable.FullText)
		if err != nil {
			// A missing vector only disables semantic recall for this
			// memory; keyword recall still works.
			c.logger.Warn().Err(err).Str("memory_id", memory.ID).Msg("embedding failed, storing without vector")
		} else {
			memory.Embedding = embedding
		}
	}

	if err := c.store.Store(ctx, memory); err != nil {
		return nil, NewMemoryError("Store", err)
	}

	c.invalidateProject(memory.ProjectID)
	c.scheduleAutoRelation(memory)

	return &StoreResult{ID: memory.ID, Success: true}, nil
}

// StoreDecision persists a technical decision record.
//
// The summary is prefixed with "[decision] " and the decision context is
// stored as structured data, so both the choice and its reasoning are
// searchable later.
func (c *Client) StoreDecision(ctx context.Context, projectID string, decision *DecisionContext, tags []string) (*StoreResult, error) {
	if decision == nil || decision.Question == "" {
		return nil, NewMemoryError("StoreDecision", fmt.Errorf("%w: question is required", ErrValidation))
	}

	options := make([]map[string]interface{}, 0, len(decision.Options))
	for _, opt := range decision.Options {
		options = append(options, map[string]interface{}{
			"name": opt.Name,
			"pros": opt.Pros,
			"cons": opt.Cons,
		})
	}

	return c.Store(ctx, &StoreRequest{
		ProjectID: projectID,
		Type:      string(storage.TypeDecision),
		Summary:   "[decision] " + decision.Question,
		Data: map[string]interface{}{
			"question": decision.Question,
			"analysis": decision.Analysis,
			"options":  options,
			"chosen":   decision.Chosen,
			"reason":   decision.Reason,
		},
		Tags: tags,
	})
}

// StoreSolution persists a solved-problem record.
//
// The summary is prefixed with "[solution] " so solutions stand out in
// mixed recall results.
func (c *Client) StoreSolution(ctx context.Context, projectID string, solution *SolutionContext, tags []string) (*StoreResult, error) {
	if solution == nil || solution.Problem == "" {
		return nil, NewMemoryError("StoreSolution", fmt.Errorf("%w: problem is required", ErrValidation))
	}

	return c.Store(ctx, &StoreRequest{
		ProjectID: projectID,
		Type:      string(storage.TypeSolution),
		Summary:   "[solution] " + solution.Problem,
		Data: map[string]interface{}{
			"problem":        solution.Problem,
			"root_cause":     solution.RootCause,
			"solution":       solution.Solution,
			"prevention":     solution.Prevention,
			"related_issues": solution.RelatedIssues,
		},
		RelatedTo: solution.RelatedIssues,
		Tags:      tags,
	})
}

// StoreSession persists a working-session handoff record.
//
// The summary is prefixed with "[session] ". When sessionID is empty the
// new memory's own id is used, so the record is always resumable.
func (c *Client) StoreSession(ctx context.Context, projectID, sessionID string, session *SessionContext, tags []string) (*StoreResult, error) {
	if session == nil || session.Summary == "" {
		return nil, NewMemoryError("StoreSession", fmt.Errorf("%w: summary is required", ErrValidation))
	}

	id, err := newMemoryID()
	if err != nil {
		return nil, NewMemoryError("StoreSession", err)
	}
	if sessionID == "" {
		sessionID = id
	}

	memory, err := c.buildMemory(&StoreRequest{
		ProjectID: projectID,
		SessionID: sessionID,
		Type:      string(storage.TypeSession),
		Summary:   "[session] " + session.Summary,
		Data: map[string]interface{}{
			"summary":          session.Summary,
			"decisions":        session.Decisions,
			"unfinished_tasks": session.UnfinishedTasks,
			"next_steps":       session.NextSteps,
		},
		Tags: tags,
	})
	if err != nil {
		return nil, err
	}
	memory.ID = id

	if c.embedder != nil && memory.Searchable.FullText != "" {
		if embedding, embErr := c.embedder.Embed(ctx, memory.Searchable.FullText); embErr == nil {
			memory.Embedding = embedding
		} else {
			c.logger.Warn().Err(embErr).Str("memory_id", memory.ID).Msg("embedding failed, storing without vector")
		}
	}

	if err := c.store.Store(ctx, memory); err != nil {
		return nil, NewMemoryError("StoreSession", err)
	}

	c.invalidateProject(memory.ProjectID)
	c.scheduleAutoRelation(memory)

	return &StoreResult{ID: memory.ID, Success: true}, nil
}

// Recall searches memories.
//
// The method:
//  1. Consults the result cache (hits skip storage entirely)
//  2. Runs the planner: strategy selection, then the degradation ladder
//     when the strict query comes back empty
//  3. Expands results one relation hop (configurable via options)
//  4. Caches the result
//
// Parameters:
//   - ctx: Context for cancellation
//   - queryText: Free-text query; empty means "most recent in scope"
//   - opts: Optional filters (project, type, session, tags, strategy, ...)
//
// Returns the recall result with strategy, degradation, and timing
// metadata, or an error.
//
// Example:
//
//	result, err := client.Recall(ctx, "jwt refresh token",
//	    core.WithProject("backend-api"),
//	    core.WithType(storage.TypeDecision),
//	)
func (c *Client) Recall(ctx context.Context, queryText string, opts ...RecallOption) (*query.Result, error) {
	filters := applyRecallOptions(queryText, opts)

	if filters.Type != "" && !storage.IsValidType(filters.Type) {
		return nil, NewMemoryError("Recall", fmt.Errorf("%w: unknown memory type %q", ErrValidation, filters.Type))
	}

	var key string
	if c.cache != nil {
		key = cache.Key(filters)
		if cached, ok := c.cache.Get(key); ok {
			return &query.Result{RecallResult: cached, Intent: query.AnalyzeIntent(filters)}, nil
		}
	}

	if filters.Strategy == storage.StrategySemantic && filters.Query != "" {
		if c.embedder == nil {
			return nil, NewMemoryError("Recall", fmt.Errorf("%w: semantic recall requires an embedding provider", ErrValidation))
		}
		embedding, err := c.embedder.Embed(ctx, filters.Query)
		if err != nil {
			return nil, NewMemoryError("Recall", err)
		}
		filters.QueryEmbedding = embedding
	}

	result, err := c.planner.Recall(ctx, filters)
	if err != nil {
		return nil, NewMemoryError("Recall", err)
	}

	if c.shouldExpand(filters) && len(result.Memories) > 0 {
		depth := filters.RelationDepth
		if depth <= 0 {
			depth = 1
		}
		related, expandErr := relation.Expand(ctx, c.store, result.Memories, depth)
		if expandErr != nil {
			c.logger.Debug().Err(expandErr).Msg("relation expansion failed")
		} else {
			result.RelatedMemories = related
		}
	}

	if c.cache != nil {
		c.cache.Set(key, result.RecallResult)
	}

	return result, nil
}

// GetByID retrieves a memory by its id.
//
// Returns (nil, nil) when the id does not exist.
func (c *Client) GetByID(ctx context.Context, id string) (*storage.Memory, error) {
	memory, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, NewMemoryError("GetByID", err)
	}
	return memory, nil
}

// Update applies a partial update to an existing memory.
//
// Changing the summary, data, or tags recomputes the derived searchable
// fields and bumps the version. Cached results for the memory's project
// are invalidated.
func (c *Client) Update(ctx context.Context, id string, update *storage.MemoryUpdate) (*storage.Memory, error) {
	if update == nil {
		return nil, NewMemoryError("Update", fmt.Errorf("%w: update is required", ErrValidation))
	}

	if c.embedder != nil && update.Summary != nil && update.Embedding == nil {
		if embedding, err := c.embedder.Embed(ctx, *update.Summary); err == nil {
			update.Embedding = embedding
		} else {
			c.logger.Warn().Err(err).Str("memory_id", id).Msg("embedding failed, keeping previous vector")
		}
	}

	memory, err := c.store.Update(ctx, id, update)
	if err != nil {
		return nil, NewMemoryError("Update", err)
	}

	c.invalidateProject(memory.ProjectID)
	return memory, nil
}

// Delete removes a memory by its id and invalidates its project's cached
// results.
func (c *Client) Delete(ctx context.Context, id string) error {
	memory, err := c.store.GetByID(ctx, id)
	if err != nil {
		return NewMemoryError("Delete", err)
	}

	if err := c.store.Delete(ctx, id); err != nil {
		return NewMemoryError("Delete", err)
	}

	if memory != nil {
		c.invalidateProject(memory.ProjectID)
	}
	return nil
}

// GetTimeline returns a chronological page of a project's memories, each
// entry linked to its neighbors.
func (c *Client) GetTimeline(ctx context.Context, opts *storage.TimelineOptions) (*storage.TimelineResult, error) {
	if opts == nil || opts.ProjectID == "" {
		return nil, NewMemoryError("GetTimeline", fmt.Errorf("%w: project id is required", ErrValidation))
	}

	result, err := c.store.Timeline(ctx, opts)
	if err != nil {
		return nil, NewMemoryError("GetTimeline", err)
	}
	return result, nil
}

// GetRelations walks the relation graph outward from a memory.
//
// Depth 0 returns just the root node. Returns ErrNotFound when the id
// does not exist.
func (c *Client) GetRelations(ctx context.Context, id string, depth int) (*storage.RelationNode, error) {
	node, err := c.store.Relations(ctx, id, depth)
	if err != nil {
		return nil, NewMemoryError("GetRelations", err)
	}
	return node, nil
}

// GetStats returns aggregate statistics, scoped to projectID when
// non-empty, or ErrUnsupportedCapability when the backend does not
// provide them.
func (c *Client) GetStats(ctx context.Context, projectID string) (*storage.Stats, error) {
	provider, ok := c.store.(storage.StatsProvider)
	if !ok {
		return nil, NewMemoryError("GetStats", ErrUnsupportedCapability)
	}

	stats, err := provider.Stats(ctx, projectID)
	if err != nil {
		return nil, NewMemoryError("GetStats", err)
	}
	return stats, nil
}

// SaveProjectGroup creates or updates a named project group.
//
// Grouped projects share recall scope when the degradation ladder widens
// a query.
func (c *Client) SaveProjectGroup(ctx context.Context, name string, projects []string) (*storage.ProjectGroup, error) {
	groups, ok := c.store.(storage.GroupStore)
	if !ok {
		return nil, NewMemoryError("SaveProjectGroup", ErrUnsupportedCapability)
	}
	if name == "" || len(projects) == 0 {
		return nil, NewMemoryError("SaveProjectGroup", fmt.Errorf("%w: name and projects are required", ErrValidation))
	}

	group := &storage.ProjectGroup{Name: name, Projects: projects}
	if err := groups.SaveGroup(ctx, group); err != nil {
		return nil, NewMemoryError("SaveProjectGroup", err)
	}

	// Group membership changes which cached results are still valid.
	for _, project := range projects {
		c.invalidateProject(project)
	}
	return groups.GetGroup(ctx, name)
}

// GetProjectGroup fetches a group by name. Returns ErrNotFound when the
// name does not exist.
func (c *Client) GetProjectGroup(ctx context.Context, name string) (*storage.ProjectGroup, error) {
	groups, ok := c.store.(storage.GroupStore)
	if !ok {
		return nil, NewMemoryError("GetProjectGroup", ErrUnsupportedCapability)
	}

	group, err := groups.GetGroup(ctx, name)
	if err != nil {
		return nil, NewMemoryError("GetProjectGroup", err)
	}
	return group, nil
}

// ListProjectGroups lists all project groups.
func (c *Client) ListProjectGroups(ctx context.Context) ([]*storage.ProjectGroup, error) {
	groups, ok := c.store.(storage.GroupStore)
	if !ok {
		return nil, NewMemoryError("ListProjectGroups", ErrUnsupportedCapability)
	}

	list, err := groups.ListGroups(ctx)
	if err != nil {
		return nil, NewMemoryError("ListProjectGroups", err)
	}
	return list, nil
}

// DeleteProjectGroup removes a group by name.
func (c *Client) DeleteProjectGroup(ctx context.Context, name string) error {
	groups, ok := c.store.(storage.GroupStore)
	if !ok {
		return NewMemoryError("DeleteProjectGroup", ErrUnsupportedCapability)
	}

	group, err := groups.GetGroup(ctx, name)
	if err != nil {
		return NewMemoryError("DeleteProjectGroup", err)
	}

	if err := groups.DeleteGroup(ctx, name); err != nil {
		return NewMemoryError("DeleteProjectGroup", err)
	}

	for _, project := range group.Projects {
		c.invalidateProject(project)
	}
	return nil
}

// CreateRelations persists explicit relation edges between memories.
//
// Duplicate edges (same source, target, and type) are ignored; the
// returned count covers newly created edges only.
func (c *Client) CreateRelations(ctx context.Context, relations []*storage.MemoryRelation) (int, error) {
	relStore, ok := c.store.(storage.RelationStore)
	if !ok {
		return 0, NewMemoryError("CreateRelations", ErrUnsupportedCapability)
	}

	for _, rel := range relations {
		if rel.SourceID == "" || rel.TargetID == "" {
			return 0, NewMemoryError("CreateRelations", fmt.Errorf("%w: source and target ids are required", ErrValidation))
		}
	}

	created, err := relStore.CreateRelations(ctx, relations)
	if err != nil {
		return 0, NewMemoryError("CreateRelations", err)
	}
	return created, nil
}

// GetMemoryRelations lists the relation edges touching a memory, newest
// first.
func (c *Client) GetMemoryRelations(ctx context.Context, id string) ([]*storage.MemoryRelation, error) {
	relStore, ok := c.store.(storage.RelationStore)
	if !ok {
		return nil, NewMemoryError("GetMemoryRelations", ErrUnsupportedCapability)
	}

	relations, err := relStore.MemoryRelations(ctx, id)
	if err != nil {
		return nil, NewMemoryError("GetMemoryRelations", err)
	}
	return relations, nil
}

// DeleteRelation removes edges between two memories. An empty
// relationType removes edges of every type. Returns the number of edges
// removed.
func (c *Client) DeleteRelation(ctx context.Context, sourceID, targetID string, relationType storage.RelationType) (int, error) {
	relStore, ok := c.store.(storage.RelationStore)
	if !ok {
		return 0, NewMemoryError("DeleteRelation", ErrUnsupportedCapability)
	}

	removed, err := relStore.DeleteRelation(ctx, sourceID, targetID, relationType)
	if err != nil {
		return 0, NewMemoryError("DeleteRelation", err)
	}
	return removed, nil
}

// CacheStats reports hit/miss counters for the result cache. Returns
// zero stats when the cache is disabled.
func (c *Client) CacheStats() cache.Stats {
	if c.cache == nil {
		return cache.Stats{}
	}
	return c.cache.Stats()
}

// Close drains background work and releases all resources.
//
// This method:
//   - Waits for in-flight auto-relation goroutines
//   - Closes the embedder provider
//   - Closes the storage backend
//
// Returns the first error encountered during cleanup.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()

	var errs []error

	if c.embedder != nil {
		if err := c.embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := c.store.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// buildMemory validates a request and assembles a storable memory with
// derived searchable fields.
func (c *Client) buildMemory(req *StoreRequest) (*storage.Memory, error) {
	if req == nil {
		return nil, NewMemoryError("Store", fmt.Errorf("%w: request is required", ErrValidation))
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		return nil, NewMemoryError("Store", fmt.Errorf("%w: project id is required", ErrValidation))
	}
	if strings.TrimSpace(req.Summary) == "" {
		return nil, NewMemoryError("Store", fmt.Errorf("%w: summary is required", ErrValidation))
	}
	if !storage.IsValidType(storage.MemoryType(req.Type)) {
		return nil, NewMemoryError("Store", fmt.Errorf("%w: unknown memory type %q", ErrValidation, req.Type))
	}

	id, err := newMemoryID()
	if err != nil {
		return nil, NewMemoryError("Store", err)
	}

	now := time.Now()
	memory := &storage.Memory{
		ID:        id,
		ProjectID: req.ProjectID,
		SessionID: req.SessionID,
		Timestamp: now,
		Type:      storage.MemoryType(req.Type),
		Tags:      req.Tags,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		Content: storage.MemoryContent{
			Summary:    req.Summary,
			Data:       req.Data,
			RawContext: req.RawContext,
			Artifacts:  req.Artifacts,
		},
		Relations: storage.MemoryRelations{
			Replaces:    req.Replaces,
			RelatedTo:   req.RelatedTo,
			Impacts:     req.Impacts,
			DerivedFrom: req.DerivedFrom,
		},
	}
	memory.Searchable = storage.BuildSearchable(memory)

	return memory, nil
}

// scheduleAutoRelation launches relation discovery for a freshly stored
// memory. Discovery is best-effort and never blocks or fails the write.
func (c *Client) scheduleAutoRelation(memory *storage.Memory) {
	if c.generator == nil {
		return
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	c.wg.Add(1)
	c.mu.RUnlock()

	go func() {
		defer c.wg.Done()
		// The caller's context may already be done once the write
		// returns; discovery runs on its own.
		created := c.generator.Process(context.Background(), memory)
		if created > 0 {
			c.logger.Debug().Str("memory_id", memory.ID).Int("relations", created).Msg("auto relations created")
			c.invalidateProject(memory.ProjectID)
		}
	}()
}

// shouldExpand reports whether relation expansion applies to a recall.
// Expansion defaults to on.
func (c *Client) shouldExpand(filters *storage.SearchFilters) bool {
	return filters.ExpandRelations == nil || *filters.ExpandRelations
}

// invalidateProject drops cached results that could include the project.
func (c *Client) invalidateProject(projectID string) {
	if c.cache == nil || projectID == "" {
		return
	}
	if removed := c.cache.InvalidateProject(projectID); removed > 0 {
		c.logger.Debug().Str("project_id", projectID).Int("removed", removed).Msg("cache invalidated")
	}
}

// newMemoryID generates a memory id of the form "mem_<nanoid>".
func newMemoryID() (string, error) {
	id, err := gonanoid.New(memoryIDSize)
	if err != nil {
		return "", err
	}
	return "mem_" + id, nil
}

// initStorage initializes the storage backend.
func initStorage(cfg StorageConfig) (storage.Store, error) {
	switch cfg.Provider {
	case "sqlite":
		return sqliteStore.NewClient(&sqliteStore.Config{
			DBPath: cfg.DBPath,
		})
	case "postgres":
		return postgresStore.NewClient(&postgresStore.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			Database: cfg.Database,
			SSLMode:  cfg.SSLMode,
		})
	case "mysql":
		return mysqlStore.NewClient(&mysqlStore.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			Database: cfg.Database,
		})
	default:
		return nil, NewMemoryError("initStorage", fmt.Errorf("%w: unknown storage provider %q", ErrInvalidConfig, cfg.Provider))
	}
}

// initEmbedder initializes the embedder provider. An empty provider name
// disables embeddings (and with them, semantic recall).
func initEmbedder(cfg EmbedderConfig) (embedder.Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai":
		return openaiEmbedder.NewClient(&openaiEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "ollama":
		return ollamaEmbedder.NewClient(&ollamaEmbedder.Config{
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "mock":
		return mockEmbedder.NewClient(cfg.Dimensions), nil
	default:
		return nil, NewMemoryError("initEmbedder", fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, cfg.Provider))
	}
}
