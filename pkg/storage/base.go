// Package storage provides interfaces and types for memory storage backends.
//
// It defines the Store interface that all storage implementations must satisfy,
// the memory record model, and optional capability interfaces (stats, project
// groups, relation edges, candidate search) that a backend may additionally
// implement. Callers discover optional capabilities with a type assertion.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates that a required memory, relation, or project group
// id does not exist. Lookups that can legitimately find nothing (GetByID,
// candidate search, relation target resolution) return an absent value
// instead of this error.
var ErrNotFound = errors.New("not found")

// MemoryType classifies a memory record and determines which structured
// content fields are populated.
type MemoryType string

const (
	TypeDecision MemoryType = "decision"
	TypeSolution MemoryType = "solution"
	TypeConfig   MemoryType = "config"
	TypeCode     MemoryType = "code"
	TypeError    MemoryType = "error"
	TypeSession  MemoryType = "session"
)

// ValidTypes lists every recognized memory type.
var ValidTypes = []MemoryType{
	TypeDecision, TypeSolution, TypeConfig, TypeCode, TypeError, TypeSession,
}

// IsValidType reports whether t is a recognized memory type.
func IsValidType(t MemoryType) bool {
	for _, v := range ValidTypes {
		if t == v {
			return true
		}
	}
	return false
}

// RelationType classifies a relation edge between two memories.
type RelationType string

const (
	RelationRelatedTo RelationType = "relatedTo"
	RelationReplaces  RelationType = "replaces"
	RelationImpacts   RelationType = "impacts"
)

// Strategy selects how Recall matches a query.
type Strategy string

const (
	// StrategyExact is a substring match over summary and full text.
	StrategyExact Strategy = "exact"

	// StrategyFulltext is the broader keyword tier: tokens match across
	// project id, summary, full text, tags, and keywords.
	StrategyFulltext Strategy = "fulltext"

	// StrategySemantic ranks by cosine similarity over stored embeddings.
	StrategySemantic Strategy = "semantic"

	// StrategyAuto tries StrategyExact first and falls back to
	// StrategyFulltext on zero results. The result always reports the
	// strategy actually used, never "auto".
	StrategyAuto Strategy = "auto"
)

// MemoryContent is the content payload of a memory record.
type MemoryContent struct {
	// Summary is a short, always-searchable description.
	Summary string

	// Data is a curated structured subset of the context.
	Data map[string]interface{}

	// RawContext is the unabridged structured payload, archived verbatim
	// and fed to keyword extraction.
	RawContext map[string]interface{}

	// Artifacts holds named text blobs such as code snippets.
	Artifacts map[string]string
}

// MemoryRelations holds the relation edges embedded in a record. Edges may
// dangle: a target can be deleted independently, and readers must skip a
// missing target rather than fail.
type MemoryRelations struct {
	Replaces    []string
	RelatedTo   []string
	Impacts     []string
	DerivedFrom string
}

// TargetIDs returns every referenced memory id across all edge kinds.
func (r MemoryRelations) TargetIDs() []string {
	ids := make([]string, 0, len(r.Replaces)+len(r.RelatedTo)+len(r.Impacts)+1)
	ids = append(ids, r.Replaces...)
	ids = append(ids, r.RelatedTo...)
	ids = append(ids, r.Impacts...)
	if r.DerivedFrom != "" {
		ids = append(ids, r.DerivedFrom)
	}
	return ids
}

// Searchable holds the derived search fields, rebuilt on every write.
type Searchable struct {
	Keywords []string
	FullText string
}

// Memory is the core stored record.
type Memory struct {
	// ID is globally unique, immutable, and never recycled after deletion.
	ID string

	// ProjectID partitions memories into logical projects. Required.
	ProjectID string

	// SessionID optionally groups memories created in one working session.
	SessionID string

	// Timestamp is the creation time, used for ordering and windowed
	// queries. Immutable.
	Timestamp time.Time

	// Type determines which structured content fields are populated.
	Type MemoryType

	// Tags is an unordered set of free-form strings.
	Tags []string

	// Version starts at 1 and is bumped on every update.
	Version int

	// Content is the record payload.
	Content MemoryContent

	// Relations are directed edges to other memory ids.
	Relations MemoryRelations

	// Searchable holds the derived keyword and full-text fields.
	Searchable Searchable

	// Embedding is an optional fixed-length vector, present only when a
	// semantic-search provider was configured at write time.
	Embedding []float64

	CreatedAt time.Time
	UpdatedAt time.Time

	// Score is the relevance score assigned by search operations.
	Score float64
}

// MemoryUpdate describes a partial update. Nil / empty fields are left
// unchanged; derived searchable fields are recomputed and the version is
// bumped on every successful update.
type MemoryUpdate struct {
	Summary   *string
	Data      map[string]interface{}
	Tags      []string
	Artifacts map[string]string
	Relations *MemoryRelations
	Embedding []float64
}

// SearchFilters describes a Recall query.
type SearchFilters struct {
	// Query is the free-text query, split on whitespace into tokens.
	Query string

	// ProjectID scopes the search to one project.
	ProjectID string

	// ProjectIDs scopes the search to several projects (e.g. a widened
	// project group). Takes effect in addition to ProjectID.
	ProjectIDs []string

	// Type narrows to one memory type.
	Type MemoryType

	// SessionID narrows to one session.
	SessionID string

	// Tags narrows to records carrying any of these tags.
	Tags []string

	// Strategy selects the matching tier. Empty means StrategyAuto.
	Strategy Strategy

	// QueryEmbedding is the caller-supplied vector for StrategySemantic.
	QueryEmbedding []float64

	// Threshold is the minimum similarity for StrategySemantic.
	// Zero means the default of 0.7.
	Threshold float64

	// Limit caps the number of results. Zero means the backend default.
	Limit int

	// Offset skips results for pagination.
	Offset int

	// ExpandRelations controls whether related memories are resolved onto
	// the result. Nil means enabled.
	ExpandRelations *bool

	// RelationDepth bounds relation expansion. Zero means depth 1.
	RelationDepth int
}

// Scope returns every project id the filters name, ProjectID first.
func (f *SearchFilters) Scope() []string {
	var scope []string
	if f.ProjectID != "" {
		scope = append(scope, f.ProjectID)
	}
	for _, id := range f.ProjectIDs {
		if id != f.ProjectID {
			scope = append(scope, id)
		}
	}
	return scope
}

// PerformanceMetrics reports where query time went.
type PerformanceMetrics struct {
	// DBTime is the time spent executing storage queries.
	DBTime time.Duration

	// ParseTime is the time spent decoding rows into records.
	ParseTime time.Duration

	// StrategyTime is the time spent on strategy selection and scoring.
	StrategyTime time.Duration

	// CacheHit reports whether the result was served from the cache.
	CacheHit bool
}

// RecallResult is the outcome of a Recall query.
type RecallResult struct {
	Memories []*Memory

	// RelatedMemories is the flat, deduplicated relation expansion of the
	// result set, when expansion is enabled.
	RelatedMemories []*Memory

	// Total is the number of matching records before Limit/Offset.
	Total int

	// Strategy is the tier that actually produced the results.
	Strategy Strategy

	// Took is the end-to-end query duration.
	Took time.Duration

	// Degraded reports that one or more ladder steps widened the query.
	Degraded bool

	// DegradationReasons lists each applied widening step, in order.
	DegradationReasons []string

	Metrics PerformanceMetrics

	// Suggestions optionally hints at how to refine an empty query.
	Suggestions []string
}

// TimelineOptions describes a Timeline query.
type TimelineOptions struct {
	ProjectID string
	Type      MemoryType

	// Since / Until bound the timestamp range (inclusive).
	Since *time.Time
	Until *time.Time

	Limit  int
	Offset int
}

// TimelineEntry is one record in a timeline, annotated with its neighbors
// for linear browsing.
type TimelineEntry struct {
	Memory *Memory

	// PrevID is the id of the next-older record, empty at the end.
	PrevID string

	// NextID is the id of the next-newer record, empty at the start.
	NextID string
}

// TimelineResult is the outcome of a Timeline query.
type TimelineResult struct {
	Entries []*TimelineEntry
	Total   int
}

// RelationNode is a node in the tree-shaped relation expansion.
type RelationNode struct {
	Memory *Memory

	// Related is nil at the depth limit.
	Related []*RelationNode
}

// MemoryRelation is a scored relation edge stored in the auxiliary edge
// table, distinct from the edges embedded in a record.
type MemoryRelation struct {
	// ID is the storage row id.
	ID int64

	SourceID string
	TargetID string
	Type     RelationType

	// Confidence is the estimated relevance in [0, 1].
	Confidence float64

	// IsAutoGenerated distinguishes discovered edges from manual ones.
	IsAutoGenerated bool

	// Reason is a human-readable explanation for auto-generated edges.
	Reason string

	CreatedAt time.Time
}

// ProjectGroup names a set of projects whose memories are searched together.
type ProjectGroup struct {
	// ID is the storage row id.
	ID int64

	// Name is unique across groups.
	Name string

	Projects []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContainsProject reports whether projectID is a member of the group.
func (g *ProjectGroup) ContainsProject(projectID string) bool {
	for _, p := range g.Projects {
		if p == projectID {
			return true
		}
	}
	return false
}

// Stats aggregates record counts for observability.
type Stats struct {
	Total     int
	ByType    map[MemoryType]int
	ByProject map[string]int

	// RecentCount is the number of records created in the trailing 7 days.
	RecentCount int
}

// Store defines the interface for memory storage backends.
//
// All implementations (SQLite, PostgreSQL, MySQL) must satisfy it. Writes
// are synchronous and atomic per record: either the full record, with
// derived searchable fields, is committed or nothing is.
type Store interface {
	// Store persists a fully populated memory record.
	Store(ctx context.Context, memory *Memory) error

	// GetByID retrieves a memory by id. Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id string) (*Memory, error)

	// GetByIDs retrieves several memories in one batch. Missing ids are
	// silently omitted from the result.
	GetByIDs(ctx context.Context, ids []string) ([]*Memory, error)

	// Update applies a partial update, recomputes derived fields, and
	// bumps the version. Returns ErrNotFound if the id does not exist.
	Update(ctx context.Context, id string, update *MemoryUpdate) (*Memory, error)

	// Delete removes a memory by id. Returns ErrNotFound if absent.
	// Relation edges pointing at the deleted record are left dangling.
	Delete(ctx context.Context, id string) error

	// Recall executes the multi-dimensional query for the selected
	// strategy. It does not apply the degradation ladder; that is the
	// planner's job.
	Recall(ctx context.Context, filters *SearchFilters) (*RecallResult, error)

	// Timeline returns records for a project ordered newest first, each
	// annotated with its neighboring record ids.
	Timeline(ctx context.Context, opts *TimelineOptions) (*TimelineResult, error)

	// Relations returns the tree-shaped relation expansion rooted at id.
	// Returns ErrNotFound if the root id does not exist; dangling edge
	// targets below the root are silently omitted.
	Relations(ctx context.Context, id string, depth int) (*RelationNode, error)

	// Close releases the underlying database resources.
	Close() error
}

// StatsProvider is an optional capability: aggregate statistics.
type StatsProvider interface {
	// Stats returns aggregate counts, scoped to projectID when non-empty.
	Stats(ctx context.Context, projectID string) (*Stats, error)
}

// GroupStore is an optional capability: project-group CRUD.
type GroupStore interface {
	// SaveGroup inserts or replaces a group by name.
	SaveGroup(ctx context.Context, group *ProjectGroup) error

	// GetGroup retrieves a group by name. Returns ErrNotFound if absent.
	GetGroup(ctx context.Context, name string) (*ProjectGroup, error)

	// GroupForProject finds the group containing projectID.
	// Returns (nil, nil) when the project belongs to no group.
	GroupForProject(ctx context.Context, projectID string) (*ProjectGroup, error)

	// ListGroups returns every group.
	ListGroups(ctx context.Context) ([]*ProjectGroup, error)

	// DeleteGroup removes a group by name. Returns ErrNotFound if absent.
	DeleteGroup(ctx context.Context, name string) error
}

// RelationStore is an optional capability: the auxiliary scored edge table.
type RelationStore interface {
	// CreateRelations persists edges, skipping duplicates of
	// (sourceId, targetId, type). Returns the number actually created.
	CreateRelations(ctx context.Context, relations []*MemoryRelation) (int, error)

	// MemoryRelations returns every edge whose source or target is memoryID.
	MemoryRelations(ctx context.Context, memoryID string) ([]*MemoryRelation, error)

	// DeleteRelation removes edges from sourceID to targetID. An empty
	// relType removes edges of every type. Returns the number deleted.
	DeleteRelation(ctx context.Context, sourceID, targetID string, relType RelationType) (int, error)
}

// CandidateSearcher is an optional capability used by auto-relation
// discovery: keyword OR-matching over a set of projects.
type CandidateSearcher interface {
	// SearchCandidates returns records in the given projects whose
	// summary, full text, or keywords contain any of the supplied
	// keywords, case-insensitive. excludeID is omitted from the result.
	SearchCandidates(ctx context.Context, keywords []string, projectIDs []string, excludeID string, limit int) ([]*Memory, error)
}
