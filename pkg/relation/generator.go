package relation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/memorypulse/mempulse-go/pkg/keywords"
	"github.com/memorypulse/mempulse-go/pkg/storage"
	"github.com/memorypulse/mempulse-go/pkg/vector"
)

const (
	// DefaultThreshold is the minimum combined similarity for a discovered
	// relation to be persisted.
	DefaultThreshold = 0.3

	// DefaultMaxRelations caps how many relations one record may generate.
	DefaultMaxRelations = 10

	// DefaultCandidateLimit bounds the candidate fetch.
	DefaultCandidateLimit = 50
)

// GeneratorConfig tunes relation discovery. Zero values fall back to the
// defaults above.
type GeneratorConfig struct {
	Threshold      float64
	MaxRelations   int
	CandidateLimit int
}

// Generator discovers relation edges for newly written memories.
//
// It is stateless over the store and safe for concurrent use. Every
// internal failure is swallowed and reported as zero relations created, so
// discovery can never fail the write that triggered it.
type Generator struct {
	store  storage.Store
	logger zerolog.Logger
	cfg    GeneratorConfig
}

// NewGenerator creates a Generator over store.
func NewGenerator(store storage.Store, logger zerolog.Logger, cfg GeneratorConfig) *Generator {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.MaxRelations <= 0 {
		cfg.MaxRelations = DefaultMaxRelations
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = DefaultCandidateLimit
	}
	return &Generator{store: store, logger: logger, cfg: cfg}
}

// Process discovers and persists relations for memory, returning how many
// edges were created. It requires the store to implement both
// storage.CandidateSearcher and storage.RelationStore; otherwise it is a
// no-op.
func (g *Generator) Process(ctx context.Context, memory *storage.Memory) int {
	searcher, ok := g.store.(storage.CandidateSearcher)
	if !ok {
		return 0
	}
	relations, ok := g.store.(storage.RelationStore)
	if !ok {
		return 0
	}

	kws := memory.Searchable.Keywords
	if len(kws) == 0 {
		kws = keywords.Extract(memory.Content.Summary, memory.Content.RawContext)
	}
	if len(kws) == 0 {
		return 0
	}

	scope := g.projectScope(ctx, memory.ProjectID)

	candidates, err := searcher.SearchCandidates(ctx, kws, scope, memory.ID, g.cfg.CandidateLimit)
	if err != nil {
		g.logger.Debug().Err(err).Str("memoryId", memory.ID).Msg("auto-relation candidate search failed")
		return 0
	}
	if len(candidates) == 0 {
		return 0
	}

	scored := g.scoreCandidates(memory, kws, candidates)
	if len(scored) == 0 {
		return 0
	}

	edges := make([]*storage.MemoryRelation, 0, len(scored))
	for _, sc := range scored {
		edges = append(edges, &storage.MemoryRelation{
			SourceID:        memory.ID,
			TargetID:        sc.candidate.ID,
			Type:            storage.RelationRelatedTo,
			Confidence:      sc.score,
			IsAutoGenerated: true,
			Reason:          sc.reason,
		})
	}

	created, err := relations.CreateRelations(ctx, edges)
	if err != nil {
		g.logger.Debug().Err(err).Str("memoryId", memory.ID).Msg("auto-relation persistence failed")
		return 0
	}

	g.logger.Debug().Str("memoryId", memory.ID).Int("created", created).Msg("auto-relations created")
	return created
}

// projectScope determines which projects to search for candidates: the
// configured project group when one exists, else projects matching the
// inferred group prefix, else just the record's own project.
func (g *Generator) projectScope(ctx context.Context, projectID string) []string {
	if groups, ok := g.store.(storage.GroupStore); ok {
		group, err := groups.GroupForProject(ctx, projectID)
		if err == nil && group != nil && len(group.Projects) > 0 {
			return group.Projects
		}
	}

	base := InferProjectGroup(projectID)
	if base != projectID {
		if stats, ok := g.store.(storage.StatsProvider); ok {
			if s, err := stats.Stats(ctx, ""); err == nil {
				var scope []string
				for p := range s.ByProject {
					if InferProjectGroup(p) == base {
						scope = append(scope, p)
					}
				}
				sort.Strings(scope)
				if len(scope) > 0 {
					return scope
				}
			}
		}
	}

	return []string{projectID}
}

// InferProjectGroup strips a trailing suffix segment from a project id to
// guess its group: "shop-api" and "shop-web" both infer "shop". A project
// id without a suffix infers itself.
func InferProjectGroup(projectID string) string {
	idx := strings.LastIndex(projectID, "-")
	if idx <= 0 {
		return projectID
	}
	return projectID[:idx]
}

type scoredCandidate struct {
	candidate *storage.Memory
	score     float64
	reason    string
}

// scoreCandidates combines keyword-set Jaccard similarity with embedding
// cosine similarity (when both sides carry vectors), keeps candidates at or
// above the threshold, and caps the result.
func (g *Generator) scoreCandidates(memory *storage.Memory, kws []string, candidates []*storage.Memory) []scoredCandidate {
	var scored []scoredCandidate
	for _, cand := range candidates {
		jaccard := keywords.JaccardSimilarity(kws, cand.Searchable.Keywords)

		score := jaccard
		if len(memory.Embedding) > 0 && len(cand.Embedding) > 0 {
			if cos, err := vector.CosineSimilarity(memory.Embedding, cand.Embedding); err == nil {
				score = (jaccard + cos) / 2
			}
		}

		if score < g.cfg.Threshold {
			continue
		}

		shared := keywords.Intersection(kws, cand.Searchable.Keywords)
		scored = append(scored, scoredCandidate{
			candidate: cand,
			score:     score,
			reason:    fmt.Sprintf("shares %d keywords, similarity %.2f", len(shared), score),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > g.cfg.MaxRelations {
		scored = scored[:g.cfg.MaxRelations]
	}
	return scored
}
