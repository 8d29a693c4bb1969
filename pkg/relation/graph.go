// Package relation traverses the directed relation graph between memories
// and discovers new relation edges for freshly written records.
//
// Traversal is best effort: relation edges may dangle after a target is
// deleted, and a missing target is always skipped, never an error.
package relation

import (
	"context"
	"fmt"

	"github.com/memorypulse/mempulse-go/pkg/storage"
)

// Fetcher resolves memory ids to records. Every storage.Store satisfies it.
type Fetcher interface {
	GetByID(ctx context.Context, id string) (*storage.Memory, error)
	GetByIDs(ctx context.Context, ids []string) ([]*storage.Memory, error)
}

// Expand returns the flat, deduplicated set of memories reachable from the
// roots within depth hops, excluding the roots themselves.
//
// All edge kinds (replaces, relatedTo, impacts, derivedFrom) are followed.
// A seen set guarantees termination on cycles; a record reachable by two
// different paths appears once, at its shallowest depth.
func Expand(ctx context.Context, f Fetcher, roots []*storage.Memory, depth int) ([]*storage.Memory, error) {
	if depth <= 0 || len(roots) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(roots))
	for _, root := range roots {
		seen[root.ID] = struct{}{}
	}

	var expanded []*storage.Memory
	frontier := roots

	for level := 0; level < depth && len(frontier) > 0; level++ {
		targets := collectTargets(frontier, seen)
		if len(targets) == 0 {
			break
		}

		fetched, err := f.GetByIDs(ctx, targets)
		if err != nil {
			return nil, fmt.Errorf("Expand: %w", err)
		}

		expanded = append(expanded, fetched...)
		frontier = fetched
	}

	return expanded, nil
}

// collectTargets gathers the unseen edge targets of the frontier, marking
// each as seen so it is fetched at most once.
func collectTargets(frontier []*storage.Memory, seen map[string]struct{}) []string {
	var targets []string
	for _, m := range frontier {
		for _, id := range m.Relations.TargetIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			targets = append(targets, id)
		}
	}
	return targets
}

// Tree builds the nested relation expansion rooted at id, preserving
// parent/child structure for inspection UIs.
//
// The root id must exist; storage.ErrNotFound is returned otherwise.
// Dangling targets below the root are omitted. At depth 0 the root is
// returned with no children.
func Tree(ctx context.Context, f Fetcher, id string, depth int) (*storage.RelationNode, error) {
	root, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Tree: %w", err)
	}
	if root == nil {
		return nil, fmt.Errorf("Tree: memory %s: %w", id, storage.ErrNotFound)
	}

	seen := map[string]struct{}{id: {}}
	related, err := buildChildren(ctx, f, root, depth, seen)
	if err != nil {
		return nil, err
	}

	return &storage.RelationNode{Memory: root, Related: related}, nil
}

func buildChildren(ctx context.Context, f Fetcher, parent *storage.Memory, depth int, seen map[string]struct{}) ([]*storage.RelationNode, error) {
	if depth <= 0 {
		return nil, nil
	}

	targets := collectTargets([]*storage.Memory{parent}, seen)
	if len(targets) == 0 {
		return nil, nil
	}

	children, err := f.GetByIDs(ctx, targets)
	if err != nil {
		return nil, fmt.Errorf("Tree: %w", err)
	}

	nodes := make([]*storage.RelationNode, 0, len(children))
	for _, child := range children {
		related, err := buildChildren(ctx, f, child, depth-1, seen)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, &storage.RelationNode{Memory: child, Related: related})
	}
	return nodes, nil
}
