package graph

import (
	"cmp"
	"context"
	"fmt"
	"slices"
)

// ComputeTrees finds connected components in the record graph (every
// relationship edge, taken as undirected) and stores them as TreeNodes.
//
// Algorithm:
//  1. Build an undirected adjacency list from relationship edges among the given records.
//  2. Find connected components via BFS, visiting records in the given order.
//  3. For each component with >= 2 records, pick founders, compute a density
//     score and store the tree with an IN_TREE edge per member.
func ComputeTrees(ctx context.Context, store Store, records []RecordNode) ([]TreeNode, error) {
	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute trees: %w", err)
	}

	index := make(map[string]int, len(records))
	for i, r := range records {
		index[r.ID] = i
	}
	adj := buildAdjacency(records, edges, index)
	hasParent := make(map[string]bool)
	for _, e := range edges {
		if e.Kind.Lineage() {
			hasParent[e.TargetID] = true
		}
	}

	visited := make(map[string]bool, len(records))
	var trees []TreeNode

	for _, r := range records {
		if visited[r.ID] {
			continue
		}
		component := bfsComponent(r.ID, adj, visited, index)
		if len(component) < 2 {
			continue
		}

		var founders []string
		for _, id := range component {
			if records[index[id]].Keyword == "INDI" && !hasParent[id] {
				founders = append(founders, id)
			}
		}
		name := "tree:" + component[0]
		if len(founders) > 0 {
			name = "tree:" + founders[0]
		}

		tree := TreeNode{
			Name:     name,
			Members:  component,
			Founders: founders,
			Density:  computeDensity(component, adj),
		}
		if err := store.AddTree(ctx, tree); err != nil {
			return nil, err
		}
		for _, member := range component {
			edge := Edge{SourceID: member, TargetID: name, Kind: EdgeKindInTree}
			if err := store.AddEdge(ctx, edge); err != nil {
				return nil, err
			}
		}
		trees = append(trees, tree)
	}

	return trees, nil
}

// buildAdjacency constructs a bidirectional adjacency list from the
// relationship edges whose endpoints are both known records.
func buildAdjacency(records []RecordNode, edges []Edge, index map[string]int) map[string]map[string]bool {
	adj := make(map[string]map[string]bool, len(records))
	for _, r := range records {
		adj[r.ID] = make(map[string]bool)
	}
	for _, e := range edges {
		if e.Kind == EdgeKindInTree {
			continue
		}
		if _, ok := index[e.SourceID]; !ok {
			continue
		}
		if _, ok := index[e.TargetID]; !ok {
			continue
		}
		adj[e.SourceID][e.TargetID] = true
		adj[e.TargetID][e.SourceID] = true
	}
	return adj
}

// bfsComponent performs BFS from start and returns every reachable record,
// ordered by position in the input. It marks visited records as it goes.
func bfsComponent(start string, adj map[string]map[string]bool, visited map[string]bool, index map[string]int) []string {
	var component []string
	queue := []string{start}
	visited[start] = true

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		component = append(component, node)
		for neighbor := range adj[node] {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}

	slices.SortFunc(component, func(a, b string) int {
		return cmp.Compare(index[a], index[b])
	})
	return component
}

// computeDensity returns internal_edges / (members - 1). A component linked
// by exactly a spanning set of relationships scores 1; marriages and
// shared children push it higher.
func computeDensity(component []string, adj map[string]map[string]bool) float64 {
	if len(component) < 2 {
		return 0
	}
	internal := 0
	for _, m := range component {
		for neighbor := range adj[m] {
			// Count each undirected edge once.
			if m < neighbor {
				internal++
			}
		}
	}
	return float64(internal) / float64(len(component)-1)
}
