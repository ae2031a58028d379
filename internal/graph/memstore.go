package graph

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]RecordNode
	order   []string // record IDs in insertion order
	edges   []Edge
	trees   []TreeNode
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string]RecordNode),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddRecord stores a record node keyed by its ID. Re-adding an ID replaces
// the stored node.
func (m *MemStore) AddRecord(_ context.Context, node RecordNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[node.ID]; !ok {
		m.order = append(m.order, node.ID)
	}
	m.records[node.ID] = node
	return nil
}

// AddTree appends a tree to the internal slice.
func (m *MemStore) AddTree(_ context.Context, node TreeNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trees = append(m.trees, node)
	return nil
}

// AddEdge appends an edge. Both endpoints of a lineage edge must be known.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if edge.Kind != EdgeKindInTree {
		if _, ok := m.records[edge.SourceID]; !ok {
			return fmt.Errorf("memstore: add %s edge: %w: %s", edge.Kind, ErrRecordNotFound, edge.SourceID)
		}
		if _, ok := m.records[edge.TargetID]; !ok {
			return fmt.Errorf("memstore: add %s edge: %w: %s", edge.Kind, ErrRecordNotFound, edge.TargetID)
		}
	}
	m.edges = append(m.edges, edge)
	return nil
}

// GetRecord returns the record node for the given ID, or nil if not found.
func (m *MemStore) GetRecord(_ context.Context, id string) (*RecordNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// QueryRecords returns records whose name or ID contains query
// (case-insensitive), in document order, up to limit results. A limit <= 0
// returns all matches.
func (m *MemStore) QueryRecords(_ context.Context, query string, limit int) ([]RecordNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lowerQuery := strings.ToLower(query)
	var results []RecordNode
	for _, id := range m.order {
		rec := m.records[id]
		if strings.Contains(strings.ToLower(rec.Name), lowerQuery) ||
			strings.Contains(strings.ToLower(rec.ID), lowerQuery) {
			results = append(results, rec)
		}
	}
	slices.SortStableFunc(results, func(a, b RecordNode) int {
		return cmp.Compare(a.Line, b.Line)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetLineage performs a BFS over FATHER_OF and MOTHER_OF edges from id in
// the given direction, up to maxDepth generations. It returns one
// LineageChain per reachable record.
func (m *MemStore) GetLineage(_ context.Context, id string, direction Direction, maxDepth int) ([]LineageChain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.records[id]; !ok {
		return nil, fmt.Errorf("memstore: lineage of %s: %w", id, ErrRecordNotFound)
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	// BFS state: each entry tracks the path from id to the current record.
	type bfsEntry struct {
		id   string
		path []string
	}

	visited := map[string]bool{id: true}
	queue := []bfsEntry{{id: id, path: []string{id}}}
	var chains []LineageChain

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var nextQueue []bfsEntry
		for _, entry := range queue {
			for _, nb := range m.neighbors(entry.id, direction) {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				newPath := make([]string, len(entry.path), len(entry.path)+1)
				copy(newPath, entry.path)
				newPath = append(newPath, nb)
				chains = append(chains, LineageChain{
					Nodes: newPath,
					Depth: len(newPath) - 1,
				})
				nextQueue = append(nextQueue, bfsEntry{id: nb, path: newPath})
			}
		}
		queue = nextQueue
	}

	return chains, nil
}

// neighbors returns IDs one generation away from id in the given direction.
func (m *MemStore) neighbors(id string, direction Direction) []string {
	var result []string
	for _, e := range m.edges {
		if !e.Kind.Lineage() {
			continue
		}
		switch direction {
		case DirectionDescendants:
			if e.SourceID == id {
				result = append(result, e.TargetID)
			}
		case DirectionAncestors:
			if e.TargetID == id {
				result = append(result, e.SourceID)
			}
		}
	}
	return result
}

// GetTrees returns all stored trees.
func (m *MemStore) GetTrees(_ context.Context) ([]TreeNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TreeNode, len(m.trees))
	copy(out, m.trees)
	return out, nil
}

// GetAllEdges returns a copy of all edges in the store.
func (m *MemStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

// Stats returns counts of all node and edge types in the graph.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := &GraphStats{
		RecordCount: len(m.records),
		TreeCount:   len(m.trees),
		EdgeCount:   len(m.edges),
	}
	for _, r := range m.records {
		switch r.Keyword {
		case "INDI":
			st.IndividualCount++
		case "FAM":
			st.FamilyCount++
		}
	}
	return st, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
