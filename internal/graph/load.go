package graph

import (
	"context"
	"fmt"

	"github.com/dusk-indust/gedex/internal/gedcom"
)

// NodeFromRecord converts a registry record into its graph node.
func NodeFromRecord(r *gedcom.Record) RecordNode {
	return RecordNode{
		ID:      r.Xref().String(),
		Type:    r.Type,
		Keyword: r.Keyword,
		Kind:    string(r.Kind()),
		Name:    r.Name,
		Line:    r.Line,
	}
}

// Load writes every record of reg and the relationships between them into
// store. Records go in first so every edge finds both endpoints. It returns
// the nodes in registry order.
func Load(ctx context.Context, store Store, reg *gedcom.Registry) ([]RecordNode, error) {
	records := reg.Records()
	nodes := make([]RecordNode, 0, len(records))
	for _, r := range records {
		node := NodeFromRecord(r)
		if err := store.AddRecord(ctx, node); err != nil {
			return nil, fmt.Errorf("load %s: %w", node.ID, err)
		}
		nodes = append(nodes, node)
	}

	for _, r := range records {
		for _, e := range recordEdges(reg, r) {
			if err := store.AddEdge(ctx, e); err != nil {
				return nil, fmt.Errorf("load %s edge %s -> %s: %w", e.Kind, e.SourceID, e.TargetID, err)
			}
		}
	}
	return nodes, nil
}

// recordEdges lists the edges that have r as their child or family end.
func recordEdges(reg *gedcom.Registry, r *gedcom.Record) []Edge {
	self := r.Xref().String()
	var edges []Edge

	if f := reg.Father(r); f != nil {
		edges = append(edges, Edge{SourceID: f.Xref().String(), TargetID: self, Kind: EdgeKindFatherOf})
	}
	if m := reg.Mother(r); m != nil {
		edges = append(edges, Edge{SourceID: m.Xref().String(), TargetID: self, Kind: EdgeKindMotherOf})
	}

	if r.Kind() != gedcom.KindFamily {
		return edges
	}
	for _, c := range reg.Children(r) {
		edges = append(edges, Edge{SourceID: self, TargetID: c.Xref().String(), Kind: EdgeKindHasChild})
	}
	for _, name := range []string{"HUSB", "WIFE"} {
		tag := r.Tag(name)
		if tag == nil {
			continue
		}
		if spouse, ok := reg.Lookup(tag.Content); ok {
			edges = append(edges, Edge{SourceID: spouse.Xref().String(), TargetID: self, Kind: EdgeKindMemberOf})
		}
	}
	return edges
}

// Build initializes store, loads reg into it and computes family trees.
func Build(ctx context.Context, store Store, reg *gedcom.Registry) ([]TreeNode, error) {
	if err := store.InitSchema(ctx); err != nil {
		return nil, err
	}
	nodes, err := Load(ctx, store, reg)
	if err != nil {
		return nil, err
	}
	return ComputeTrees(ctx, store, nodes)
}
