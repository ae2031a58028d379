package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/gedex/internal/graph"
)

// edgeStyle maps a relationship to its Mermaid arrow. IN_TREE edges are
// shown as subgraph membership instead.
var edgeStyle = map[graph.EdgeKind]string{
	graph.EdgeKindFatherOf: "-->|father|",
	graph.EdgeKindMotherOf: "-->|mother|",
	graph.EdgeKindHasChild: "-.->|child|",
	graph.EdgeKindMemberOf: "-.-",
}

// GenerateMermaid produces a Mermaid graph TD diagram from a graph store.
// Records are grouped by family tree; relationship edges become arrows.
// Records that belong to no tree have no relationships and are left out.
func GenerateMermaid(ctx context.Context, store graph.Store) (string, error) {
	trees, err := store.GetTrees(ctx)
	if err != nil {
		return "", fmt.Errorf("get trees: %w", err)
	}

	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("get edges: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, t := range trees {
		if len(t.Members) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "  subgraph T%d[\"%s\"]\n", i, escapeLabel(t.Name))
		for _, member := range t.Members {
			rec, err := store.GetRecord(ctx, member)
			if err != nil {
				return "", fmt.Errorf("get record %s: %w", member, err)
			}
			if rec == nil {
				continue
			}
			fmt.Fprintf(&sb, "    %s\n", nodeShape(rec))
		}
		sb.WriteString("  end\n")
	}

	for _, e := range edges {
		arrow, ok := edgeStyle[e.Kind]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "  %s %s %s\n", nodeID(e.SourceID), arrow, nodeID(e.TargetID))
	}

	return sb.String(), nil
}

// nodeID strips the @ delimiters so "@I12@" becomes the Mermaid id "I12".
func nodeID(ref string) string {
	return strings.Trim(ref, "@")
}

// nodeShape renders individuals as boxes and families as circles.
func nodeShape(rec *graph.RecordNode) string {
	label := rec.Name
	if label == "" {
		label = rec.ID
	}
	label = escapeLabel(label)
	if rec.Keyword == "FAM" {
		return fmt.Sprintf("%s((\"%s\"))", nodeID(rec.ID), label)
	}
	return fmt.Sprintf("%s[\"%s\"]", nodeID(rec.ID), label)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
