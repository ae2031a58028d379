package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dusk-indust/gedex/internal/graph"
)

// runFind searches the graph persisted by "gedex --db <path> parse" and
// prints each match with its parents and children.
func (a *app) runFind(ctx context.Context, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return fmt.Errorf("%w: gedex --db <path> find <pattern>", errUsage)
	}
	if a.cfg.DBPath == "" {
		return fmt.Errorf("%w: find needs --db or dbPath in gedex.yml", errUsage)
	}
	if _, err := os.Stat(a.cfg.DBPath); err != nil {
		return fmt.Errorf("no graph found at %s\nRun 'gedex --db %s parse <file>' first", a.cfg.DBPath, a.cfg.DBPath)
	}

	store, err := openStore(a.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open graph: %w", err)
	}
	defer store.Close()

	records, err := store.QueryRecords(ctx, args[0], 10)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(a.stdout, "no records match %q\n", args[0])
		return nil
	}

	var sb strings.Builder
	for i, rec := range records {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s %s", rec.ID, rec.Kind)
		if rec.Name != "" {
			fmt.Fprintf(&sb, " %q", rec.Name)
		}
		fmt.Fprintf(&sb, " (line %d)\n", rec.Line)

		if err := writeGeneration(ctx, &sb, store, rec.ID, graph.DirectionAncestors, "parents"); err != nil {
			return err
		}
		if err := writeGeneration(ctx, &sb, store, rec.ID, graph.DirectionDescendants, "children"); err != nil {
			return err
		}
	}
	_, err = fmt.Fprint(a.stdout, sb.String())
	return err
}

// writeGeneration lists the records one generation away from id.
func writeGeneration(ctx context.Context, sb *strings.Builder, store graph.Store, id string, dir graph.Direction, label string) error {
	chains, err := store.GetLineage(ctx, id, dir, 1)
	if err != nil {
		return err
	}
	if len(chains) == 0 {
		return nil
	}
	names := make([]string, 0, len(chains))
	for _, c := range chains {
		other := c.Nodes[len(c.Nodes)-1]
		if rec, err := store.GetRecord(ctx, other); err == nil && rec != nil && rec.Name != "" {
			other += " " + rec.Name
		}
		names = append(names, other)
	}
	fmt.Fprintf(sb, "  %s: %s\n", label, strings.Join(names, ", "))
	return nil
}
