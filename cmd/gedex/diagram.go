package main

import (
	"context"
	"fmt"

	"github.com/dusk-indust/gedex/internal/export"
	"github.com/dusk-indust/gedex/internal/graph"
)

func (a *app) runDiagram(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: gedex diagram <file>", errUsage)
	}

	res, err := a.parser.ParseFile(args[0])
	if err != nil {
		return err
	}

	store := graph.NewMemStore()
	defer store.Close()
	if _, err := graph.Build(ctx, store, res.Registry); err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	mermaid, err := export.GenerateMermaid(ctx, store)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(a.stdout, mermaid)
	return err
}
