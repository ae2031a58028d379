package main

import (
	"context"
	"fmt"

	"github.com/dusk-indust/gedex/internal/graph"
	"github.com/dusk-indust/gedex/internal/mcptools"
	"github.com/dusk-indust/gedex/internal/metrics"
)

// runServeMCP serves the genealogy tools over stdio, or over HTTP with a
// /metrics endpoint when an address is configured. Each parse_file call
// loads into a fresh in-memory graph; --db is not used here.
func (a *app) runServeMCP(ctx context.Context) error {
	m := metrics.New()
	svc, err := mcptools.NewGenealogyService(a.parser, mcptools.ServiceOptions{
		CacheSize: a.cfg.CacheSize,
		NewStore:  func() (graph.Store, error) { return openStore("") },
		Metrics:   m,
		Logger:    a.logger,
	})
	if err != nil {
		return fmt.Errorf("start tool service: %w", err)
	}
	defer svc.Close()

	if a.cfg.MCPAddr != "" {
		return mcptools.RunMCPServer(ctx, svc, a.cfg.MCPAddr, m, a.logger)
	}
	return mcptools.RunStdio(ctx, svc)
}
