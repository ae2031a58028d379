//go:build cgo

package main

import "github.com/dusk-indust/gedex/internal/graph"

// openStore opens the graph store for dbPath: a Kuzu database directory when
// a path is given, an in-memory store otherwise.
func openStore(dbPath string) (graph.Store, error) {
	if dbPath == "" {
		return graph.NewMemStore(), nil
	}
	store, err := graph.NewKuzuFileStore(dbPath)
	if err != nil {
		return nil, err
	}
	return store, nil
}
