//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/gedex/internal/graph"
)

var errNoKuzu = errors.New("--db requires a cgo build: the Kuzu graph database is not available")

func openStore(dbPath string) (graph.Store, error) {
	if dbPath == "" {
		return graph.NewMemStore(), nil
	}
	return nil, errNoKuzu
}
