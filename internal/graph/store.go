package graph

import (
	"context"
	"errors"
	"io"
)

// ErrRecordNotFound is returned by traversals that start at an unknown record.
var ErrRecordNotFound = errors.New("record not found")

// Store is the interface for the genealogy graph backend.
// Implementations: KuzuStore (persistent, cgo), MemStore (default and tests).
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddRecord(ctx context.Context, node RecordNode) error
	AddTree(ctx context.Context, node TreeNode) error
	AddEdge(ctx context.Context, edge Edge) error

	// Read operations.
	GetRecord(ctx context.Context, id string) (*RecordNode, error)
	QueryRecords(ctx context.Context, query string, limit int) ([]RecordNode, error)
	GetAllEdges(ctx context.Context) ([]Edge, error)

	// Graph traversal.
	GetLineage(ctx context.Context, id string, direction Direction, maxDepth int) ([]LineageChain, error)
	GetTrees(ctx context.Context) ([]TreeNode, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}

// Direction controls lineage traversal direction.
type Direction string

const (
	DirectionAncestors   Direction = "ancestors"   // follow FATHER_OF/MOTHER_OF edges backwards
	DirectionDescendants Direction = "descendants" // follow them forwards
)

// DefaultMaxDepth bounds lineage traversal when the caller passes no limit.
const DefaultMaxDepth = 10
