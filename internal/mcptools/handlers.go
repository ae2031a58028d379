package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/gedex/internal/export"
	"github.com/dusk-indust/gedex/internal/gedcom"
	"github.com/dusk-indust/gedex/internal/graph"
	"github.com/dusk-indust/gedex/internal/metrics"
)

// errNoDocument is returned by graph tools before parse_file has loaded a
// document.
var errNoDocument = errors.New("no document loaded: call parse_file first")

// StoreFactory opens an empty graph store for a freshly parsed document.
type StoreFactory func() (graph.Store, error)

// ServiceOptions configure a GenealogyService. Zero values select defaults.
type ServiceOptions struct {
	CacheSize int // parse results kept in memory; default 32
	NewStore  StoreFactory
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// cacheKey identifies one version of a file on disk.
type cacheKey struct {
	path    string
	size    int64
	modTime int64
}

// GenealogyService holds the parser, the parse cache and the graph of the
// most recently parsed document used by MCP tool handlers.
type GenealogyService struct {
	parser   *gedcom.Parser
	cache    *lru.Cache[cacheKey, *gedcom.Result]
	newStore StoreFactory
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu    sync.RWMutex
	store graph.Store
}

// NewGenealogyService creates a GenealogyService around parser.
func NewGenealogyService(parser *gedcom.Parser, opts ServiceOptions) (*GenealogyService, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = 32
	}
	cache, err := lru.New[cacheKey, *gedcom.Result](size)
	if err != nil {
		return nil, fmt.Errorf("create parse cache: %w", err)
	}
	newStore := opts.NewStore
	if newStore == nil {
		newStore = func() (graph.Store, error) { return graph.NewMemStore(), nil }
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GenealogyService{
		parser:   parser,
		cache:    cache,
		newStore: newStore,
		metrics:  opts.Metrics,
		logger:   logger,
	}, nil
}

// Close releases the loaded graph store.
func (s *GenealogyService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

// parse returns the result for path, from the cache when the file has not
// changed since it was last parsed.
func (s *GenealogyService) parse(path string) (*gedcom.Result, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, false, fmt.Errorf("cannot access path: %w", err)
	}
	if info.IsDir() {
		return nil, false, fmt.Errorf("path is a directory: %s", path)
	}

	key := cacheKey{path: abs, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if res, ok := s.cache.Get(key); ok {
		s.metrics.CacheHit()
		return res, true, nil
	}
	s.metrics.CacheMiss()

	start := time.Now()
	res, err := s.parser.ParseFile(abs)
	s.metrics.Observe(start, res, err)
	if err != nil {
		return nil, false, err
	}
	s.cache.Add(key, res)
	return res, false, nil
}

// ParseFile parses a document, loads it into a new graph that replaces the
// previous one, and returns summary counts.
func (s *GenealogyService) ParseFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ParseFileInput,
) (*mcp.CallToolResult, ParseFileOutput, error) {
	if input.Path == "" {
		return nil, ParseFileOutput{}, fmt.Errorf("path is required")
	}

	res, cached, err := s.parse(input.Path)
	if err != nil {
		return nil, ParseFileOutput{}, err
	}

	store, err := s.newStore()
	if err != nil {
		return nil, ParseFileOutput{}, fmt.Errorf("open store: %w", err)
	}
	if _, err := graph.Build(ctx, store, res.Registry); err != nil {
		store.Close()
		return nil, ParseFileOutput{}, fmt.Errorf("build graph: %w", err)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		store.Close()
		return nil, ParseFileOutput{}, fmt.Errorf("stats: %w", err)
	}

	s.mu.Lock()
	old := s.store
	s.store = store
	s.mu.Unlock()
	if old != nil {
		if err := old.Close(); err != nil {
			s.logger.Warn("close previous graph", "error", err)
		}
	}
	s.logger.Info("document loaded", "path", input.Path, "records", stats.RecordCount, "cached", cached)

	doc := export.ExportDocument(input.Path, res, false)
	return nil, ParseFileOutput{
		Summary:  doc.Summary,
		Stats:    *stats,
		Dangling: doc.Dangling,
		Cached:   cached,
	}, nil
}

// CountUnparsed counts the lines of a document that match neither line
// grammar, without checking structure.
func (s *GenealogyService) CountUnparsed(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input CountUnparsedInput,
) (*mcp.CallToolResult, CountUnparsedOutput, error) {
	if input.Path == "" {
		return nil, CountUnparsedOutput{}, fmt.Errorf("path is required")
	}
	n, err := s.parser.CountUnparsedFile(input.Path)
	if err != nil {
		return nil, CountUnparsedOutput{}, err
	}
	return nil, CountUnparsedOutput{Count: n}, nil
}

// loaded returns the current graph store under the read lock.
func (s *GenealogyService) loaded() (graph.Store, func(), error) {
	s.mu.RLock()
	if s.store == nil {
		s.mu.RUnlock()
		return nil, nil, errNoDocument
	}
	return s.store, s.mu.RUnlock, nil
}

// QueryRecords searches records of the loaded document by name or
// cross-reference substring.
func (s *GenealogyService) QueryRecords(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryRecordsInput,
) (*mcp.CallToolResult, QueryRecordsOutput, error) {
	store, unlock, err := s.loaded()
	if err != nil {
		return nil, QueryRecordsOutput{}, err
	}
	defer unlock()

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	// The store limits before the kind filter runs.
	storeLimit := limit
	if input.Kind != "" {
		storeLimit = 0
	}
	records, err := store.QueryRecords(ctx, input.Query, storeLimit)
	if err != nil {
		return nil, QueryRecordsOutput{}, fmt.Errorf("query records: %w", err)
	}

	if input.Kind != "" {
		kind := strings.ToLower(input.Kind)
		filtered := records[:0]
		for _, r := range records {
			if r.Kind == kind {
				filtered = append(filtered, r)
			}
		}
		records = filtered
		if len(records) > limit {
			records = records[:limit]
		}
	}

	if records == nil {
		records = []graph.RecordNode{}
	}
	return nil, QueryRecordsOutput{
		Records: records,
		Total:   len(records),
	}, nil
}

// GetLineage walks ancestors or descendants of a record in the loaded
// document.
func (s *GenealogyService) GetLineage(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetLineageInput,
) (*mcp.CallToolResult, GetLineageOutput, error) {
	if input.RecordID == "" {
		return nil, GetLineageOutput{}, fmt.Errorf("recordId is required")
	}

	var direction graph.Direction
	switch strings.ToLower(input.Direction) {
	case "", string(graph.DirectionAncestors):
		direction = graph.DirectionAncestors
	case string(graph.DirectionDescendants):
		direction = graph.DirectionDescendants
	default:
		return nil, GetLineageOutput{}, fmt.Errorf("unknown direction %q: want ancestors or descendants", input.Direction)
	}

	store, unlock, err := s.loaded()
	if err != nil {
		return nil, GetLineageOutput{}, err
	}
	defer unlock()

	chains, err := store.GetLineage(ctx, normalizeID(input.RecordID), direction, input.MaxDepth)
	if err != nil {
		return nil, GetLineageOutput{}, fmt.Errorf("get lineage: %w", err)
	}
	if chains == nil {
		chains = []graph.LineageChain{}
	}
	return nil, GetLineageOutput{Chains: chains}, nil
}

// GetTrees returns the family trees of the loaded document.
func (s *GenealogyService) GetTrees(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GetTreesInput,
) (*mcp.CallToolResult, GetTreesOutput, error) {
	store, unlock, err := s.loaded()
	if err != nil {
		return nil, GetTreesOutput{}, err
	}
	defer unlock()

	trees, err := store.GetTrees(ctx)
	if err != nil {
		return nil, GetTreesOutput{}, fmt.Errorf("get trees: %w", err)
	}
	if trees == nil {
		trees = []graph.TreeNode{}
	}
	return nil, GetTreesOutput{Trees: trees}, nil
}

// normalizeID accepts "I1" as well as "@I1@".
func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if !strings.HasPrefix(id, "@") {
		id = "@" + id + "@"
	}
	return id
}
