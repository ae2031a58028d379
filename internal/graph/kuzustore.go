//go:build cgo

package graph

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the leaf directory itself; an
// existing directory must contain valid KuzuDB files.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Record(
		id STRING,
		type STRING,
		keyword STRING,
		kind STRING,
		name STRING,
		line INT64,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Tree(
		name STRING,
		founders STRING,
		density DOUBLE,
		PRIMARY KEY(name)
	)`,
	`CREATE REL TABLE IF NOT EXISTS FATHER_OF(FROM Record TO Record)`,
	`CREATE REL TABLE IF NOT EXISTS MOTHER_OF(FROM Record TO Record)`,
	`CREATE REL TABLE IF NOT EXISTS HAS_CHILD(FROM Record TO Record)`,
	`CREATE REL TABLE IF NOT EXISTS MEMBER_OF(FROM Record TO Record)`,
	`CREATE REL TABLE IF NOT EXISTS IN_TREE(FROM Record TO Tree)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddRecord inserts or replaces a Record node.
func (s *KuzuStore) AddRecord(_ context.Context, node RecordNode) error {
	return s.exec(
		`MERGE (r:Record {id: $id})
		 SET r.type = $type, r.keyword = $keyword, r.kind = $kind,
		     r.name = $name, r.line = $line`,
		map[string]any{
			"id":      node.ID,
			"type":    node.Type,
			"keyword": node.Keyword,
			"kind":    node.Kind,
			"name":    node.Name,
			"line":    int64(node.Line),
		},
	)
}

// AddTree inserts a Tree node.
func (s *KuzuStore) AddTree(_ context.Context, node TreeNode) error {
	return s.exec(
		"CREATE (t:Tree {name: $name, founders: $founders, density: $density})",
		map[string]any{
			"name":     node.Name,
			"founders": strings.Join(node.Founders, ","),
			"density":  node.Density,
		},
	)
}

// AddEdge inserts a relationship edge between two nodes. Kuzu silently
// creates nothing when an endpoint is missing, so endpoints are checked
// first.
func (s *KuzuStore) AddEdge(ctx context.Context, edge Edge) error {
	cypher, err := edgeCypher(edge.Kind)
	if err != nil {
		return err
	}
	for _, id := range []string{edge.SourceID, edge.TargetID}[:edgeEndpoints(edge.Kind)] {
		rec, err := s.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("kuzu: add %s edge: %w: %s", edge.Kind, ErrRecordNotFound, id)
		}
	}
	return s.exec(cypher, map[string]any{
		"src": edge.SourceID,
		"dst": edge.TargetID,
	})
}

// edgeEndpoints returns how many leading endpoints of an edge are records.
func edgeEndpoints(kind EdgeKind) int {
	if kind == EdgeKindInTree {
		return 1
	}
	return 2
}

// edgeCypher returns the MATCH-CREATE Cypher for the given edge kind.
func edgeCypher(kind EdgeKind) (string, error) {
	switch kind {
	case EdgeKindFatherOf, EdgeKindMotherOf, EdgeKindHasChild, EdgeKindMemberOf:
		// Kind is one of the fixed table names above, not user input.
		return fmt.Sprintf(`MATCH (a:Record {id: $src}), (b:Record {id: $dst})
				CREATE (a)-[:%s]->(b)`, kind), nil
	case EdgeKindInTree:
		return `MATCH (a:Record {id: $src}), (b:Tree {name: $dst})
				CREATE (a)-[:IN_TREE]->(b)`, nil
	default:
		return "", fmt.Errorf("kuzu: unsupported edge kind: %s", kind)
	}
}

// ---------- Read operations ----------

const recordColumns = "r.id, r.type, r.keyword, r.kind, r.name, r.line"

// GetRecord retrieves a single Record node by ID, or returns nil if not found.
func (s *KuzuStore) GetRecord(_ context.Context, id string) (*RecordNode, error) {
	rows, err := s.query(
		"MATCH (r:Record {id: $id}) RETURN "+recordColumns,
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToRecord(rows[0]), nil
}

// QueryRecords returns records whose name or ID contains the query string,
// ignoring case, in document order.
func (s *KuzuStore) QueryRecords(_ context.Context, queryStr string, limit int) ([]RecordNode, error) {
	if limit <= 0 {
		limit = math.MaxInt32
	}
	rows, err := s.query(
		`MATCH (r:Record)
		 WHERE lower(r.name) CONTAINS $q OR lower(r.id) CONTAINS $q
		 RETURN `+recordColumns+`
		 ORDER BY r.line
		 LIMIT $lim`,
		map[string]any{
			"q":   strings.ToLower(queryStr),
			"lim": int64(limit),
		},
	)
	if err != nil {
		return nil, err
	}
	out := make([]RecordNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToRecord(r))
	}
	return out, nil
}

// ---------- Graph traversal ----------

// GetLineage performs a BFS over FATHER_OF and MOTHER_OF edges starting
// from the given record. It returns one LineageChain per reachable record.
func (s *KuzuStore) GetLineage(ctx context.Context, id string, dir Direction, maxDepth int) ([]LineageChain, error) {
	start, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return nil, fmt.Errorf("kuzu: lineage of %s: %w", id, ErrRecordNotFound)
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	type bfsEntry struct {
		path  []string
		depth int
	}
	visited := map[string]bool{id: true}
	queue := []bfsEntry{{path: []string{id}, depth: 0}}
	var chains []LineageChain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		tip := cur.path[len(cur.path)-1]
		neighbors, err := s.lineageNeighbors(tip, dir)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			newPath := make([]string, len(cur.path)+1)
			copy(newPath, cur.path)
			newPath[len(cur.path)] = nb
			chains = append(chains, LineageChain{
				Nodes: newPath,
				Depth: cur.depth + 1,
			})
			queue = append(queue, bfsEntry{path: newPath, depth: cur.depth + 1})
		}
	}
	return chains, nil
}

// lineageNeighbors returns the parents or children of a record, fathers
// first.
func (s *KuzuStore) lineageNeighbors(id string, dir Direction) ([]string, error) {
	var out []string
	for _, rel := range []EdgeKind{EdgeKindFatherOf, EdgeKindMotherOf} {
		var cypher string
		switch dir {
		case DirectionDescendants:
			cypher = fmt.Sprintf("MATCH (a:Record {id: $id})-[:%s]->(b:Record) RETURN b.id ORDER BY b.line", rel)
		case DirectionAncestors:
			cypher = fmt.Sprintf("MATCH (a:Record)-[:%s]->(b:Record {id: $id}) RETURN a.id", rel)
		default:
			return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
		}
		rows, err := s.query(cypher, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, toString(r[0]))
		}
	}
	return out, nil
}

// GetTrees returns all Tree nodes with their members.
func (s *KuzuStore) GetTrees(_ context.Context) ([]TreeNode, error) {
	rows, err := s.query(
		"MATCH (t:Tree) RETURN t.name, t.founders, t.density ORDER BY t.name",
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]TreeNode, 0, len(rows))
	for _, r := range rows {
		name := toString(r[0])

		memberRows, err := s.query(
			"MATCH (r:Record)-[:IN_TREE]->(t:Tree {name: $name}) RETURN r.id ORDER BY r.line",
			map[string]any{"name": name},
		)
		if err != nil {
			return nil, err
		}
		members := make([]string, 0, len(memberRows))
		for _, mr := range memberRows {
			members = append(members, toString(mr[0]))
		}

		var founders []string
		if f := toString(r[1]); f != "" {
			founders = strings.Split(f, ",")
		}
		out = append(out, TreeNode{
			Name:     name,
			Members:  members,
			Founders: founders,
			Density:  toFloat64(r[2]),
		})
	}
	return out, nil
}

// ---------- Edge enumeration ----------

// GetAllEdges returns all edges across all relationship tables.
func (s *KuzuStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	var edges []Edge
	for _, kind := range EdgeKinds {
		cypher := fmt.Sprintf("MATCH (a:Record)-[:%s]->(b:Record) RETURN a.id, b.id", kind)
		if kind == EdgeKindInTree {
			cypher = "MATCH (a:Record)-[:IN_TREE]->(b:Tree) RETURN a.id, b.name"
		}
		rows, err := s.query(cypher, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			edges = append(edges, Edge{
				SourceID: toString(r[0]),
				TargetID: toString(r[1]),
				Kind:     kind,
			})
		}
	}
	return edges, nil
}

// ---------- Stats ----------

// Stats returns counts of all node and edge tables.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	records, err := s.count("MATCH (n:Record) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	individuals, err := s.count("MATCH (n:Record) WHERE n.keyword = 'INDI' RETURN count(n)")
	if err != nil {
		return nil, err
	}
	families, err := s.count("MATCH (n:Record) WHERE n.keyword = 'FAM' RETURN count(n)")
	if err != nil {
		return nil, err
	}
	trees, err := s.count("MATCH (n:Tree) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	edges := 0
	for _, kind := range EdgeKinds {
		n, err := s.count(fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", kind))
		if err != nil {
			return nil, err
		}
		edges += n
	}
	return &GraphStats{
		RecordCount:     records,
		IndividualCount: individuals,
		FamilyCount:     families,
		TreeCount:       trees,
		EdgeCount:       edges,
	}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// count runs a single-value count query.
func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// rowToRecord converts a result row in recordColumns order into a RecordNode.
func rowToRecord(r []any) *RecordNode {
	return &RecordNode{
		ID:      toString(r[0]),
		Type:    toString(r[1]),
		Keyword: toString(r[2]),
		Kind:    toString(r[3]),
		Name:    toString(r[4]),
		Line:    toInt(r[5]),
	}
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
