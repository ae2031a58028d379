package mcptools

import (
	"github.com/dusk-indust/gedex/internal/export"
	"github.com/dusk-indust/gedex/internal/graph"
)

// --- MCP Tool Input Types ---
// The MCP Go SDK generates each tool's JSON schema from these struct tags.

// ParseFileInput is the input for the parse_file MCP tool.
type ParseFileInput struct {
	Path string `json:"path" jsonschema:"path to the document to parse"`
}

// ParseFileOutput is the result of the parse_file MCP tool.
type ParseFileOutput struct {
	Summary  export.Summary          `json:"summary"`
	Stats    graph.GraphStats        `json:"stats"`
	Dangling []export.DanglingExport `json:"dangling,omitempty"`
	Cached   bool                    `json:"cached"`
}

// CountUnparsedInput is the input for the count_unparsed MCP tool.
type CountUnparsedInput struct {
	Path string `json:"path" jsonschema:"path to the document to scan"`
}

// CountUnparsedOutput is the result of the count_unparsed MCP tool.
type CountUnparsedOutput struct {
	Count int `json:"count"`
}

// QueryRecordsInput is the input for the query_records MCP tool.
type QueryRecordsInput struct {
	Query string `json:"query" jsonschema:"substring of a record name or cross-reference, case-insensitive"`
	Kind  string `json:"kind,omitempty" jsonschema:"filter by entity kind: individual, family, source, repository, note, object, submitter"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// QueryRecordsOutput is the result of the query_records MCP tool.
type QueryRecordsOutput struct {
	Records []graph.RecordNode `json:"records"`
	Total   int                `json:"total"`
}

// GetLineageInput is the input for the get_lineage MCP tool.
type GetLineageInput struct {
	RecordID  string `json:"recordId" jsonschema:"cross-reference of the start record, e.g. @I1@"`
	Direction string `json:"direction,omitempty" jsonschema:"ancestors or descendants. Default: ancestors"`
	MaxDepth  int    `json:"maxDepth,omitempty" jsonschema:"maximum number of generations (default: 10)"`
}

// GetLineageOutput is the result of the get_lineage MCP tool.
type GetLineageOutput struct {
	Chains []graph.LineageChain `json:"chains"`
}

// GetTreesInput is the input for the get_trees MCP tool.
type GetTreesInput struct{}

// GetTreesOutput is the result of the get_trees MCP tool.
type GetTreesOutput struct {
	Trees []graph.TreeNode `json:"trees"`
}
