package graph

// --- Enums ---

// EdgeKind classifies relationships between record nodes.
type EdgeKind string

const (
	EdgeKindFatherOf EdgeKind = "FATHER_OF" // father -> child
	EdgeKindMotherOf EdgeKind = "MOTHER_OF" // mother -> child
	EdgeKindHasChild EdgeKind = "HAS_CHILD" // family -> child
	EdgeKindMemberOf EdgeKind = "MEMBER_OF" // spouse -> family
	EdgeKindInTree   EdgeKind = "IN_TREE"   // record -> tree
)

// EdgeKinds lists every relationship table, in schema order.
var EdgeKinds = []EdgeKind{
	EdgeKindFatherOf,
	EdgeKindMotherOf,
	EdgeKindHasChild,
	EdgeKindMemberOf,
	EdgeKindInTree,
}

// Lineage reports whether edges of kind k link a parent to its child.
func (k EdgeKind) Lineage() bool {
	return k == EdgeKindFatherOf || k == EdgeKindMotherOf
}

// --- Models ---

// RecordNode is one registry record as stored in the graph.
type RecordNode struct {
	ID      string `json:"id"` // printed cross-reference, e.g. "@I1@"
	Type    string `json:"type"`
	Keyword string `json:"keyword"`
	Kind    string `json:"kind"`
	Name    string `json:"name,omitempty"`
	Line    int    `json:"line"`
}

// TreeNode is a connected family tree: records linked by any relationship.
type TreeNode struct {
	Name     string   `json:"name"`
	Members  []string `json:"members"`  // record IDs
	Founders []string `json:"founders"` // members without a recorded parent
	Density  float64  `json:"density"`  // internal edges / (members - 1)
}

// Edge represents a relationship between two nodes.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
}

// GraphStats summarizes a genealogy graph.
type GraphStats struct {
	RecordCount     int `json:"recordCount"`
	IndividualCount int `json:"individualCount"`
	FamilyCount     int `json:"familyCount"`
	TreeCount       int `json:"treeCount"`
	EdgeCount       int `json:"edgeCount"`
}

// LineageChain is an ordered path of record IDs from the start record to an
// ancestor or descendant.
type LineageChain struct {
	Nodes []string `json:"nodes"`
	Depth int      `json:"depth"`
}
