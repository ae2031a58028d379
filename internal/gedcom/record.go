package gedcom

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// EntityKind is the human name of a record's keyword.
type EntityKind string

const (
	KindIndividual EntityKind = "individual"
	KindFamily     EntityKind = "family"
	KindSource     EntityKind = "source"
	KindRepository EntityKind = "repository"
	KindNote       EntityKind = "note"
	KindObject     EntityKind = "object"
	KindSubmitter  EntityKind = "submitter"
	KindUnknown    EntityKind = "unknown"
)

var keywordKinds = map[string]EntityKind{
	"INDI": KindIndividual,
	"FAM":  KindFamily,
	"SOUR": KindSource,
	"REPO": KindRepository,
	"NOTE": KindNote,
	"OBJE": KindObject,
	"SUBM": KindSubmitter,
}

// Record is a completed level-0 reference block. Father, Mother and
// Children are identifiers into the owning Registry.
type Record struct {
	ID       uint64 `json:"id"`
	Type     string `json:"type"`    // entity-type code from the reference, e.g. "I"
	Keyword  string `json:"keyword"` // content of the reference line, e.g. "INDI"
	Name     string `json:"name,omitempty"`
	Father   Xref   `json:"father,omitzero"`
	Mother   Xref   `json:"mother,omitzero"`
	Children []Xref `json:"children,omitempty"`
	Tags     []*Tag `json:"tags,omitempty"`
	Line     int    `json:"line"`
}

// Xref returns the registry key of r.
func (r *Record) Xref() Xref {
	return Xref{Type: r.Type, ID: r.ID}
}

// Kind maps the record keyword onto an EntityKind.
func (r *Record) Kind() EntityKind {
	if k, ok := keywordKinds[r.Keyword]; ok {
		return k
	}
	return KindUnknown
}

// Tag returns the first top-level tag of the record with the given name.
func (r *Record) Tag(name string) *Tag {
	return firstNamed(r.Tags, name)
}

// addChild appends c unless it is already listed.
func (r *Record) addChild(c Xref) {
	if !slices.Contains(r.Children, c) {
		r.Children = append(r.Children, c)
	}
}

// newRecord builds a Record from the root of a folded reference block.
func newRecord(root *Tag) *Record {
	r := &Record{
		ID:      root.Xref.ID,
		Type:    root.Xref.Type,
		Keyword: root.Content,
		Tags:    root.Children,
		Line:    root.Line,
	}
	switch {
	case root.Child("NAME") != nil:
		r.Name = DisplayName(root.Child("NAME").Content)
	case root.Child("TITL") != nil:
		r.Name = strings.TrimSpace(root.Child("TITL").Content)
	}
	return r
}

// DisplayName strips the surname slashes of a NAME value and collapses
// runs of whitespace: "John /Smith/" becomes "John Smith".
func DisplayName(raw string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(raw, "/", " ")), " ")
}

// Registry owns every record of one parse, keyed by cross-reference.
type Registry struct {
	records map[Xref]*Record
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[Xref]*Record)}
}

// Add inserts r. An identifier may only be added once.
func (g *Registry) Add(r *Record) error {
	key := r.Xref()
	if _, ok := g.records[key]; ok {
		return fmt.Errorf("%w %s", ErrDuplicateXref, key)
	}
	g.records[key] = r
	return nil
}

// Get returns the record for x, or nil.
func (g *Registry) Get(x Xref) *Record {
	return g.records[x]
}

// Lookup resolves a printed reference such as "@I1@".
func (g *Registry) Lookup(ref string) (*Record, bool) {
	x, ok := ParseXref(strings.TrimSpace(ref))
	if !ok {
		return nil, false
	}
	r, ok := g.records[x]
	return r, ok
}

// Has reports whether x is present.
func (g *Registry) Has(x Xref) bool {
	_, ok := g.records[x]
	return ok
}

// Len returns the number of records.
func (g *Registry) Len() int {
	return len(g.records)
}

// Records returns every record ordered by type code, then numeric id.
func (g *Registry) Records() []*Record {
	out := make([]*Record, 0, len(g.records))
	for _, r := range g.records {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b *Record) int {
		return cmp.Or(cmp.Compare(a.Type, b.Type), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// Father returns the father record of r, or nil when unknown.
func (g *Registry) Father(r *Record) *Record {
	return g.records[r.Father]
}

// Mother returns the mother record of r, or nil when unknown.
func (g *Registry) Mother(r *Record) *Record {
	return g.records[r.Mother]
}

// Children returns the child records of r in list order.
func (g *Registry) Children(r *Record) []*Record {
	out := make([]*Record, 0, len(r.Children))
	for _, c := range r.Children {
		if rec := g.records[c]; rec != nil {
			out = append(out, rec)
		}
	}
	return out
}
