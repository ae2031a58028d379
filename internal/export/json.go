package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/gedex/internal/gedcom"
)

// DocumentExport is the top-level JSON export structure.
type DocumentExport struct {
	Source     string                `json:"source"`
	ExportedAt string                `json:"exportedAt"`
	Summary    Summary               `json:"summary"`
	Header     *gedcom.Tag           `json:"header,omitempty"`
	Records    []RecordExport        `json:"records"`
	Extra      []*gedcom.Tag         `json:"extra,omitempty"`
	Unparsed   []gedcom.UnparsedLine `json:"unparsed,omitempty"`
	Dangling   []DanglingExport      `json:"dangling,omitempty"`
}

// Summary counts what one parse produced.
type Summary struct {
	Lines    int            `json:"lines"`
	Records  int            `json:"records"`
	ByKind   map[string]int `json:"byKind"`
	Unparsed int            `json:"unparsed"`
	Dangling int            `json:"dangling"`
}

// RecordExport is a record with its references printed as "@I1@" strings.
type RecordExport struct {
	ID       string        `json:"id"`
	Keyword  string        `json:"keyword"`
	Kind     string        `json:"kind"`
	Name     string        `json:"name,omitempty"`
	Father   string        `json:"father,omitempty"`
	Mother   string        `json:"mother,omitempty"`
	Children []string      `json:"children,omitempty"`
	Line     int           `json:"line"`
	Tags     []*gedcom.Tag `json:"tags,omitempty"`
}

// DanglingExport is a dangling diagnostic with printed references.
type DanglingExport struct {
	Source  string `json:"source"`
	Role    string `json:"role"`
	Target  string `json:"target,omitempty"`
	Missing string `json:"missing,omitempty"`
	Content string `json:"content,omitempty"`
	Line    int    `json:"line"`
	Reason  string `json:"reason"`
}

// ExportDocument builds a DocumentExport from a parse result. withTags
// controls whether each record carries its full tag tree.
func ExportDocument(source string, res *gedcom.Result, withTags bool) *DocumentExport {
	export := &DocumentExport{
		Source:     source,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Header:     res.Header,
		Extra:      res.Extra,
		Unparsed:   res.Unparsed,
		Summary: Summary{
			Lines:    res.Lines,
			Records:  res.Registry.Len(),
			ByKind:   make(map[string]int),
			Unparsed: len(res.Unparsed),
			Dangling: len(res.Dangling),
		},
	}

	records := res.Registry.Records()
	export.Records = make([]RecordExport, 0, len(records))
	for _, r := range records {
		export.Summary.ByKind[string(r.Kind())]++
		export.Records = append(export.Records, ExportRecord(r, withTags))
	}

	for _, d := range res.Dangling {
		export.Dangling = append(export.Dangling, DanglingExport{
			Source:  d.Source.String(),
			Role:    string(d.Role),
			Target:  d.Target.String(),
			Missing: d.Missing.String(),
			Content: d.Content,
			Line:    d.Line,
			Reason:  d.Reason,
		})
	}

	return export
}

// ExportRecord converts one record.
func ExportRecord(r *gedcom.Record, withTags bool) RecordExport {
	out := RecordExport{
		ID:      r.Xref().String(),
		Keyword: r.Keyword,
		Kind:    string(r.Kind()),
		Name:    r.Name,
		Father:  r.Father.String(),
		Mother:  r.Mother.String(),
		Line:    r.Line,
	}
	for _, c := range r.Children {
		out.Children = append(out.Children, c.String())
	}
	if withTags {
		out.Tags = r.Tags
	}
	return out
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
