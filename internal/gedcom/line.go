package gedcom

import (
	"fmt"
	"regexp"
	"strconv"
)

// LineKind discriminates the two recognized line shapes.
type LineKind string

const (
	LineData LineKind = "data" // level, tag, optional content
	LineRef  LineKind = "ref"  // level, @TYPE<n>@, optional content
)

// Xref identifies an addressable entity: an uppercase type code plus a
// numeric identifier, written @I12@ in the source.
type Xref struct {
	Type string `json:"type"`
	ID   uint64 `json:"id"`
}

// IsZero reports whether x names nothing.
func (x Xref) IsZero() bool {
	return x.Type == ""
}

// String formats the reference the way it appears in a document.
func (x Xref) String() string {
	if x.IsZero() {
		return ""
	}
	return fmt.Sprintf("@%s%d@", x.Type, x.ID)
}

// Line is one tokenized input line. Kind selects which of Tag or Xref is set.
type Line struct {
	Kind    LineKind
	Number  int // 1-based position in the input
	Level   int
	Tag     string
	Xref    Xref
	Content string
}

var (
	dataLineRE = regexp.MustCompile(`^(\d{1,2})\s+(_?[A-Z]{3,5})(?:\s+(.*))?$`)
	refLineRE  = regexp.MustCompile(`^(\d{1,2})\s+@([A-Z]+)(\d+)@(?:\s+(.*))?$`)
	xrefRE     = regexp.MustCompile(`^@([A-Z]+)(\d+)@$`)
)

// Tokenize matches raw against the data grammar, then the reference
// grammar. ok is false when neither matches.
func Tokenize(number int, raw string) (line Line, ok bool) {
	if m := dataLineRE.FindStringSubmatch(raw); m != nil {
		level, _ := strconv.Atoi(m[1])
		return Line{
			Kind:    LineData,
			Number:  number,
			Level:   level,
			Tag:     m[2],
			Content: m[3],
		}, true
	}

	if m := refLineRE.FindStringSubmatch(raw); m != nil {
		id, err := strconv.ParseUint(m[3], 10, 64)
		if err != nil {
			return Line{}, false
		}
		level, _ := strconv.Atoi(m[1])
		return Line{
			Kind:    LineRef,
			Number:  number,
			Level:   level,
			Xref:    Xref{Type: m[2], ID: id},
			Content: m[4],
		}, true
	}

	return Line{}, false
}

// ParseXref parses a bare "@I12@" token, as found in relationship content.
func ParseXref(s string) (Xref, bool) {
	m := xrefRE.FindStringSubmatch(s)
	if m == nil {
		return Xref{}, false
	}
	id, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return Xref{}, false
	}
	return Xref{Type: m[1], ID: id}, true
}
