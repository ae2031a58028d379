package gedcom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		wantOK bool
		want   Line
	}{
		{"header", "0 HEAD", true, Line{Kind: LineData, Number: 1, Level: 0, Tag: "HEAD"}},
		{"data with content", "1 NAME John /Smith/", true,
			Line{Kind: LineData, Number: 1, Level: 1, Tag: "NAME", Content: "John /Smith/"}},
		{"two digit level", "12 DATE 1 JAN 1900", true,
			Line{Kind: LineData, Number: 1, Level: 12, Tag: "DATE", Content: "1 JAN 1900"}},
		{"custom tag", "1 _FATH @I3@", true,
			Line{Kind: LineData, Number: 1, Level: 1, Tag: "_FATH", Content: "@I3@"}},
		{"xref as content", "1 FAMC @F1@", true,
			Line{Kind: LineData, Number: 1, Level: 1, Tag: "FAMC", Content: "@F1@"}},
		{"reference", "0 @I1@ INDI", true,
			Line{Kind: LineRef, Number: 1, Level: 0, Xref: Xref{Type: "I", ID: 1}, Content: "INDI"}},
		{"reference without content", "0 @F22@", true,
			Line{Kind: LineRef, Number: 1, Level: 0, Xref: Xref{Type: "F", ID: 22}}},
		{"multi letter type code", "0 @SUB7@ SUBM", true,
			Line{Kind: LineRef, Number: 1, Level: 0, Xref: Xref{Type: "SUB", ID: 7}, Content: "SUBM"}},
		{"content kept verbatim", "1 NOTE two  spaces ", true,
			Line{Kind: LineData, Number: 1, Level: 1, Tag: "NOTE", Content: "two  spaces "}},

		{"empty line", "", false, Line{}},
		{"three digit level", "100 NAME x", false, Line{}},
		{"lowercase tag", "1 name x", false, Line{}},
		{"tag too short", "1 AB x", false, Line{}},
		{"tag too long", "1 ABCDEF x", false, Line{}},
		{"leading whitespace", " 1 NAME x", false, Line{}},
		{"missing level", "NAME x", false, Line{}},
		{"unterminated reference", "0 @I1 INDI", false, Line{}},
		{"reference without number", "0 @I@ INDI", false, Line{}},
		{"id overflows uint64", "0 @I99999999999999999999@ INDI", false, Line{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Tokenize(1, tt.raw)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseXref(t *testing.T) {
	x, ok := ParseXref("@I12@")
	require.True(t, ok)
	assert.Equal(t, Xref{Type: "I", ID: 12}, x)
	assert.Equal(t, "@I12@", x.String())

	for _, bad := range []string{"", "I12", "@I12", "@12@", "@i12@", "@I12@ extra"} {
		_, ok := ParseXref(bad)
		assert.False(t, ok, "ParseXref(%q)", bad)
	}
}

func TestXref_Zero(t *testing.T) {
	var x Xref
	assert.True(t, x.IsZero())
	assert.Empty(t, x.String())
	assert.False(t, Xref{Type: "I", ID: 0}.IsZero(), "@I0@ is a valid reference")
}
