package gedcom

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, doc string, opts ...Option) (*Result, error) {
	t.Helper()
	return NewParser(opts...).Parse(strings.NewReader(doc))
}

func mustParse(t *testing.T, doc string, opts ...Option) *Result {
	t.Helper()
	res, err := parseString(t, doc, opts...)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestParse_TwoIndividuals(t *testing.T) {
	res := mustParse(t, "0 HEAD\n0 @I1@ INDI\n1 NAME John\n0 @I2@ INDI\n1 NAME Mary\n1 FAMC @F1@\n")

	require.Equal(t, 2, res.Registry.Len())

	john := res.Registry.Get(Xref{Type: "I", ID: 1})
	require.NotNil(t, john)
	assert.Equal(t, uint64(1), john.ID)
	assert.Equal(t, "INDI", john.Keyword)
	require.Len(t, john.Tags, 1)
	assert.Equal(t, "NAME", john.Tags[0].Name)
	assert.Equal(t, "John", john.Tags[0].Content)

	mary := res.Registry.Get(Xref{Type: "I", ID: 2})
	require.NotNil(t, mary)
	assert.Equal(t, uint64(2), mary.ID)
	require.Len(t, mary.Tags, 2)
	assert.Equal(t, "Mary", mary.Tag("NAME").Content)
	assert.Equal(t, "@F1@", mary.Tag("FAMC").Content)

	assert.Empty(t, res.Unparsed)
	assert.Empty(t, res.Dangling)
	require.NotNil(t, res.Header)
	assert.Equal(t, "HEAD", res.Header.Name)
}

func TestParse_LevelJumpFails(t *testing.T) {
	res, err := parseString(t, "0 HEAD\n2 FOO\n")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, IsStructural(err))
	assert.ErrorIs(t, err, errLevelJump)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Line)
}

func TestParse_LevelJumpAnywhereFails(t *testing.T) {
	valid := "0 HEAD\n1 SOUR app\n0 @I1@ INDI\n1 NAME A\n1 BIRT\n2 DATE 1900\n0 @I2@ INDI\n1 NAME B\n"
	lines := strings.Split(strings.TrimSuffix(valid, "\n"), "\n")

	// Insert a +2 jump after every line that opens a block or a tag.
	for i := range lines {
		level := int(lines[i][0] - '0')
		bad := append([]string{}, lines[:i+1]...)
		bad = append(bad, fmt.Sprintf("%d JUMP", level+2))
		bad = append(bad, lines[i+1:]...)

		_, err := parseString(t, strings.Join(bad, "\n")+"\n")
		require.Error(t, err, "jump after line %d", i+1)
		assert.True(t, IsStructural(err))
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	res := mustParse(t, "0 HEAD\n1 GEDC\n2 VERS 5.5.1\n1 CHAR UTF-8\n")
	assert.Equal(t, 0, res.Registry.Len())
	require.NotNil(t, res.Header)
	assert.Equal(t, []any{"HEAD", []any{"GEDC", []any{"VERS"}}, []any{"CHAR"}}, shape(res.Header))
}

func TestParse_MissingHeader(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"reference first", "0 @I1@ INDI\n1 NAME John\n"},
		{"wrong tag", "0 HEADER\n0 @I1@ INDI\n"},
		{"header with content", "0 HEAD oops\n0 @I1@ INDI\n"},
		{"header not at level zero", "1 HEAD\n"},
		{"garbage first", "hello\n0 HEAD\n"},
		{"empty document", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseString(t, tt.doc)
			require.Error(t, err)
			assert.True(t, IsStructural(err))
		})
	}
}

func TestParse_MissingHeaderStopsReading(t *testing.T) {
	// The reader fails after the first line; a parse that stopped at the
	// bad header never sees the failure.
	r := io.MultiReader(strings.NewReader("0 @I1@ INDI\n"), iotest.ErrReader(errors.New("must not be read")))
	_, err := NewParser().Parse(r)
	require.Error(t, err)
	assert.True(t, IsStructural(err))
	assert.NotContains(t, err.Error(), "must not be read")
}

func TestParse_RecordCountMatchesReferenceLines(t *testing.T) {
	doc := `0 HEAD
1 SOUR test
0 @I1@ INDI
1 NAME Adam
0 @I2@ INDI
1 NAME Eve
0 @F1@ FAM
1 HUSB @I1@
1 WIFE @I2@
0 @S1@ SOUR
1 TITL Parish register
0 @N3@ NOTE
0 TRLR
`
	res := mustParse(t, doc)
	refLines := 0
	for _, l := range strings.Split(doc, "\n") {
		if strings.HasPrefix(l, "0 @") {
			refLines++
		}
	}
	assert.Equal(t, refLines, res.Registry.Len())
	require.Len(t, res.Extra, 1)
	assert.Equal(t, "TRLR", res.Extra[0].Name)
	assert.Equal(t, "Parish register", res.Registry.Get(Xref{Type: "S", ID: 1}).Name)
}

func TestParse_UnparsedLinesAreCollected(t *testing.T) {
	doc := "0 HEAD\n0 @I1@ INDI\n1 NAME John\nthis is noise\n1 SEX M\n\n"
	res := mustParse(t, doc)

	assert.Equal(t, []UnparsedLine{{Line: 4, Text: "this is noise"}, {Line: 6, Text: ""}}, res.Unparsed)

	john := res.Registry.Get(Xref{Type: "I", ID: 1})
	require.NotNil(t, john)
	assert.Equal(t, []any{"NAME"}, shape(john.Tags[0]))
	assert.Equal(t, "SEX", john.Tags[1].Name)
}

func TestParse_StrictRejectsUnparsed(t *testing.T) {
	_, err := parseString(t, "0 HEAD\nnoise\n", WithStrict(true))
	require.Error(t, err)
	assert.True(t, IsStructural(err))

	res := mustParse(t, "0 HEAD\nnoise\n")
	assert.Len(t, res.Unparsed, 1)
}

func TestParse_DuplicateIdentifier(t *testing.T) {
	_, err := parseString(t, "0 HEAD\n0 @I1@ INDI\n0 @I1@ INDI\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateXref)
	assert.True(t, IsStructural(err))
}

func TestParse_SameNumberDifferentTypes(t *testing.T) {
	res := mustParse(t, "0 HEAD\n0 @I1@ INDI\n0 @F1@ FAM\n")
	assert.Equal(t, 2, res.Registry.Len())
	assert.NotNil(t, res.Registry.Get(Xref{Type: "I", ID: 1}))
	assert.NotNil(t, res.Registry.Get(Xref{Type: "F", ID: 1}))
}

func TestParse_CRLFAndBOM(t *testing.T) {
	doc := append([]byte{0xEF, 0xBB, 0xBF}, []byte("0 HEAD\r\n0 @I1@ INDI\r\n1 NAME John /Smith/\r\n")...)
	res, err := NewParser().Parse(bytes.NewReader(doc))
	require.NoError(t, err)
	john := res.Registry.Get(Xref{Type: "I", ID: 1})
	require.NotNil(t, john)
	assert.Equal(t, "John /Smith/", john.Tag("NAME").Content)
	assert.Equal(t, "John Smith", john.Name)
}

func TestParse_UnsupportedBOM(t *testing.T) {
	tests := []struct {
		name string
		mark []byte
	}{
		{"utf-16 le", []byte{0xFF, 0xFE}},
		{"utf-16 be", []byte{0xFE, 0xFF}},
		{"utf-32 le", []byte{0xFF, 0xFE, 0x00, 0x00}},
		{"utf-32 be", []byte{0x00, 0x00, 0xFE, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := append(append([]byte{}, tt.mark...), []byte("0 HEAD\n")...)

			_, err := NewParser().Parse(bytes.NewReader(doc))
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, ErrorKindEncoding, pe.Kind)

			_, err = NewParser().CountUnparsed(bytes.NewReader(doc))
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, ErrorKindEncoding, pe.Kind)
		})
	}
}

func TestParse_IOFailure(t *testing.T) {
	r := io.MultiReader(strings.NewReader("0 HEAD\n0 @I1@ INDI\n"), iotest.ErrReader(errors.New("disk gone")))
	res, err := NewParser().Parse(r)
	require.Error(t, err)
	assert.Nil(t, res)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrorKindIO, pe.Kind)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestParse_LineTooLong(t *testing.T) {
	long := "1 NOTE " + strings.Repeat("x", maxLineBytes)
	doc := "0 HEAD\n0 @I1@ INDI\n" + long + "\n1 SEX M\n"

	res, err := NewParser().Parse(strings.NewReader(doc))
	require.Error(t, err)
	assert.Nil(t, res)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrorKindIO, pe.Kind)
	assert.Equal(t, 3, pe.Line)
	assert.ErrorIs(t, err, bufio.ErrTooLong)

	_, err = NewParser().CountUnparsed(strings.NewReader(doc))
	assert.ErrorIs(t, err, bufio.ErrTooLong)

	// The terminator shares the buffer, so the longest line that fits is
	// one byte short of the bound.
	n := maxLineBytes - 1 - len("1 NOTE ")
	fits := "1 NOTE " + strings.Repeat("x", n)
	res = mustParse(t, "0 HEAD\n0 @I1@ INDI\n"+fits+"\n")
	assert.Len(t, res.Registry.Get(Xref{Type: "I", ID: 1}).Tag("NOTE").Content, n)
}

func TestParse_CustomHeaderTag(t *testing.T) {
	res := mustParse(t, "0 GEDX\n0 @I1@ INDI\n", WithHeaderTag("GEDX"))
	assert.Equal(t, 1, res.Registry.Len())

	_, err := parseString(t, "0 HEAD\n", WithHeaderTag("GEDX"))
	assert.Error(t, err)
}

func TestCountUnparsed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want int
	}{
		{"clean", "0 HEAD\n0 @I1@ INDI\n1 NAME x\n", 0},
		{"noise and blanks", "0 HEAD\nfoo\n\n1 name lower\n0 @I1@ INDI\n", 3},
		{"structurally invalid but lexically fine", "0 HEAD\n2 FOO\n", 0},
		{"empty", "", 0},
		{"bom is not a line", "\xEF\xBB\xBF0 HEAD\n", 0},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.CountUnparsed(strings.NewReader(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountUnparsed_ConsistentWithParse(t *testing.T) {
	doc := "0 HEAD\n0 @I1@ INDI\n1 NAME John\n?? NAME\n1 SEX M\n2 xx\n0 TRLR\n"
	p := NewParser()

	count, err := p.CountUnparsed(strings.NewReader(doc))
	require.NoError(t, err)

	res, err := p.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, res.Unparsed, count)

	var walk func(tags []*Tag)
	walk = func(tags []*Tag) {
		for _, tag := range tags {
			for _, u := range res.Unparsed {
				assert.NotEqual(t, u.Line, tag.Line, "unparsed line %d folded into a record", u.Line)
			}
			walk(tag.Children)
		}
	}
	for _, rec := range res.Registry.Records() {
		walk(rec.Tags)
	}
}

func TestParseFile(t *testing.T) {
	p := NewParser()

	res, err := p.ParseFile(filepath.Join("..", "..", "testdata", "fixtures", "family.ged"))
	require.NoError(t, err)
	assert.Equal(t, 6, res.Registry.Len())

	_, err = p.ParseFile(filepath.Join(t.TempDir(), "missing.ged"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrorKindIO, pe.Kind)
	assert.ErrorIs(t, err, os.ErrNotExist)

	n, err := p.CountUnparsedFile(filepath.Join("..", "..", "testdata", "fixtures", "noisy.ged"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// emitTag writes t and its subtree back out as "level name content" lines.
func emitTag(sb *strings.Builder, t *Tag) {
	sb.WriteString(fmt.Sprintf("%d %s", t.Level, t.Name))
	if t.Content != "" {
		sb.WriteString(" " + t.Content)
	}
	sb.WriteString("\n")
	for _, c := range t.Children {
		emitTag(sb, c)
	}
}

// emitResult re-serializes a parse result: header, records in registry
// order, then the remaining level-0 blocks.
func emitResult(res *Result) string {
	var sb strings.Builder
	emitTag(&sb, res.Header)
	for _, r := range res.Registry.Records() {
		emitTag(&sb, &Tag{Name: r.Xref().String(), Content: r.Keyword, Children: r.Tags})
	}
	for _, t := range res.Extra {
		emitTag(&sb, t)
	}
	return sb.String()
}

// assertSameTree compares names, references, content and child order at
// every depth. Line numbers are not compared.
func assertSameTree(t *testing.T, want, got *Tag, path string) {
	t.Helper()
	path += "/" + want.Name
	require.NotNil(t, got, path)
	assert.Equal(t, want.Name, got.Name, path)
	assert.Equal(t, want.Content, got.Content, path)
	assert.Equal(t, want.Xref, got.Xref, path)
	assert.Equal(t, want.Level, got.Level, path)
	require.Len(t, got.Children, len(want.Children), path)
	for i := range want.Children {
		assertSameTree(t, want.Children[i], got.Children[i], path)
	}
}

func TestParse_StructureRoundTrips(t *testing.T) {
	doc := strings.Join([]string{
		"0 HEAD",
		"1 SOUR gedex",
		"2 VERS 1.0",
		"1 GEDC",
		"2 FORM LINEAGE-LINKED",
		"0 @I2@ INDI",
		"1 NAME Mary /Jones/",
		"1 BIRT",
		"2 DATE 3 JUN 1893",
		"2 PLAC Leeds",
		"3 MAP",
		"4 LATI N53.8",
		"1 SEX F",
		"0 @I1@ INDI",
		"1 NAME John /Smith/",
		"1 NOTE",
		"2 @N1@ NOTE inline note",
		"3 CONT continued",
		"1 FAMS @F1@",
		"0 @F1@ FAM",
		"1 HUSB @I1@",
		"1 WIFE @I2@",
		"1 MARR",
		"2 DATE 1915",
		"0 TRLR",
		"",
	}, "\n")

	first := mustParse(t, doc)
	second := mustParse(t, emitResult(first))

	assertSameTree(t, first.Header, second.Header, "")
	require.Len(t, second.Extra, len(first.Extra))
	for i := range first.Extra {
		assertSameTree(t, first.Extra[i], second.Extra[i], "")
	}

	require.Equal(t, first.Registry.Len(), second.Registry.Len())
	for _, r := range first.Registry.Records() {
		other := second.Registry.Get(r.Xref())
		require.NotNil(t, other, r.Xref().String())
		assert.Equal(t, r.Keyword, other.Keyword)
		assert.Equal(t, r.Father, other.Father)
		assert.Equal(t, r.Mother, other.Mother)
		assertSameTree(t,
			&Tag{Name: r.Xref().String(), Children: r.Tags},
			&Tag{Name: other.Xref().String(), Children: other.Tags},
			"")
	}

	// Re-emitting the second parse changes nothing further.
	assert.Equal(t, emitResult(first), emitResult(second))
}
