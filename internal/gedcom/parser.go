// Package gedcom parses level-numbered genealogical documents into a
// registry of cross-referenced records.
//
// Every line carries a level and either a tag or an @TYPEn@ reference. The
// hierarchy is rebuilt from the levels alone by a stack-based Folder, a
// Machine tracks the validity of the document as a whole, and a Resolver
// links fathers, mothers and children by identifier once records exist.
package gedcom

import (
	"fmt"
	"io"
	"os"
)

// Parser turns a byte stream into a Result. A Parser holds only options, so
// one value may serve concurrent parses of different inputs.
type Parser struct {
	opts options
}

// NewParser returns a Parser configured by opts.
func NewParser(opts ...Option) *Parser {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Parser{opts: o}
}

// Parse reads r to the end, or up to the first fatal error, and returns the
// populated registry with its diagnostics.
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	src, err := newLineSource(r)
	if err != nil {
		return nil, err
	}

	m := newMachine(p.opts)
	for m.CanAdvance() && src.Next() {
		number, text := src.Line()
		if line, ok := Tokenize(number, text); ok {
			m.Next(line)
		} else {
			m.Unrecognized(number, text)
		}
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	return m.Fold()
}

// ParseFile opens path and parses it.
func (p *Parser) ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Kind: ErrorKindIO, Msg: fmt.Sprintf("open %s", path), Err: err}
	}
	defer f.Close()
	return p.Parse(f)
}

// CountUnparsed returns how many lines of r match neither grammar. It does
// not look at structure.
func (p *Parser) CountUnparsed(r io.Reader) (int, error) {
	src, err := newLineSource(r)
	if err != nil {
		return 0, err
	}
	count := 0
	for src.Next() {
		number, text := src.Line()
		if _, ok := Tokenize(number, text); !ok {
			count++
		}
	}
	if err := src.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

// CountUnparsedFile opens path and counts its unrecognized lines.
func (p *Parser) CountUnparsedFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &ParseError{Kind: ErrorKindIO, Msg: fmt.Sprintf("open %s", path), Err: err}
	}
	defer f.Close()
	return p.CountUnparsed(f)
}
