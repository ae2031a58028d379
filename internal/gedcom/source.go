package gedcom

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// maxLineBytes bounds a single input line including its terminator. A
// longer line stops the read with an io ParseError wrapping
// bufio.ErrTooLong.
const maxLineBytes = 1 << 20

// Byte-order marks. The 32-bit little-endian mark starts with the 16-bit
// one, so it is checked first.
var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF32LE = []byte{0xFF, 0xFE, 0x00, 0x00}
	bomUTF32BE = []byte{0x00, 0x00, 0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

var unsupportedBOMs = []struct {
	name string
	mark []byte
}{
	{"UTF-32LE", bomUTF32LE},
	{"UTF-32BE", bomUTF32BE},
	{"UTF-16LE", bomUTF16LE},
	{"UTF-16BE", bomUTF16BE},
}

// lineSource reads a document once, front to back, one line at a time.
type lineSource struct {
	scanner *bufio.Scanner
	number  int
	text    string
}

// newLineSource consumes a UTF-8 byte-order mark if present and fails on
// any other one.
func newLineSource(r io.Reader) (*lineSource, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(bomUTF32LE))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, &ParseError{Kind: ErrorKindIO, Msg: "read", Err: err}
	}

	if bytes.HasPrefix(head, bomUTF8) {
		if _, err := br.Discard(len(bomUTF8)); err != nil {
			return nil, &ParseError{Kind: ErrorKindIO, Msg: "read", Err: err}
		}
	} else {
		for _, b := range unsupportedBOMs {
			if bytes.HasPrefix(head, b.mark) {
				return nil, &ParseError{Kind: ErrorKindEncoding, Line: 1, Msg: "unsupported byte-order mark " + b.name}
			}
		}
	}

	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &lineSource{scanner: sc}, nil
}

// Next advances to the next line. It returns false at end of input or on a
// read error; Err tells the two apart.
func (s *lineSource) Next() bool {
	if !s.scanner.Scan() {
		return false
	}
	s.number++
	s.text = strings.TrimSuffix(s.scanner.Text(), "\r")
	return true
}

// Line returns the current line number and text.
func (s *lineSource) Line() (int, string) {
	return s.number, s.text
}

// Err returns the read error that stopped Next, if any.
func (s *lineSource) Err() error {
	err := s.scanner.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		return &ParseError{Kind: ErrorKindIO, Line: s.number + 1, Msg: "line longer than 1 MiB", Err: err}
	}
	if err != nil {
		return &ParseError{Kind: ErrorKindIO, Line: s.number + 1, Msg: "read", Err: err}
	}
	return nil
}
