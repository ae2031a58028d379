package gedcom

import (
	"errors"
	"fmt"
)

// ErrorKind classifies fatal parse failures.
type ErrorKind string

const (
	ErrorKindIO         ErrorKind = "io"         // the byte source failed
	ErrorKindEncoding   ErrorKind = "encoding"   // a non UTF-8 byte-order mark
	ErrorKindStructural ErrorKind = "structural" // header, level or identifier violation
)

// ErrNotRecognized is returned when a document never got past its header.
var ErrNotRecognized = errors.New("not recognized document")

// ErrDuplicateXref is returned when two level-0 blocks share an identifier.
var ErrDuplicateXref = errors.New("duplicate identifier")

// ParseError is the single error a failed parse surfaces to the caller.
type ParseError struct {
	Kind ErrorKind
	Line int // 1-based input line, 0 when not tied to a line
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s error at line %d: %s", e.Kind, e.Line, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func structuralError(line int, msg string, err error) *ParseError {
	return &ParseError{Kind: ErrorKindStructural, Line: line, Msg: msg, Err: err}
}

// IsStructural reports whether err is a structural ParseError.
func IsStructural(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Kind == ErrorKindStructural
}
