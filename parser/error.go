package parser

import (
	"fmt"

	"nilan/span"
)

// ErrorKind enumerates the recoverable-by-report categories of parse
// failure. The parser itself never recovers from one: the caller must fix
// the source and re-drive the whole pipeline.
type ErrorKind string

const (
	ExpectedToken    ErrorKind = "ExpectedToken"
	ExpectedString   ErrorKind = "ExpectedString"
	UnexpectedEof    ErrorKind = "UnexpectedEof"
	BadSlice         ErrorKind = "BadSlice"
	BadSyntheticId   ErrorKind = "BadSyntheticId"
	BadNumberLiteral ErrorKind = "BadNumberLiteral"
)

// ParseError is the single error type the parser produces. It always
// carries the span at which parsing failed.
type ParseError struct {
	Kind    ErrorKind
	Span    span.Span
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("💥 ParseError::%s at %s: %s", e.Kind, e.Span, e.Message)
}

func newParseError(kind ErrorKind, sp span.Span, message string) ParseError {
	return ParseError{Kind: kind, Span: sp, Message: message}
}
