// Package span identifies byte ranges within named sources and recovers
// line/column information from them for diagnostics.
package span

import (
	"fmt"
	"strings"
)

// Span is a half-open byte interval [Start, End) into a named Source.
//
// Invariant: Start <= End. A Span carries no reference to the source text
// itself; it is a pure coordinate, resolved against a Source on demand.
type Span struct {
	Start int
	End   int
}

// New constructs a Span, ordering the two offsets so Start <= End always
// holds regardless of call-site argument order.
func New(start, end int) Span {
	if start > end {
		start, end = end, start
	}
	return Span{Start: start, End: end}
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int { return s.End - s.Start }

// Join returns the smallest span covering both s and other.
func (s Span) Join(other Span) Span {
	start := s.Start
	if other.Start < start {
		start = other.Start
	}
	end := s.End
	if other.End > end {
		end = other.End
	}
	return Span{Start: start, End: end}
}

// Contains reports whether other lies entirely within s.
func (s Span) Contains(other Span) bool {
	return s.Start <= other.Start && other.End <= s.End
}

// TrimStart returns a span with its start advanced by n bytes.
func (s Span) TrimStart(n int) Span {
	start := s.Start + n
	if start > s.End {
		start = s.End
	}
	return Span{Start: start, End: s.End}
}

// WithStart returns a copy of s with its start offset replaced.
func (s Span) WithStart(start int) Span {
	return Span{Start: start, End: s.End}
}

func (s Span) String() string {
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}

// Source is an immutable named piece of source text.
type Source struct {
	Name string
	Text string

	// lineStarts[i] is the byte offset of the first character of line i
	// (0-based). Computed lazily on first Position call.
	lineStarts []int
}

// NewSource constructs a Source from its origin name and text.
func NewSource(name, text string) *Source {
	return &Source{Name: name, Text: text}
}

// Substring returns the text covered by span, failing cleanly if the span
// falls outside the source's bounds.
func (s *Source) Substring(sp Span) (string, error) {
	if sp.Start < 0 || sp.End > len(s.Text) || sp.Start > sp.End {
		return "", fmt.Errorf("span %s out of range for source %q (len %d)", sp, s.Name, len(s.Text))
	}
	return s.Text[sp.Start:sp.End], nil
}

// Position is a 1-based line and 0-based column, recovered by re-scanning
// the source text.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

func (s *Source) ensureLineStarts() {
	if s.lineStarts != nil {
		return
	}
	starts := []int{0}
	for i, c := range s.Text {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	s.lineStarts = starts
}

// Position recovers the (line, column) of a byte offset within the source
// by re-scanning for newlines. Line numbers are 1-based, columns 0-based.
func (s *Source) Position(offset int) Position {
	s.ensureLineStarts()
	line := 0
	for i, start := range s.lineStarts {
		if start > offset {
			break
		}
		line = i
	}
	col := offset - s.lineStarts[line]
	return Position{Line: line + 1, Column: col}
}

// LineColumnRange formats a span as "line:col-line:col" for diagnostics.
func (s *Source) LineColumnRange(sp Span) string {
	start := s.Position(sp.Start)
	end := s.Position(sp.End)
	var b strings.Builder
	fmt.Fprintf(&b, "%s", start)
	if end != start {
		fmt.Fprintf(&b, "-%s", end)
	}
	return b.String()
}
