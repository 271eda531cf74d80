// Package replio drives the interactive REPL's line input: reading
// readline-edited lines, buffering until a statement looks complete (by
// brace balance and a trailing-operator check on the token stream), then
// handing the buffered source off to the caller.
package replio

import (
	"io"
	"strings"

	"github.com/chzyer/readline"

	"nilan/lexer"
	"nilan/parser"
	"nilan/token"
)

// Session wraps a readline instance with Nilan's multi-line buffering.
type Session struct {
	rl     *readline.Instance
	buffer strings.Builder
}

// New constructs a Session backed by readline, with history persisted at
// historyFile (pass "" to disable persistence).
func New(historyFile string) (*Session, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	return &Session{rl: rl}, nil
}

// Close releases the underlying terminal.
func (s *Session) Close() error { return s.rl.Close() }

// NextStatement reads lines until the buffered source is a complete
// statement (balanced braces, no trailing operator/keyword expecting
// more), then returns it with the buffer reset. It returns io.EOF once
// the input stream is exhausted.
func (s *Session) NextStatement() (string, error) {
	for {
		if s.buffer.Len() == 0 {
			s.rl.SetPrompt(">>> ")
		} else {
			s.rl.SetPrompt("... ")
		}
		line, err := s.rl.Readline()
		if err == readline.ErrInterrupt {
			s.buffer.Reset()
			continue
		}
		if err != nil {
			return "", io.EOF
		}
		if s.buffer.Len() > 0 {
			s.buffer.WriteString("\n")
		}
		s.buffer.WriteString(line)
		source := s.buffer.String()

		tokens, lexErr := lexFully(source)
		if lexErr != nil {
			// Likely an unterminated string/byte-string: keep reading.
			continue
		}
		if !isInputReady(tokens) {
			continue
		}
		s.buffer.Reset()
		return source, nil
	}
}

func lexFully(source string) ([]token.Token, error) {
	return lexer.New(source).Scan()
}

// isInputReady reports whether tokens form a syntactically complete-looking
// statement: braces balanced, and the last non-EOF token isn't an operator
// or keyword that obviously expects a continuation. Grounded on the
// teacher's own REPL readiness check, generalized to the full token set.
func isInputReady(tokens []token.Token) bool {
	braceBalance := 0
	for _, tok := range tokens {
		switch tok.Kind {
		case token.LCUR:
			braceBalance++
		case token.RCUR:
			braceBalance--
		}
	}
	if braceBalance > 0 {
		return false
	}

	last := lastNonEOF(tokens)
	if last == nil {
		return true
	}

	switch last.Kind {
	case token.ASSIGN, token.ADD, token.SUB, token.MULT, token.DIV,
		token.BANG, token.EQUAL_EQUAL, token.NOT_EQUAL,
		token.LESS, token.LESS_EQUAL, token.LARGER, token.LARGER_EQUAL,
		token.COMMA, token.LPA, token.LCUR,
		token.IF, token.ELSE, token.ELIF, token.WHILE, token.FOR,
		token.FUNC, token.RETURN, token.VAR, token.CONST,
		token.AND, token.OR, token.PRINT:
		return false
	}
	return true
}

func lastNonEOF(tokens []token.Token) *token.Token {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Kind != token.EOF {
			return &tokens[i]
		}
	}
	return nil
}

// ParseErrorsAtEOF reports whether every error in errs is a ParseError
// anchored at the final token's span: the signature of "the user hasn't
// finished typing yet" rather than an actual syntax mistake.
func ParseErrorsAtEOF(errs []error, tokens []token.Token) bool {
	if len(errs) == 0 || len(tokens) == 0 {
		return false
	}
	eofSpan := tokens[len(tokens)-1].Span
	for _, e := range errs {
		pe, ok := e.(parser.ParseError)
		if !ok {
			return false
		}
		if pe.Span.Start != eofSpan.Start {
			return false
		}
	}
	return true
}
