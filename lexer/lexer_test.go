package lexer

import (
	"testing"

	"nilan/token"
)

func scanKinds(t *testing.T, src string) []token.TokenType {
	t.Helper()
	toks, err := New(src).Scan()
	if err != nil {
		t.Fatalf("Scan(%q) returned error: %v", src, err)
	}
	kinds := make([]token.TokenType, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	return kinds
}

func assertKinds(t *testing.T, src string, want []token.TokenType) {
	t.Helper()
	got := scanKinds(t, src)
	if len(got) != len(want) {
		t.Fatalf("Scan(%q) = %v, want %v", src, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Scan(%q)[%d] = %s, want %s", src, i, got[i], want[i])
		}
	}
}

func TestScanOperators(t *testing.T) {
	assertKinds(t, "==/ =*+>-<!=<=>=!!", []token.TokenType{
		token.EQUAL_EQUAL, token.DIV, token.ASSIGN, token.MULT, token.ADD,
		token.LARGER, token.SUB, token.LESS, token.NOT_EQUAL, token.LESS_EQUAL,
		token.LARGER_EQUAL, token.BANG, token.BANG, token.EOF,
	})
}

func TestScanCompoundAssignAndBitwise(t *testing.T) {
	assertKinds(t, "+= -= *= /= %= &= |= ^= <<= >>= && || & | ^ << >>", []token.TokenType{
		token.ADD_ASSIGN, token.SUB_ASSIGN, token.MULT_ASSIGN, token.DIV_ASSIGN,
		token.PERCENT_ASSIGN, token.AMP_ASSIGN, token.PIPE_ASSIGN, token.CARET_ASSIGN,
		token.SHL_ASSIGN, token.SHR_ASSIGN, token.ANDAND, token.OROR,
		token.AMP, token.PIPE, token.CARET, token.SHL, token.SHR, token.EOF,
	})
}

func TestScanPunctuation(t *testing.T) {
	assertKinds(t, "(){}[]**;.::#=>", []token.TokenType{
		token.LPA, token.RPA, token.LCUR, token.RCUR, token.LBRACKET, token.RBRACKET,
		token.MULT, token.MULT, token.SEMICOLON, token.DOT, token.COLONCOLON,
		token.HASH, token.FATARROW, token.EOF,
	})
}

func TestScanKeywords(t *testing.T) {
	assertKinds(t, "fn async await select let var const return if else elif while for break continue true false null is not print",
		[]token.TokenType{
			token.FUNC, token.ASYNC, token.AWAIT, token.SELECT, token.LET, token.VAR,
			token.CONST, token.RETURN, token.IF, token.ELSE, token.ELIF, token.WHILE,
			token.FOR, token.BREAK, token.CONTINUE, token.TRUE, token.FALSE, token.NULL,
			token.IS, token.NOT, token.PRINT, token.EOF,
		})
}

func TestScanIdentifier(t *testing.T) {
	toks, err := New("hello_world").Scan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) != 2 || toks[0].Kind != token.IDENTIFIER || toks[1].Kind != token.EOF {
		t.Fatalf("got %v", toks)
	}
	if toks[0].Span.Len() != len("hello_world") {
		t.Errorf("span length = %d, want %d", toks[0].Span.Len(), len("hello_world"))
	}
	if toks[0].Lexeme() != "hello_world" {
		t.Errorf("Lexeme() = %q, want %q", toks[0].Lexeme(), "hello_world")
	}
}

func TestScanNumbers(t *testing.T) {
	toks, err := New("42 3.5").Scan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != token.INT || toks[0].Literal.(int64) != 42 {
		t.Errorf("got %v", toks[0])
	}
	if toks[1].Kind != token.FLOAT || toks[1].Literal.(float64) != 3.5 {
		t.Errorf("got %v", toks[1])
	}
}

func TestScanString(t *testing.T) {
	toks, err := New(`"hello"`).Scan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != token.STRING || toks[0].Literal.(string) != "hello" {
		t.Errorf("got %v", toks[0])
	}
	if toks[0].Source.Escaped {
		t.Errorf("expected unescaped string, got escaped")
	}
}

func TestScanEscapedString(t *testing.T) {
	toks, err := New(`"a\"b"`).Scan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !toks[0].Source.Escaped {
		t.Errorf("expected escaped string")
	}
}

func TestScanByteString(t *testing.T) {
	toks, err := New(`b"abc"`).Scan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != token.BYTESTRING {
		t.Fatalf("got %v", toks[0])
	}
	bs, ok := toks[0].Literal.([]byte)
	if !ok || string(bs) != "abc" {
		t.Errorf("got %v", toks[0].Literal)
	}
}

func TestScanUnclosedStringErrors(t *testing.T) {
	_, err := New(`"unterminated`).Scan()
	if err == nil {
		t.Fatal("expected an error for an unclosed string literal")
	}
}

func TestScanComment(t *testing.T) {
	assertKinds(t, "1 # this is a comment\n2", []token.TokenType{token.INT, token.INT, token.EOF})
}

func TestScanUnexpectedCharacter(t *testing.T) {
	_, err := New("1 ` 2").Scan()
	if err == nil {
		t.Fatal("expected an error for an unexpected character")
	}
}
