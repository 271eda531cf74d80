package replio

import (
	"testing"

	"nilan/token"
)

func scan(t *testing.T, source string) []token.Token {
	t.Helper()
	tokens, err := lexFully(source)
	if err != nil {
		t.Fatalf("lexing %q: %v", source, err)
	}
	return tokens
}

func TestIsInputReadyCompleteStatement(t *testing.T) {
	if !isInputReady(scan(t, "1 + 1;")) {
		t.Fatal("expected a complete arithmetic statement to be ready")
	}
}

func TestIsInputReadyUnbalancedBrace(t *testing.T) {
	if isInputReady(scan(t, "fn f() {")) {
		t.Fatal("expected an unbalanced brace to not be ready")
	}
}

func TestIsInputReadyTrailingOperator(t *testing.T) {
	if isInputReady(scan(t, "1 +")) {
		t.Fatal("expected a trailing operator to not be ready")
	}
}

func TestIsInputReadyBalancedBlock(t *testing.T) {
	if !isInputReady(scan(t, "fn f() { 1 }")) {
		t.Fatal("expected a balanced block to be ready")
	}
}

func TestLastNonEOFSkipsEOFToken(t *testing.T) {
	tokens := scan(t, "1;")
	last := lastNonEOF(tokens)
	if last == nil {
		t.Fatal("expected a non-EOF last token")
	}
	if last.Kind == token.EOF {
		t.Fatal("lastNonEOF should never return the EOF token")
	}
}
