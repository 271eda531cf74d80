package taskpool

import (
	"context"
	"fmt"
	"testing"

	"nilan/compiler"
	gocontext "nilan/context"
	"nilan/lexer"
	"nilan/parser"
	"nilan/vm"
)

func buildCallableVM(t *testing.T, source string) *vm.VM {
	t.Helper()
	tokens, err := lexer.New(source).Scan()
	if err != nil {
		t.Fatalf("lexing: %v", err)
	}
	statements, errs := parser.Make(tokens).Parse()
	if len(errs) > 0 {
		t.Fatalf("parsing: %v", errs[0])
	}
	u, err := compiler.NewASTCompiler().CompileAST(statements)
	if err != nil {
		t.Fatalf("compiling: %v", err)
	}
	return vm.New(gocontext.New(), u, vm.Options{})
}

func TestRunAllCollectsResultsInOrder(t *testing.T) {
	pool := New(2)

	tasks := make([]Task, 5)
	for i := range tasks {
		source := fmt.Sprintf("fn main() { %d }", i)
		tasks[i] = Task{VM: buildCallableVM(t, source), Item: "main"}
	}

	results, err := pool.RunAll(context.Background(), tasks)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	for i, r := range results {
		if r.AsInt() != int64(i) {
			t.Errorf("results[%d] = %v, want %d", i, r, i)
		}
	}
}

func TestRunAllPropagatesFirstError(t *testing.T) {
	pool := New(1)
	tasks := []Task{
		{VM: buildCallableVM(t, "fn main() { 1 }"), Item: "missing"},
	}
	_, err := pool.RunAll(context.Background(), tasks)
	if err == nil {
		t.Fatal("expected error calling a missing item")
	}
}
