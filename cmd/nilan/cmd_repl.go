package main

import (
	gocontext "context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"nilan/compiler"
	"nilan/context"
	"nilan/internal/replio"
	"nilan/lexer"
	"nilan/parser"
	"nilan/value"
	"nilan/vm"
)

type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "start an interactive Nilan session" }
func (*replCmd) Usage() string    { return "repl\n" }
func (*replCmd) SetFlags(*flag.FlagSet) {}

func (*replCmd) Execute(_ gocontext.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	fmt.Println("Welcome to Nilan!")

	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".nilan_history")
	}
	session, err := replio.New(historyFile)
	if err != nil {
		return fail("failed to start REPL: %s", err)
	}
	defer session.Close()

	ctx := context.New()

	// Each entry is lexed, parsed, compiled and run as an independent
	// program against a fresh Unit and VM: statements don't share locals
	// across entries, the same tradeoff the bytecode REPL this supersedes
	// already made explicit.
	for {
		source, err := session.NextStatement()
		if err == io.EOF {
			return subcommands.ExitSuccess
		}

		tokens, err := lexer.New(source).Scan()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}

		statements, parseErrs := parser.Make(tokens).Parse()
		if len(parseErrs) > 0 {
			if replio.ParseErrorsAtEOF(parseErrs, tokens) {
				continue
			}
			for _, e := range parseErrs {
				fmt.Fprintln(os.Stderr, e)
			}
			continue
		}

		ac := compiler.NewASTCompilerWithOptions(compiler.DefaultOptions())
		u, err := ac.CompileAST(statements)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}

		result, err := vm.New(ctx, u, vm.Options{}).Run()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if result != value.Unit {
			fmt.Println(result.String())
		}
	}
}
