package main

import (
	gocontext "context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"nilan/compiler"
	"nilan/context"
	"nilan/internal/cache"
	"nilan/lexer"
	"nilan/parser"
	"nilan/unit"
	"nilan/vm"
)

type runCmd struct {
	noCache bool
	debug   bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "compile and execute a Nilan source file" }
func (*runCmd) Usage() string {
	return "run [-no-cache] [-debug] <file>\n"
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.noCache, "no-cache", false, "skip the on-disk compile cache")
	f.BoolVar(&r.debug, "debug", false, "log every dispatched instruction")
}

func (r *runCmd) Execute(_ gocontext.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		return fail("file not provided")
	}
	path := args[0]

	u, err := compileWithCache(path, r.noCache)
	if err != nil {
		return fail("%s", err)
	}

	ctx := context.New()
	machine := vm.New(ctx, u, vm.Options{Debug: r.debug})

	mainHash := unit.ItemHash("main")
	if _, ok := u.Function(mainHash); ok {
		if _, err := machine.Call("main", nil); err != nil {
			return fail("%s", err)
		}
		return subcommands.ExitSuccess
	}

	if _, err := machine.Run(); err != nil {
		return fail("%s", err)
	}
	return subcommands.ExitSuccess
}

// compileWithCache compiles path, consulting and refreshing the on-disk
// cache at .nilan-cache inside the current working directory unless
// skipCache is set.
func compileWithCache(path string, skipCache bool) (*unit.Unit, error) {
	if !skipCache {
		c, err := cache.New(".nilan-cache")
		if err == nil {
			if u, ok, _ := c.Lookup(path); ok {
				return u, nil
			}
			u, err := compileFile(path)
			if err != nil {
				return nil, err
			}
			_ = c.Store(path, u)
			return u, nil
		}
	}
	return compileFile(path)
}

func compileFile(path string) (*unit.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	lex := lexer.New(string(data))
	tokens, err := lex.Scan()
	if err != nil {
		return nil, fmt.Errorf("lexing error: %w", err)
	}

	p := parser.Make(tokens)
	statements, parseErrs := p.Parse()
	if len(parseErrs) > 0 {
		msg := "parsing error:"
		for _, e := range parseErrs {
			msg += "\n\t" + e.Error()
		}
		return nil, fmt.Errorf("%s", msg)
	}

	ac := compiler.NewASTCompilerWithOptions(compiler.DefaultOptions())
	u, err := ac.CompileAST(statements)
	if err != nil {
		return nil, fmt.Errorf("compilation error: %w", err)
	}
	return u, nil
}
