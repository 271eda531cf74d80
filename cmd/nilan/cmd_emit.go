package main

import (
	gocontext "context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"nilan/unit"
)

type emitCmd struct {
	debug bool
}

func (*emitCmd) Name() string     { return "emit" }
func (*emitCmd) Synopsis() string { return "compile a source file and print its bytecode" }
func (*emitCmd) Usage() string    { return "emit [-debug] <file>\n" }

func (e *emitCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&e.debug, "debug", false, "also record and print per-instruction debug info")
}

func (e *emitCmd) Execute(_ gocontext.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		return fail("file not provided")
	}

	u, err := compileFile(args[0])
	if err != nil {
		return fail("%s", err)
	}

	ip := 0
	for ip < len(u.Instructions) {
		op, operands, width, err := unit.Decode(u.Instructions, ip)
		if err != nil {
			return fail("%s", err)
		}
		fmt.Printf("%06d  %-16s %v\n", ip, op, operands)
		ip += width
	}

	if e.debug && u.DebugInfo != nil {
		fmt.Println("\nfunctions:")
		for hash, sig := range u.DebugInfo.Signatures {
			fmt.Printf("  %x  %s\n", hash, sig)
		}
	}

	return subcommands.ExitSuccess
}
