package main

import (
	gocontext "context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"nilan/internal/cache"
)

type cacheCmd struct {
	clear bool
}

func (*cacheCmd) Name() string     { return "cache" }
func (*cacheCmd) Synopsis() string { return "clear the on-disk compile cache (-clear)" }
func (*cacheCmd) Usage() string    { return "cache [-clear]\n" }

func (c *cacheCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.clear, "clear", false, "remove every cached compiled unit")
}

func (c *cacheCmd) Execute(_ gocontext.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	dir, err := cache.New(".nilan-cache")
	if err != nil {
		return fail("%s", err)
	}
	if c.clear {
		if err := dir.Clear(); err != nil {
			return fail("%s", err)
		}
		fmt.Println("cache cleared")
	}
	return subcommands.ExitSuccess
}
