// Command guardd runs the guard playground service and inspects its failure journal.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/guardkit/guard/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "guardd: %+v\n", err)
		os.Exit(1)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("guardd"),
		kong.Description("Guarded execution playground and failure journal."),
		kong.UsageOnError(),
		kong.Bind(&Global{Config: cfg, Out: os.Stdout}),
	)
	kctx.FatalIfErrorf(kctx.Run())
}
