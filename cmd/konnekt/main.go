// Command konnekt builds dataflow processing networks from YAML
// descriptions and runs them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/konnekt/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	root.SilenceErrors = true

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "konnekt:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
