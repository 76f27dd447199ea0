// Command offerdb inspects and maintains a node's offer store.
package main

import (
	"fmt"
	"os"

	"github.com/dexnode/offerdb/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
