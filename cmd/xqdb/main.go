// Command xqdb stores XML documents and evaluates FLWOR queries over them.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/xqdb/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "xqdb: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
