// Command assetpipe runs the incremental asset pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/assetpipe/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
