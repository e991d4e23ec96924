// Command janus is the CLI entry point for the reversible runtime.
package main

import (
	"fmt"
	"os"

	"github.com/janus-vm/janus/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
