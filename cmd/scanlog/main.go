package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/scanlog/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Command failures are already reported by the output formatter.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
