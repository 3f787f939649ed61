package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/hugo-lorenzo-mato/pipeline-samples/cmd/pipeline-samples/cmd"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/command"
)

// Version information - set by goreleaser at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersion(version, commit, date)

	if err := cmd.Execute(); err != nil {
		// A failed sample command already logged its outcome.
		var exitErr *command.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
