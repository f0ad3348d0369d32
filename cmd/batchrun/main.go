package main

import (
	"errors"
	"os"

	"github.com/rshade/batchrun/internal/cli"
	"github.com/rshade/batchrun/pkg/version"
)

func run() error {
	root := cli.NewRootCmd(version.GetVersion())
	return root.Execute()
}

// extractExitCode maps a command error to a process exit code. ExitError
// carries its own code; any other error exits 1. Cobra has already printed
// the error by the time this runs.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode
	}
	return 1
}

func main() {
	if err := run(); err != nil {
		os.Exit(extractExitCode(err))
	}
}
