// Package main is the entry point for the mcpm CLI.
package main

import (
	"os"

	"github.com/thoreinstein/mcpm/cmd/mcpm/commands"
	"github.com/thoreinstein/mcpm/internal/errors"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintError(os.Stderr, err)
		os.Exit(errors.ExitCode(err))
	}
}
