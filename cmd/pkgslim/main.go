// Package main implements the pkgslim CLI.
// It provides commands for analyzing an entry script's import graph,
// pruning unreachable files from installed packages, and reversing or
// confirming those prunes.
package main

import (
	"os"

	"github.com/pkgslim/pkgslim/cmd/pkgslim/commands"
)

var version = "dev"

func main() {
	commands.RootCmd.Version = version
	commands.RootCmd.SetVersionTemplate(`pkgslim version {{.Version}}
`)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
