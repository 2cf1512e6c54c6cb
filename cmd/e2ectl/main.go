package main

import (
	"github.com/marmos91/screening-e2e/cmd/e2ectl/commands"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		commands.Exit("Error: %v", err)
	}
}
