package main

import (
	"zangarmarsh/cmd" // CLI commands and execution logic
)

// main is the program entry point. It delegates to cmd.Execute, which
// parses flags and runs the installer.
//
// talent-calculator keeps a workstation at a declared set of command line
// tools. It installs through Homebrew where it can and through a small set
// of custom strategies (pipx, install scripts, release archives) where it
// cannot. Every run is idempotent: tools already on PATH are left alone
// unless a full reinstall is requested.
func main() {
	cmd.Execute()
}
