// Package main is the single-binary entrypoint for Blank.
// One binary serves the dashboard API and drives progression from the shell.
package main

import "github.com/blank-marketing/blank/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
