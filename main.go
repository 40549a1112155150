// SPDX-License-Identifier: MIT
package main

import (
	"os"

	"audioscope/cmd"
	applog "audioscope/internal/log"
	"audioscope/pkg/build"
)

// main is the entry point. Startup resolves build information; everything
// else, including configuration and logging, happens in the chosen command.
func main() {
	if err := build.Initialize(); err != nil {
		applog.Fatalf("Build: %v", err)
	}

	if err := cmd.Execute(os.Args[1:]); err != nil {
		applog.Fatalf("%v", err)
	}
}
