// Package main is the entry point for the mudra CLI.
//
// Usage:
//
//	mudra [flags] <command> [args]
//
// Commands:
//
//	serve     - Run recognition, actions and the HTTP API
//	watch     - Print engine events from the configured sources
//	record    - Record a pose session for replay
//	gestures  - List, import and export gesture definitions
//	sources   - Show source backends and their availability
package main

import (
	"fmt"
	"os"

	"github.com/ayusman/mudra/cmd/mudra/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
