// Package main is the entry point for the geartap CLI.
//
// Usage:
//
//	geartap [flags] <command> [subcommand] [args]
//
// Commands:
//
//	shell      - Interactive serial terminal over the ring buffer
//	monitor    - Headless tap with a WebSocket monitor endpoint
//	watch      - Follow a running monitor from another terminal
//	send       - Play a transmit script against the link
//	sessions   - Capture session index (list, show, rm, archive)
//	config     - Configuration management (contexts, tap settings)
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/geartap/cmd/geartap/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
