// Command snapindex is the CLI entry point for the export indexer.
package main

import (
	"os"

	"github.com/snapindex/snapindex/cmd/snapindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
