// This is the main entry point for the confstage CLI.
// Build with: go build -o bin/confstage ./cmd/confstage
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
