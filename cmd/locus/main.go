// Package main provides the entry point for the locus CLI.
package main

import (
	"os"

	"github.com/locus-search/locus/cmd/locus/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
