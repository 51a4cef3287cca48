// Package main is the entry point for the njarctl CLI tool.
package main

import (
	"os"

	"github.com/nightjar-io/nightjar/cmd/njarctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
