// Package main provides the entry point for the markdownkeeper CLI.
package main

import (
	"os"

	"github.com/markdownkeeper/markdownkeeper/cmd/markdownkeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
