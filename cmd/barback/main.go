// Package main provides the barback CLI for browsing a locally cached
// cocktail catalog and keeping it fresh.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
