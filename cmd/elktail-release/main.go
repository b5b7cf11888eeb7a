// Package main provides the elktail-release CLI, which cross-compiles elktail
// and packages one archive per target platform.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
