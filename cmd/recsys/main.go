package main

import (
	"os"

	"github.com/lamnt/fashionstore/cmd/recsys/commands"
)

// main is the entry point for the recsys CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
