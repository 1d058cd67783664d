// Package main is the entry point for the comps-server.
package main

import (
	"os"

	"github.com/donaldgifford/fliplens-comps/cmd/comps-server/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
