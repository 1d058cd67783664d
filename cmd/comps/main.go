// Package main is the entry point for the comps CLI client.
package main

import (
	"github.com/donaldgifford/fliplens-comps/cmd/comps/cmd"
)

func main() {
	cmd.Execute()
}
