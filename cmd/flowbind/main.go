package main

import (
	"fmt"
	"os"

	"bindgraph/internal/cliapp"
)

// main is a deterministic boundary: it hands off to the cobra command tree
// and reports the outcome with no engine logic of its own.
func main() {
	if err := cliapp.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
