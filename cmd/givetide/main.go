// Command givetide is the entry point for the GiveTide fundraising advisor.
// It provides a CLI interface (via Cobra) and an optional HTTP server that
// exposes the advisor as a JSON API.
package main

import (
	"fmt"
	"os"

	"github.com/givetide/givetide-go/cmd/givetide/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
