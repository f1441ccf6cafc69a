// Command marketctl queries the market dashboard from the terminal.
// It wires the same cache store and sources as the server, so results
// populate and reuse the shared cache.db.
package main

import (
	"fmt"
	"os"

	"github.com/aristath/marketboard/internal/config"
)

func main() {
	if err := newRootCmd(os.Stdout, config.Load).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
