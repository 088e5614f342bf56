// Command journey runs the journey-lens companion: an HTTP server for the
// stage manifests, conversational turns and tool demonstrations, plus CLI
// helpers for asking, browsing tools and checking workflows.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
