package main

import (
	"fmt"
	"os"

	"github.com/tsawler/slidekit/config"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := newCLIApp(cfg, os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		// Commands report their own failures on the status line.
		os.Exit(1)
	}
}
