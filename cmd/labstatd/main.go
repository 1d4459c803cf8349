// labstatd ingests experiment measurement files and serves their summaries.
package main

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags
var Version = "dev"

func init() {
	_, err := maxprocs.Set(maxprocs.Logger(func(msg string, args ...any) {
		fmt.Fprintf(os.Stderr, msg+"\n", args...)
	}))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set maxprocs: %v\n", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
