// Command dashboard builds the Ontario COVID-19 dashboard from the open
// data published on data.ontario.ca.
package main

import (
	"fmt"
	"os"
)

// Set with -ldflags by build.go
var (
	Version   = "dev"
	BuildTime = ""
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
