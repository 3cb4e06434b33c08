// Command kronobergsbil-scraper crawls dealer pages, extracts vehicle and
// campaign data, and reconciles it into the catalog.
package main

import (
	"fmt"
	"os"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
