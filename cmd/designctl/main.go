// Command designctl inspects the furniture catalog and moves archived design
// states in and out of the SQL database.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	_ = godotenv.Load()
	if err := newCLIApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
