package main

import (
	"os"

	"github.com/piske-alex/mongoexpr/cmd/mongoexpr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
