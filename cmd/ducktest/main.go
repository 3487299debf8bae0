package main

import (
	"os"

	"github.com/solatis/ducktest/cmd/ducktest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
