package main

import (
	"os"

	"github.com/seastarlegal/seastar/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
