package main

import (
	"os"

	"github.com/arbiter-systems/qagov/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
