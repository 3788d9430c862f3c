package main

import (
	"os"

	"github.com/Use-Tusk/tusk-harness/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
