package main

import (
	"os"

	"github.com/bluecorridor/driftcast/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
