package main

import (
	"os"

	"github.com/ke112/nice-image-compress/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
