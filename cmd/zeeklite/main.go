package main

import (
	"os"

	"github.com/seward/zeeklite/cmd/zeeklite/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
