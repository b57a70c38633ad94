package main

import (
	"os"

	"github.com/wiremockctl/wiremockctl/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
