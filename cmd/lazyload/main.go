package main

import (
	"os"

	"github.com/abihf/lazy-loader/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
