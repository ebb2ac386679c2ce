package main

import (
	"os"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
