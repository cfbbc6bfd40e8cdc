package main

import (
	"os"

	"github.com/stonelabs/webduino-generator/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
