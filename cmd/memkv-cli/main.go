package main

import (
	"errors"
	"os"

	"github.com/yndnr/memkv/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		command.PrintError(os.Stderr, err)
		if errors.Is(err, command.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
