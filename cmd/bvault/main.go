package main

import (
	"os"

	"github.com/keshon/bvault/internal/command"
	_ "github.com/keshon/bvault/internal/command/all"
)

func main() {
	os.Exit(command.RunCLI(os.Args[1:]))
}
