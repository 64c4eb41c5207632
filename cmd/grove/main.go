package main

import (
	"fmt"
	"os"

	"github.com/roach88/grove/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	root := cli.NewRootCommand()
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
