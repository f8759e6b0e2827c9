package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/polar-client/cmd/polar/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := commands.NewRootCommand(version, commit, date)

	cobra.OnInitialize(commands.InitConfig)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
