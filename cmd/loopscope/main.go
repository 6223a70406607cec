// Package main is the entry point for the loopscope CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "loopscope",
		Short:   "loopscope — live monitor for agentic coding sessions",
		Version: version,
	}

	root.AddCommand(
		watchCmd(),
		runCmd(),
		initCmd(),
		lastCmd(),
	)

	return root
}
