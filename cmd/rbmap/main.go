// Package main provides the entry point for the rbmap CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbmap/cmd/rbmap/commands"
	"github.com/Sumatoshi-tech/rbmap/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "rbmap",
		Short: "rbmap - red-black tree ordered map toolkit",
		Long: `rbmap exercises the arena-backed red-black tree map.

Commands:
  workout   Randomized stress run checked against a reference model
  config    Show the effective configuration or its schema`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewWorkoutCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rbmap %s\n", version.String())
		},
	}
}
