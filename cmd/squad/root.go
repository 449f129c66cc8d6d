package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "squad",
	Short: "Agent team orchestrator with tier routing and quality gates",
	Long: `Squad assembles teams of analysis agents from declarative templates,
runs them under parallel, sequential, or refinement strategies, routes
each agent across a cheap/capable/premium tier ladder with automatic
escalation and circuit breaking, and aggregates the results into a
weighted score, grade, and release-readiness report.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
