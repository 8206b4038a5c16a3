// Package cli defines the onboard command tree. Service instances are wired
// into package-level variables by internal.NewApp before Execute runs.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Conversational onboarding data collection",
	Long: `onboard is the field-collection core of a voice onboarding agent.

It validates and stores four onboarding fields (name, email, phone, country)
collected turn by turn through a conversation, persists each session durably,
and exposes the whole protocol as MCP tools for a conversation driver.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("onboard %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
