// Command peakctl analyzes exported Twitch chat logs from the command line,
// without needing the API server or a database. Point it at a JSON chat
// export and it prints an activity timeline, the ranked peaks, and summary
// statistics.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// All linker flags will be set by release infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:           "peakctl",
	Short:         "Find chat activity peaks in Twitch VOD chat logs.",
	Long:          `Peakctl buckets chat messages into fixed windows, scores window-to-window jumps, and points you at the moments worth rewatching.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
