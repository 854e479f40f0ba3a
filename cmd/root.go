package cmd

import (
	"github.com/reelsmith/reelsmith/internal/utils"

	"github.com/spf13/cobra"
)

var (
	// verbosityLevel is the command-line flag for setting the log level
	verbosityLevel string
)

var rootCmd = &cobra.Command{
	Use:   "reelsmith",
	Short: "Generate short vertical videos from a topic",
	Long: `Reelsmith produces ready-to-post vertical videos: it writes a short
narration, synthesizes a voiceover, cuts a random window from your
background footage, burns captions, and optionally uploads the result.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set the global log level based on the flag
		logLevel := utils.LogLevelFromString(verbosityLevel)
		utils.SetLogLevel(logLevel)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Initialize global flags
	rootCmd.PersistentFlags().StringVarP(&verbosityLevel, "log-level", "l", "normal",
		"Set the logging verbosity level: quiet, normal, verbose, debug")
}
