package cmd

import (
	"fmt"

	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/utils"
	"github.com/reelsmith/reelsmith/internal/validator"

	"github.com/spf13/cobra"
)

var validateConfigPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate environment setup",
	Long:  `Check that the required external tools, API keys and configuration are properly set up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		utils.LogInfo("Validating environment...")

		// Validate external tools (ffmpeg, ffprobe)
		if err := validator.ValidateExternalTools(); err != nil {
			return fmt.Errorf("external tools validation failed: %w", err)
		}
		utils.LogSuccess("External tools: OK")

		// Validate environment variables for the remote services
		if err := validator.ValidateEnvVars(); err != nil {
			return fmt.Errorf("environment variables validation failed: %w", err)
		}
		utils.LogSuccess("Environment variables: OK")

		if _, err := config.Load(validateConfigPath); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		utils.LogSuccess("Configuration: OK")

		utils.LogSuccess("Environment validation completed successfully")
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigPath, "config", "c", "config.yaml", "Path to the configuration file")
	rootCmd.AddCommand(validateCmd)
}
