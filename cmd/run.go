package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/pipeline"
	"github.com/reelsmith/reelsmith/internal/utils"
	"github.com/reelsmith/reelsmith/internal/validator"

	"github.com/spf13/cobra"
)

var (
	configFilePath string
	sourceFlag     string
	seedFlag       int64
	durationFlag   int
	skipUploadFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Produce one video end to end",
	Long: `Run the full pipeline once: select a clip window, generate a script,
synthesize the voiceover, burn captions, encode, and optionally upload.
When no topic is given on the command line, it is read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate that external dependencies are installed
		if err := validator.ValidateExternalTools(); err != nil {
			return fmt.Errorf("dependency validation failed: %w", err)
		}

		cfg, err := config.Load(configFilePath)
		if err != nil {
			return pipeline.NewStageError(pipeline.StageConfig, err)
		}

		var topic string
		if len(args) > 0 {
			topic = args[0]
		} else {
			topic = promptTopic()
		}

		p, err := pipeline.New(cfg)
		if err != nil {
			return pipeline.NewStageError(pipeline.StageConfig, err)
		}

		result, err := p.Execute(cmd.Context(), pipeline.RunOptions{
			Topic:       topic,
			Source:      sourceFlag,
			Seed:        seedFlag,
			DurationSec: durationFlag,
			SkipUpload:  skipUploadFlag,
		})
		if err != nil {
			return err
		}

		utils.LogSuccess("Done: %s", result.Video)
		if !result.Uploaded {
			utils.LogInfo("The video was kept local. Artifacts are in %s", result.RunDir)
		}
		return nil
	},
}

// promptTopic reads the topic from stdin. An empty line lets the model choose.
func promptTopic() string {
	fmt.Print("Topic (leave empty to let the model choose): ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func init() {
	runCmd.Flags().StringVarP(&configFilePath, "config", "c", "config.yaml", "Path to the configuration file")
	runCmd.Flags().StringVar(&sourceFlag, "source", "", "Content source: model, reddit or askreddit (overrides the config)")
	runCmd.Flags().Int64VarP(&seedFlag, "seed", "s", 0, "Random seed for reproducible clip selection (0 = time-based)")
	runCmd.Flags().IntVarP(&durationFlag, "duration", "d", 0, "Clip window length in seconds (overrides the config)")
	runCmd.Flags().BoolVar(&skipUploadFlag, "skip-upload", false, "Keep the result local even if uploads are configured")
	rootCmd.AddCommand(runCmd)
}
