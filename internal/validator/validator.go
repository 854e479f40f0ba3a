// Package validator checks that external dependencies are available before a run
package validator

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/reelsmith/reelsmith/internal/utils"
)

// ExternalTool represents an external command-line tool requirement
type ExternalTool struct {
	Name        string
	VersionArgs []string
	Validate    func(output string) bool
}

// requiredTools is a list of external tools that must be installed
var requiredTools = []ExternalTool{
	{
		Name:        "ffmpeg",
		VersionArgs: []string{"-version"},
		Validate: func(output string) bool {
			return strings.Contains(output, "ffmpeg version")
		},
	},
	{
		Name:        "ffprobe",
		VersionArgs: []string{"-version"},
		Validate: func(output string) bool {
			return strings.Contains(output, "ffprobe version")
		},
	},
}

// execCommand allows us to mock exec.Command in tests
var execCommand = exec.Command

// ValidateExternalTools checks that all required external tools are installed
func ValidateExternalTools() error {
	for _, tool := range requiredTools {
		if _, err := utils.ExecLookPath(tool.Name); err != nil {
			return fmt.Errorf("%s is not installed or not in PATH", tool.Name)
		}

		output, err := execCommand(tool.Name, tool.VersionArgs...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("failed to run %s: %w", tool.Name, err)
		}

		if !tool.Validate(string(output)) {
			return fmt.Errorf("%s version check produced unexpected output", tool.Name)
		}

		utils.LogVerbose("Found %s", tool.Name)
	}

	return nil
}

// ValidateEnvVars warns about missing API key environment variables.
// The keys may also come from the config file, so absence is not fatal here.
func ValidateEnvVars() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		utils.LogWarning("GEMINI_API_KEY is not set; generation.api_key must be present in the config file")
	}
	if os.Getenv("ELEVENLABS_API_KEY") == "" {
		utils.LogWarning("ELEVENLABS_API_KEY is not set; tts.api_key must be present in the config file")
	}
	return nil
}
