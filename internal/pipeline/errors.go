package pipeline

import "fmt"

// Stage identifies one step of the production pipeline
type Stage string

const (
	StageConfig    Stage = "config"
	StageSource    Stage = "source"
	StageScript    Stage = "script"
	StageVoiceover Stage = "voiceover"
	StageSubtitles Stage = "subtitles"
	StageCompose   Stage = "compose"
	StageEncode    Stage = "encode"
	StageUpload    Stage = "upload"
)

// StageError wraps a failure with the stage it happened in. The pipeline
// stops at the first failing stage, so one run produces at most one.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with its originating stage
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
