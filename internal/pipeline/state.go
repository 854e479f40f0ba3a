package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StageRecord captures the outcome of one executed stage
type StageRecord struct {
	Name       string `json:"name"`
	Status     string `json:"status"` // "completed" or "failed"
	StartedAt  string `json:"startedAt"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

// RunState is the persisted record of a pipeline run. It is written to
// run.json in the run directory after every stage so an aborted run still
// leaves a usable trace.
type RunState struct {
	ID          string            `json:"id"`
	Topic       string            `json:"topic,omitempty"`
	Seed        int64             `json:"seed,omitempty"`
	StartedAt   string            `json:"startedAt"`
	CompletedAt string            `json:"completedAt,omitempty"`
	Stages      []StageRecord     `json:"stages"`
	Artifacts   map[string]string `json:"artifacts"`
}

// NewRunState creates the state for a fresh run
func NewRunState(id, topic string, seed int64) *RunState {
	return &RunState{
		ID:        id,
		Topic:     topic,
		Seed:      seed,
		StartedAt: time.Now().Format(time.RFC3339),
		Artifacts: make(map[string]string),
	}
}

// RecordStage appends the outcome of a stage execution
func (s *RunState) RecordStage(stage Stage, startedAt time.Time, err error) {
	record := StageRecord{
		Name:       string(stage),
		Status:     "completed",
		StartedAt:  startedAt.Format(time.RFC3339),
		DurationMs: time.Since(startedAt).Milliseconds(),
	}
	if err != nil {
		record.Status = "failed"
		record.Error = err.Error()
	}
	s.Stages = append(s.Stages, record)
}

// AddArtifacts merges stage outputs that point at files into the artifact map
func (s *RunState) AddArtifacts(outputs map[string]string) {
	for name, value := range outputs {
		if filepath.IsAbs(value) || fileExists(value) {
			s.Artifacts[name] = value
		}
	}
}

// Save writes the state to run.json in the given directory
func (s *RunState) Save(dir string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}

	path := filepath.Join(dir, "run.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run state: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
