package clipselect

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/reelsmith/reelsmith/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectWindow(t *testing.T) {
	tests := []struct {
		name       string
		totalSec   float64
		desiredSec float64
		wantErr    bool
		wantErrIs  error
	}{
		{
			name:       "window fits inside source",
			totalSec:   300,
			desiredSec: 60,
		},
		{
			name:       "exact fit starts at zero",
			totalSec:   60,
			desiredSec: 60,
		},
		{
			name:       "source too short",
			totalSec:   30,
			desiredSec: 60,
			wantErr:    true,
			wantErrIs:  ErrInsufficientSource,
		},
		{
			name:       "zero desired duration",
			totalSec:   300,
			desiredSec: 0,
			wantErr:    true,
		},
		{
			name:       "negative desired duration",
			totalSec:   300,
			desiredSec: -10,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			window, err := SelectWindow(tt.totalSec, tt.desiredSec, rng)

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantErrIs != nil {
					assert.ErrorIs(t, err, tt.wantErrIs)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.desiredSec, window.DurationSec)
			assert.GreaterOrEqual(t, window.StartSec, 0.0)
			assert.LessOrEqual(t, window.StartSec+window.DurationSec, tt.totalSec)
		})
	}
}

func TestSelectWindowBounds(t *testing.T) {
	const totalSec, desiredSec = 247.5, 60.0

	for seed := int64(0); seed < 200; seed++ {
		rng := rand.New(rand.NewSource(seed))
		window, err := SelectWindow(totalSec, desiredSec, rng)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, window.StartSec, 0.0, "seed %d", seed)
		assert.LessOrEqual(t, window.StartSec+window.DurationSec, totalSec, "seed %d", seed)
	}
}

func TestSelectWindowReproducible(t *testing.T) {
	const totalSec, desiredSec = 300.0, 45.0

	first, err := SelectWindow(totalSec, desiredSec, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	second, err := SelectWindow(totalSec, desiredSec, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPickSourceTracksUsage(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	m := &Module{}
	p := Params{
		InputDir:    dir,
		TrackUsage:  true,
		HistoryFile: filepath.Join(t.TempDir(), "used_content.json"),
	}

	rng := rand.New(rand.NewSource(1))
	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		source, err := m.pickSource(p, rng)
		require.NoError(t, err)
		assert.False(t, seen[source], "source %s picked twice before exhaustion", source)
		seen[source] = true
	}
	assert.Len(t, seen, 3)

	// Every source has been used once, the history resets and selection continues
	source, err := m.pickSource(p, rng)
	require.NoError(t, err)
	assert.True(t, seen[source])
}

func TestPickSourceEmptyDir(t *testing.T) {
	m := &Module{}
	p := Params{InputDir: t.TempDir()}

	_, err := m.pickSource(p, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrNoSourceVideos)
}

func TestValidate(t *testing.T) {
	origLookPath := utils.ExecLookPath
	utils.ExecLookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }
	defer func() { utils.ExecLookPath = origLookPath }()

	outDir := t.TempDir()

	tests := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
	}{
		{
			name: "valid parameters",
			params: map[string]interface{}{
				"inputDir":    t.TempDir(),
				"output":      outDir,
				"durationSec": 60.0,
			},
		},
		{
			name: "missing input directory",
			params: map[string]interface{}{
				"output":      outDir,
				"durationSec": 60.0,
			},
			wantErr: true,
		},
		{
			name: "non-positive duration",
			params: map[string]interface{}{
				"inputDir":    t.TempDir(),
				"output":      outDir,
				"durationSec": 0.0,
			},
			wantErr: true,
		},
	}

	m := &Module{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Validate(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func fakeExecCommand(ctx context.Context, command string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", command}
	cs = append(cs, args...)
	cmd := exec.Command(os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	fmt.Fprintln(os.Stdout, "123.456000")
	os.Exit(0)
}

func TestProbeDuration(t *testing.T) {
	origExec := execCommand
	execCommand = fakeExecCommand
	defer func() { execCommand = origExec }()

	duration, err := ProbeDuration(context.Background(), "video.mp4")
	require.NoError(t, err)
	assert.InDelta(t, 123.456, duration, 0.001)
}

func TestExecuteFailsWithoutSources(t *testing.T) {
	m := &Module{}
	_, err := m.Execute(context.Background(), map[string]interface{}{
		"inputDir":    t.TempDir(),
		"output":      t.TempDir(),
		"durationSec": 60.0,
		"seed":        int64(1),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSourceVideos))
}
