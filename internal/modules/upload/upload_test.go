package upload

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInstagram records calls instead of talking to the network
type fakeInstagram struct {
	loginErr  error
	uploadErr error
	loggedIn  bool
	caption   string
	video     string
}

func (f *fakeInstagram) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.loginErr
}

func (f *fakeInstagram) UploadReel(ctx context.Context, videoPath, thumbnailPath, caption string) (string, error) {
	f.video = videoPath
	f.caption = caption
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "REEL123", nil
}

// fakeYouTube records calls instead of talking to the network
type fakeYouTube struct {
	uploadErr  error
	authorized bool
	title      string
	tags       []string
	privacy    string
}

func (f *fakeYouTube) Authorize(ctx context.Context) error {
	f.authorized = true
	return nil
}

func (f *fakeYouTube) Upload(ctx context.Context, videoPath, title, description string, tags []string, privacy string) (string, error) {
	f.title = title
	f.tags = tags
	f.privacy = privacy
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "YT456", nil
}

// fakeExecCommand runs the test binary as a helper process that touches the
// requested thumbnail file
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
	for _, arg := range os.Args {
		if strings.HasSuffix(arg, ".jpg") {
			_ = os.WriteFile(arg, []byte("jpg"), 0644)
		}
	}
	os.Exit(0)
}

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "final.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video"), 0644))
	return path
}

func TestExecuteDisabledIsNoOp(t *testing.T) {
	video := writeVideo(t)

	m := &Module{}
	result, err := m.Execute(context.Background(), map[string]interface{}{
		"video": video,
	})
	require.NoError(t, err)

	assert.Equal(t, false, result.Metadata["uploaded"])
	assert.FileExists(t, video)
	assert.Empty(t, result.Outputs)
}

func TestExecuteInstagram(t *testing.T) {
	origExec := execCommand
	execCommand = fakeExecCommand
	defer func() { execCommand = origExec }()

	video := writeVideo(t)
	fake := &fakeInstagram{}
	ctx := context.WithValue(context.Background(), InstagramServiceKey, fake)

	m := &Module{}
	result, err := m.Execute(ctx, map[string]interface{}{
		"video":     video,
		"title":     "Deep Sea",
		"hashtags":  "#ocean #facts",
		"output":    filepath.Dir(video),
		"instagram": true,
		"username":  "user",
		"password":  "pass",
	})
	require.NoError(t, err)

	assert.True(t, fake.loggedIn)
	assert.Equal(t, video, fake.video)
	assert.Equal(t, "Deep Sea\n\n#ocean #facts", fake.caption)
	assert.Equal(t, "REEL123", result.Outputs["instagramCode"])
	assert.Equal(t, true, result.Metadata["uploaded"])
	assert.FileExists(t, video)
}

func TestExecuteYouTube(t *testing.T) {
	origExec := execCommand
	execCommand = fakeExecCommand
	defer func() { execCommand = origExec }()

	video := writeVideo(t)
	fake := &fakeYouTube{}
	ctx := context.WithValue(context.Background(), YouTubeServiceKey, fake)

	m := &Module{}
	result, err := m.Execute(ctx, map[string]interface{}{
		"video":           video,
		"title":           "Deep Sea",
		"story":           "The ocean hides things.",
		"hashtags":        "#ocean #facts",
		"output":          filepath.Dir(video),
		"youtube":         true,
		"credentialsFile": "client_secret.json",
	})
	require.NoError(t, err)

	assert.True(t, fake.authorized)
	assert.Equal(t, "Deep Sea", fake.title)
	assert.Equal(t, []string{"#ocean", "#facts"}, fake.tags)
	assert.Equal(t, "private", fake.privacy)
	assert.Equal(t, "YT456", result.Outputs["youtubeID"])
}

func TestExecuteFailureKeepsFile(t *testing.T) {
	origExec := execCommand
	execCommand = fakeExecCommand
	defer func() { execCommand = origExec }()

	video := writeVideo(t)
	fake := &fakeInstagram{uploadErr: errors.New("network down")}
	ctx := context.WithValue(context.Background(), InstagramServiceKey, fake)

	m := &Module{}
	_, err := m.Execute(ctx, map[string]interface{}{
		"video":     video,
		"output":    filepath.Dir(video),
		"instagram": true,
		"username":  "user",
		"password":  "pass",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instagram upload failed")

	// The encoded file survives a failed upload
	assert.FileExists(t, video)
}

func TestBuildThumbnailArgs(t *testing.T) {
	args := buildThumbnailArgs("final.mp4", "thumbnail.jpg")
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-ss 1")
	assert.Contains(t, joined, "-i final.mp4")
	assert.Contains(t, joined, "-vframes 1")

	// Options placed after the output file are silently ignored by ffmpeg
	assert.Equal(t, "thumbnail.jpg", args[len(args)-1])
}

func TestValidate(t *testing.T) {
	video := writeVideo(t)

	tests := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
	}{
		{
			name:   "uploads disabled",
			params: map[string]interface{}{"video": video},
		},
		{
			name: "instagram without credentials",
			params: map[string]interface{}{
				"video":     video,
				"instagram": true,
			},
			wantErr: true,
		},
		{
			name: "youtube without credentials file",
			params: map[string]interface{}{
				"video":           video,
				"youtube":         true,
				"credentialsFile": "",
			},
			wantErr: true,
		},
		{
			name:    "missing video",
			params:  map[string]interface{}{"video": "does-not-exist.mp4"},
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
