package vidfetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vidfetch/vidfetch/workspace"
)

func testWorkspace(t *testing.T) *workspace.Manager {
	t.Helper()
	ws := workspace.New(filepath.Join(t.TempDir(), "scratch"), zap.NewNop())
	require.NoError(t, ws.Init())
	return ws
}

// writingFake returns a fake extractor whose Fetch writes content at the
// requested output path, like a well-behaved downloader.
func writingFake(title, content string) *fakeExtractor {
	return &fakeExtractor{
		info: &MediaInfo{Title: title},
		onFetch: func(req FetchRequest) error {
			return os.WriteFile(req.OutputPath, []byte(content), 0o644)
		},
	}
}

func workspaceEntries(t *testing.T, ws *workspace.Manager) int {
	t.Helper()
	entries, err := os.ReadDir(ws.Path())
	require.NoError(t, err)
	return len(entries)
}

func TestMaterializeValidatesInput(t *testing.T) {
	assert := assert.New(t)
	fake := writingFake("x", "y")
	o := NewOrchestrator(registryWith(t, fake), testWorkspace(t), zap.NewNop())

	for _, args := range [][2]string{
		{"", "22"},
		{"https://example.com/v/1", ""},
		{"", ""},
	} {
		artifact, err := o.Materialize(context.Background(), args[0], args[1])
		assert.Nil(artifact)
		assert.ErrorIs(err, ErrInvalidInput)
	}
	assert.Zero(fake.fetchCall)
}

func TestMaterializeStreamsAndCleansUp(t *testing.T) {
	assert := assert.New(t)
	ws := testWorkspace(t)
	fake := writingFake("Some Video", "media bytes")
	o := NewOrchestrator(registryWith(t, fake), ws, zap.NewNop())

	artifact, err := o.Materialize(context.Background(), "https://example.com/v/1", "22")
	require.NoError(t, err)
	assert.Equal("Some Video.mp4", artifact.Name)
	assert.EqualValues(len("media bytes"), artifact.Size)

	data, err := io.ReadAll(artifact)
	require.NoError(t, err)
	assert.Equal("media bytes", string(data))

	require.NoError(t, artifact.Close())
	assert.Zero(workspaceEntries(t, ws), "artifact must be deleted after full consumption")
}

func TestMaterializeCleansUpOnAbort(t *testing.T) {
	assert := assert.New(t)
	ws := testWorkspace(t)
	o := NewOrchestrator(registryWith(t, writingFake("Some Video", "media bytes")), ws, zap.NewNop())

	artifact, err := o.Materialize(context.Background(), "https://example.com/v/1", "22")
	require.NoError(t, err)

	// Consumer aborts mid-stream.
	buf := make([]byte, 4)
	_, err = artifact.Read(buf)
	require.NoError(t, err)
	require.NoError(t, artifact.Close())

	assert.Zero(workspaceEntries(t, ws), "artifact must be deleted after an aborted stream")
}

func TestMaterializeCloseIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	ws := testWorkspace(t)
	o := NewOrchestrator(registryWith(t, writingFake("v", "x")), ws, zap.NewNop())

	artifact, err := o.Materialize(context.Background(), "https://example.com/v/1", "22")
	require.NoError(t, err)
	assert.NoError(artifact.Close())
	assert.NoError(artifact.Close())
}

func TestMaterializeArtifactMissing(t *testing.T) {
	assert := assert.New(t)
	ws := testWorkspace(t)
	// Fetch "succeeds" but writes nothing, as when muxing silently produces
	// a differently-named output.
	fake := &fakeExtractor{info: &MediaInfo{Title: "Ghost"}}
	o := NewOrchestrator(registryWith(t, fake), ws, zap.NewNop())

	artifact, err := o.Materialize(context.Background(), "https://example.com/v/1", "22")
	assert.Nil(artifact)
	assert.ErrorIs(err, ErrArtifactMissing)
	assert.Zero(workspaceEntries(t, ws), "failed job dir must be discarded")
}

func TestMaterializeFetchFailure(t *testing.T) {
	assert := assert.New(t)
	ws := testWorkspace(t)
	fake := &fakeExtractor{
		info:     &MediaInfo{Title: "Broken"},
		fetchErr: fmt.Errorf("network exploded"),
	}
	o := NewOrchestrator(registryWith(t, fake), ws, zap.NewNop())

	artifact, err := o.Materialize(context.Background(), "https://example.com/v/1", "22")
	assert.Nil(artifact)
	assert.ErrorIs(err, ErrExtractionFailed)
	assert.NotContains(err.Error(), "network exploded")
	assert.Zero(workspaceEntries(t, ws))
}

func TestMaterializeBackToBackJobs(t *testing.T) {
	assert := assert.New(t)
	ws := testWorkspace(t)
	fake := writingFake("Same Title", "payload")
	o := NewOrchestrator(registryWith(t, fake), ws, zap.NewNop())

	for _, formatID := range []string{"22", "137"} {
		artifact, err := o.Materialize(context.Background(), "https://example.com/v/1", formatID)
		require.NoError(t, err)
		data, err := io.ReadAll(artifact)
		require.NoError(t, err)
		assert.Equal("payload", string(data))
		require.NoError(t, artifact.Close())
	}
	assert.Zero(workspaceEntries(t, ws), "no leftover files after both jobs complete")
}

func TestMaterializeRequestsAudioMergeIntoTargetContainer(t *testing.T) {
	assert := assert.New(t)
	var got FetchRequest
	fake := &fakeExtractor{
		info: &MediaInfo{Title: "Video"},
		onFetch: func(req FetchRequest) error {
			got = req
			return os.WriteFile(req.OutputPath, []byte("x"), 0o644)
		},
	}
	o := NewOrchestrator(registryWith(t, fake), testWorkspace(t), zap.NewNop())

	artifact, err := o.Materialize(context.Background(), "https://example.com/v/1", "137")
	require.NoError(t, err)
	defer artifact.Close()

	assert.Equal("137", got.EncodingID)
	assert.Equal(TargetContainer, got.Container)
	assert.Equal(".mp4", filepath.Ext(got.OutputPath))
	assert.NotNil(got.Progress)
}
