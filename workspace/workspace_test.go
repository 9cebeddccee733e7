package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitWipesLeftovers(t *testing.T) {
	assert := assert.New(t)
	dir := filepath.Join(t.TempDir(), "scratch")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "old-job"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old-job", "stale.mp4"), []byte("x"), 0o644))

	m := New(dir, zap.NewNop())
	require.NoError(t, m.Init())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(entries, "workspace must start empty")
	assert.Equal(dir, m.Path())
}

func TestInitCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "scratch")
	m := New(dir, zap.NewNop())
	require.NoError(t, m.Init())

	stat, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
}

func TestNewJobAllocatesUniqueDirs(t *testing.T) {
	assert := assert.New(t)
	m := New(filepath.Join(t.TempDir(), "scratch"), zap.NewNop())
	require.NoError(t, m.Init())

	a, err := m.NewJob()
	require.NoError(t, err)
	b, err := m.NewJob()
	require.NoError(t, err)

	assert.NotEqual(a.ID(), b.ID())
	assert.NotEqual(a.Path(), b.Path())

	// Identical filenames in different jobs never collide.
	require.NoError(t, os.WriteFile(a.File("video.mp4"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(b.File("video.mp4"), []byte("b"), 0o644))
	data, err := os.ReadFile(a.File("video.mp4"))
	require.NoError(t, err)
	assert.Equal("a", string(data))
}

func TestJobRemoveIsIdempotent(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "scratch"), zap.NewNop())
	require.NoError(t, m.Init())

	job, err := m.NewJob()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(job.File("video.mp4"), []byte("x"), 0o644))

	assert.NoError(t, job.Remove())
	assert.NoError(t, job.Remove())
	_, err = os.Stat(job.Path())
	assert.True(t, os.IsNotExist(err))
}
