// Package workspace owns the lifecycle of the scratch directory used for
// in-flight downloads. The directory is wiped and recreated once at process
// start; each download job gets its own uuid-keyed subdirectory so that
// concurrent jobs can never collide on title-derived filenames.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Manager struct {
	dir string
	log *zap.Logger
}

// New returns a Manager rooted at dir. Call Init before handing the Manager
// to other components.
func New(dir string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.L()
	}
	return &Manager{dir: dir, log: logger.Named("workspace")}
}

// Init removes any leftover contents from a previous run and (re)creates the
// scratch directory empty. It must be called exactly once, during process
// bootstrap, never as an import side effect.
func (m *Manager) Init() error {
	if _, err := os.Stat(m.dir); err == nil {
		m.log.Info("removing existing workspace", zap.String("dir", m.dir))
		if err := os.RemoveAll(m.dir); err != nil {
			return fmt.Errorf("failed to remove workspace: %w", err)
		}
	}
	m.log.Info("creating workspace", zap.String("dir", m.dir))
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

// Path returns the scratch directory for other components to write into.
func (m *Manager) Path() string {
	return m.dir
}

// NewJob allocates a fresh job directory under the workspace.
func (m *Manager) NewJob() (*JobDir, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.dir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create job dir: %w", err)
	}
	return &JobDir{id: id, dir: dir}, nil
}

// A JobDir is the private scratch area of one download job.
type JobDir struct {
	id  string
	dir string
}

func (j *JobDir) ID() string {
	return j.id
}

func (j *JobDir) Path() string {
	return j.dir
}

// File returns the path of name inside the job directory.
func (j *JobDir) File(name string) string {
	return filepath.Join(j.dir, name)
}

// Remove deletes the job directory and everything in it. Safe to call when
// the directory is already gone.
func (j *JobDir) Remove() error {
	return os.RemoveAll(j.dir)
}
