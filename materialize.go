package vidfetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/vidfetch/vidfetch/util"
	"github.com/vidfetch/vidfetch/workspace"
)

// An Artifact is the on-disk result of one materialize call, exposed as a
// byte stream. Closing it releases the file handle and deletes the backing
// job directory, exactly once, no matter how the stream ended.
type Artifact struct {
	// Name is the artifact's base filename, derived from the video title,
	// always carrying the target container extension.
	Name string
	// Size of the artifact in bytes.
	Size int64

	file    *os.File
	job     *workspace.JobDir
	log     *zap.Logger
	cleanup sync.Once
}

func (a *Artifact) Read(p []byte) (int, error) {
	return a.file.Read(p)
}

// Close releases the file handle and removes the job directory. Cleanup
// failures are logged, never returned: by the time Close runs the client has
// already received (or failed to receive) its bytes.
func (a *Artifact) Close() error {
	a.cleanup.Do(func() {
		var errs error
		if err := a.file.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
		if err := a.job.Remove(); err != nil {
			errs = multierror.Append(errs, err)
		}
		if errs != nil {
			a.log.Error("artifact cleanup failed",
				zap.String("job", a.job.ID()), zap.Error(errs))
		} else {
			a.log.Info("artifact cleaned up",
				zap.String("job", a.job.ID()), zap.String("name", a.Name))
		}
	})
	return nil
}

var _ io.ReadCloser = (*Artifact)(nil)

// Orchestrator materializes a chosen encoding into a local file and exposes
// it as a stream with guaranteed post-stream cleanup.
type Orchestrator struct {
	registry     *Registry
	workspace    *workspace.Manager
	fetchTimeout time.Duration
	progress     ProgressSink
	log          *zap.Logger
}

type OrchestratorOption func(*Orchestrator)

// WithFetchTimeout bounds the extractor's media fetch. Zero means unbounded.
func WithFetchTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.fetchTimeout = d
	}
}

// WithProgressSink injects an observer for download progress. It is
// side-effect-only; the orchestrator never acts on it.
func WithProgressSink(sink ProgressSink) OrchestratorOption {
	return func(o *Orchestrator) {
		o.progress = sink
	}
}

func NewOrchestrator(registry *Registry, ws *workspace.Manager, logger *zap.Logger, opts ...OrchestratorOption) *Orchestrator {
	if logger == nil {
		logger = zap.L()
	}
	o := &Orchestrator{
		registry:  registry,
		workspace: ws,
		log:       logger.Named("download"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.progress == nil {
		log := o.log
		o.progress = ProgressFunc(func(percent float64) {
			log.Debug("download progress", zap.Float64("percent", percent))
		})
	}
	return o
}

// Materialize produces the chosen encoding of url as a complete mp4 file and
// returns it as an Artifact stream. The caller must Close the Artifact; the
// backing file is deleted on Close no matter how much of it was read.
func (o *Orchestrator) Materialize(ctx context.Context, url, encodingID string) (*Artifact, error) {
	if strings.TrimSpace(url) == "" || strings.TrimSpace(encodingID) == "" {
		return nil, fmt.Errorf("%w: url and format id are required", ErrInvalidInput)
	}

	match, err := o.registry.Match(url)
	if err != nil {
		o.log.Warn("no extractor for URL", zap.String("url", url), zap.Error(err))
		return nil, ErrExtractionFailed
	}
	log := o.log.With(zap.String("url", url), zap.String("backend", match.BackendName))

	info, err := match.Extractor.Probe(ctx)
	if err != nil {
		log.Error("probe before fetch failed", zap.Error(err))
		return nil, ErrExtractionFailed
	}
	title := info.Title
	if title == "" {
		title = DefaultTitle
	}
	filename := util.SafeFileName(title) + "." + TargetContainer

	job, err := o.workspace.NewJob()
	if err != nil {
		log.Error("failed to allocate job dir", zap.Error(err))
		return nil, ErrInternal
	}
	outputPath := job.File(filename)

	fetchCtx := ctx
	if o.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, o.fetchTimeout)
		defer cancel()
	}

	log.Info("fetching", zap.String("format_id", encodingID), zap.String("output", outputPath))
	err = match.Extractor.Fetch(fetchCtx, FetchRequest{
		EncodingID: encodingID,
		OutputPath: outputPath,
		Container:  TargetContainer,
		Progress:   o.progress,
	})
	if err != nil {
		log.Error("fetch failed", zap.Error(err))
		o.discardJob(job)
		return nil, ErrExtractionFailed
	}

	stat, err := os.Stat(outputPath)
	if err != nil {
		// Muxing can silently produce a differently-named or missing output;
		// that is a download failure, not a crash.
		log.Error("artifact missing after fetch", zap.String("expected", outputPath), zap.Error(err))
		o.discardJob(job)
		return nil, ErrArtifactMissing
	}

	file, err := os.Open(outputPath)
	if err != nil {
		log.Error("failed to open artifact", zap.Error(err))
		o.discardJob(job)
		return nil, ErrInternal
	}

	log.Info("artifact ready", zap.String("name", filename), zap.Int64("size", stat.Size()))
	return &Artifact{
		Name: filename,
		Size: stat.Size(),
		file: file,
		job:  job,
		log:  log,
	}, nil
}

func (o *Orchestrator) discardJob(job *workspace.JobDir) {
	if err := job.Remove(); err != nil {
		o.log.Warn("failed to discard job dir", zap.String("job", job.ID()), zap.Error(err))
	}
}
