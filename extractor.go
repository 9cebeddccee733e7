package vidfetch

import (
	"context"
)

// An Encoding is one concrete (container, codec, resolution) variant of a
// video available from the source, as reported by an extractor's Probe.
type Encoding struct {
	// ID is the extractor-specific identifier used to select this encoding
	// for a later Fetch (e.g. a yt-dlp format_id or a YouTube itag).
	ID string
	// Container is the file extension of the encoding, e.g. "mp4".
	Container string
	HasVideo  bool
	HasAudio  bool
	// Resolution is the original human-readable resolution string, e.g.
	// "1920x1080" or "720p". May be empty or "none".
	Resolution string
	// Height in pixels, if the extractor reports it separately.
	Height int
	// Filesize in bytes if known exactly, otherwise 0.
	Filesize int64
	// FilesizeApprox in bytes if only an estimate is known, otherwise 0.
	FilesizeApprox int64
}

// MediaInfo is the metadata an extractor returns for a source URL.
type MediaInfo struct {
	Title     string
	Thumbnail string
	Encodings []Encoding
}

// A ProgressSink observes download progress. Implementations must be
// side-effect-only; extractors never make control-flow decisions based on it.
type ProgressSink interface {
	// Progress reports a completion percentage in [0, 100].
	Progress(percent float64)
}

// ProgressFunc adapts a function to the ProgressSink interface.
type ProgressFunc func(percent float64)

func (f ProgressFunc) Progress(percent float64) { f(percent) }

// A FetchRequest tells an extractor to materialize one encoding on disk.
type FetchRequest struct {
	// EncodingID selects the video encoding. The extractor combines it with
	// the best available audio track and muxes into Container if the
	// selected encoding has no audio of its own.
	EncodingID string
	// OutputPath is the exact file path the artifact must end up at. Its
	// extension is always the target container's.
	OutputPath string
	// Container is the target delivery container, e.g. "mp4".
	Container string
	// Progress receives completion updates; may be nil.
	Progress ProgressSink
}

// An Extractor knows how to read metadata and media from one source URL.
// Implementations are created per-URL by a MatchFunc registered with a
// Registry.
type Extractor interface {
	// URL returns the canonical URL for this source. It is assumed that the
	// MatchFunc that created the Extractor would match this canonical URL.
	URL() string
	// Probe fetches metadata only; it must never download any media.
	Probe(ctx context.Context) (*MediaInfo, error)
	// Fetch downloads the encoding selected by req, merged with audio and
	// muxed to req.Container, writing the result to req.OutputPath.
	Fetch(ctx context.Context, req FetchRequest) error
}
