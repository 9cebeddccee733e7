package vidfetch

import "errors"

// Registry errors.
var (
	ErrDuplicateBackend = errors.New("duplicate backend name")
	ErrInvalidBackend   = errors.New("invalid backend")
	ErrNoMatch          = errors.New("no backend matched the input")
	ErrUnknownBackend   = errors.New("unknown backend")
)

// Pipeline failure taxonomy. The HTTP layer maps ErrInvalidInput to a 4xx
// response and everything else to a generic 5xx; wrapped detail is for
// server-side logs only and never crosses the trust boundary.
var (
	// ErrInvalidInput is a caller error: a missing URL or encoding ID.
	ErrInvalidInput = errors.New("invalid input")
	// ErrResolutionFailed means the extractor could not produce metadata for
	// the URL (private, restricted, invalid, unsupported).
	ErrResolutionFailed = errors.New("could not resolve URL")
	// ErrExtractionFailed means the media fetch itself failed.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrArtifactMissing means the fetch reported success but the expected
	// output file is not on disk (e.g. muxing produced a different name).
	ErrArtifactMissing = errors.New("downloaded artifact missing")
	// ErrInternal is the unclassified bucket: failures of this process
	// itself rather than of the caller or the upstream site.
	ErrInternal = errors.New("internal error")
)
