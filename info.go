package vidfetch

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultTitle is used when the extractor reports no title.
const DefaultTitle = "No title"

// InfoService answers "what can I download from this URL".
type InfoService struct {
	registry *Registry
	log      *zap.Logger
}

func NewInfoService(registry *Registry, logger *zap.Logger) *InfoService {
	if logger == nil {
		logger = zap.L()
	}
	return &InfoService{
		registry: registry,
		log:      logger.Named("info"),
	}
}

// Resolve probes the URL in metadata-only mode and builds a VideoCatalog.
// The wrapped extractor error detail is logged, never surfaced: callers get
// ErrInvalidInput or ErrResolutionFailed and nothing site-specific.
func (s *InfoService) Resolve(ctx context.Context, url string) (*VideoCatalog, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}

	match, err := s.registry.Match(url)
	if err != nil {
		s.log.Warn("no extractor for URL", zap.String("url", url), zap.Error(err))
		return nil, ErrResolutionFailed
	}

	info, err := match.Extractor.Probe(ctx)
	if err != nil {
		s.log.Error("probe failed",
			zap.String("url", url),
			zap.String("backend", match.BackendName),
			zap.Error(err))
		return nil, ErrResolutionFailed
	}

	formats, dropped := SelectFormats(info.Encodings)
	if dropped > 0 {
		s.log.Debug("excluded encodings with unresolvable height",
			zap.String("url", url), zap.Int("dropped", dropped))
	}

	title := info.Title
	if title == "" {
		title = DefaultTitle
	}

	s.log.Info("resolved URL",
		zap.String("url", url),
		zap.String("backend", match.BackendName),
		zap.String("title", title),
		zap.Int("formats", len(formats)))

	return &VideoCatalog{
		Title:       title,
		Thumbnail:   info.Thumbnail,
		Formats:     formats,
		OriginalURL: url,
	}, nil
}
