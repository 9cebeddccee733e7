package vidfetch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// TargetContainer is the only delivery container surfaced to clients;
	// fetches mux into it as well.
	TargetContainer = "mp4"
	// MinHeight is the quality floor: encodings below 720p are noise for the
	// purposes of this service and are never surfaced.
	MinHeight = 720
)

// A FormatOption is the client-facing projection of an Encoding that
// survived filtering.
type FormatOption struct {
	FormatID   string `json:"format_id"`
	Resolution string `json:"resolution"`
	// Filesize is nil when neither an exact nor an approximate size is known.
	Filesize *int64 `json:"filesize"`
}

// A VideoCatalog is the answer to "what can I download from this URL".
type VideoCatalog struct {
	Title       string         `json:"title"`
	Thumbnail   string         `json:"thumbnail"`
	Formats     []FormatOption `json:"formats"`
	OriginalURL string         `json:"original_url"`
}

// SelectFormats filters and ranks raw encodings into client-facing format
// options: target-container encodings with a video track and a resolvable
// height of at least MinHeight, sorted by descending height (stable for equal
// heights). Encodings whose height cannot be resolved are silently excluded;
// dropped reports how many were excluded that way, for observability only.
func SelectFormats(encodings []Encoding) (formats []FormatOption, dropped int) {
	type ranked struct {
		option FormatOption
		height int
	}
	var survivors []ranked
	for _, enc := range encodings {
		if enc.Container != TargetContainer || !enc.HasVideo {
			continue
		}
		label := enc.Resolution
		if label == "" || label == "none" {
			if enc.Height <= 0 {
				dropped++
				continue
			}
			label = fmt.Sprintf("%dp", enc.Height)
		}
		height, ok := parseHeight(label)
		if !ok {
			dropped++
			continue
		}
		if height < MinHeight {
			continue
		}
		survivors = append(survivors, ranked{
			option: FormatOption{
				FormatID:   enc.ID,
				Resolution: label,
				Filesize:   sizeOf(enc),
			},
			height: height,
		})
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].height > survivors[j].height
	})

	formats = make([]FormatOption, len(survivors))
	for i, s := range survivors {
		formats[i] = s.option
	}
	return formats, dropped
}

// parseHeight resolves a pixel height from a resolution label such as
// "1920x1080", "1080p" or "720".
func parseHeight(resolution string) (int, bool) {
	parts := strings.Split(resolution, "x")
	last := strings.TrimSuffix(parts[len(parts)-1], "p")
	height, err := strconv.Atoi(last)
	if err != nil {
		return 0, false
	}
	return height, true
}

// sizeOf prefers an exact size over an approximate one, nil if neither.
func sizeOf(enc Encoding) *int64 {
	if enc.Filesize > 0 {
		size := enc.Filesize
		return &size
	}
	if enc.FilesizeApprox > 0 {
		size := enc.FilesizeApprox
		return &size
	}
	return nil
}
