package vidfetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mp4Video(id, resolution string, height int) Encoding {
	return Encoding{
		ID:         id,
		Container:  "mp4",
		HasVideo:   true,
		Resolution: resolution,
		Height:     height,
	}
}

func TestSelectFormatsFiltersAndSorts(t *testing.T) {
	assert := assert.New(t)
	encodings := []Encoding{
		mp4Video("a", "256x144", 144),
		mp4Video("b", "854x480", 480),
		mp4Video("c", "1280x720", 720),
		mp4Video("d", "1920x1080", 1080),
		mp4Video("e", "3840x2160", 2160),
	}
	formats, dropped := SelectFormats(encodings)
	require.Len(t, formats, 3)
	assert.Equal("e", formats[0].FormatID)
	assert.Equal("d", formats[1].FormatID)
	assert.Equal("c", formats[2].FormatID)
	assert.Equal("3840x2160", formats[0].Resolution)
	assert.Zero(dropped)
}

func TestSelectFormatsStableForEqualHeights(t *testing.T) {
	assert := assert.New(t)
	encodings := []Encoding{
		mp4Video("first-1080", "1920x1080", 0),
		mp4Video("720", "1280x720", 0),
		mp4Video("second-1080", "1080p", 0),
		mp4Video("third-1080", "1920x1080", 0),
	}
	formats, _ := SelectFormats(encodings)
	require.Len(t, formats, 4)
	assert.Equal("first-1080", formats[0].FormatID)
	assert.Equal("second-1080", formats[1].FormatID)
	assert.Equal("third-1080", formats[2].FormatID)
	assert.Equal("720", formats[3].FormatID)
}

func TestSelectFormatsSkipsNonTargetEncodings(t *testing.T) {
	assert := assert.New(t)
	encodings := []Encoding{
		{ID: "webm", Container: "webm", HasVideo: true, Resolution: "1920x1080"},
		{ID: "audio", Container: "mp4", HasVideo: false, HasAudio: true, Resolution: "1920x1080"},
		mp4Video("ok", "1920x1080", 0),
	}
	formats, dropped := SelectFormats(encodings)
	assert.Len(formats, 1)
	assert.Equal("ok", formats[0].FormatID)
	assert.Zero(dropped)
}

func TestSelectFormatsDropsUnresolvableHeights(t *testing.T) {
	assert := assert.New(t)
	encodings := []Encoding{
		mp4Video("garbage", "widescreen", 0),
		mp4Video("no-info", "", 0),
		mp4Video("none", "none", 0),
		mp4Video("ok", "1080p", 0),
	}
	formats, dropped := SelectFormats(encodings)
	assert.Len(formats, 1)
	assert.Equal("ok", formats[0].FormatID)
	assert.Equal(3, dropped)
}

func TestSelectFormatsHeightFallback(t *testing.T) {
	assert := assert.New(t)
	// No resolution string, but an explicit height: label is synthesized.
	formats, _ := SelectFormats([]Encoding{mp4Video("tall", "", 1440)})
	assert.Len(formats, 1)
	assert.Equal("1440p", formats[0].Resolution)

	// Below the floor even via fallback.
	formats, _ = SelectFormats([]Encoding{mp4Video("small", "", 480)})
	assert.Empty(formats)
}

func TestSelectFormatsPrefersExactSize(t *testing.T) {
	assert := assert.New(t)
	exact := mp4Video("exact", "1080p", 0)
	exact.Filesize = 1000
	exact.FilesizeApprox = 2000
	approx := mp4Video("approx", "1080p", 0)
	approx.FilesizeApprox = 3000
	unknown := mp4Video("unknown", "1080p", 0)

	formats, _ := SelectFormats([]Encoding{exact, approx, unknown})
	require.Len(t, formats, 3)
	require.NotNil(t, formats[0].Filesize)
	assert.EqualValues(1000, *formats[0].Filesize)
	require.NotNil(t, formats[1].Filesize)
	assert.EqualValues(3000, *formats[1].Filesize)
	assert.Nil(formats[2].Filesize)
}

func TestSelectFormatsEmptyInput(t *testing.T) {
	assert := assert.New(t)
	formats, dropped := SelectFormats(nil)
	assert.NotNil(formats)
	assert.Empty(formats)
	assert.Zero(dropped)
}

func TestParseHeight(t *testing.T) {
	assert := assert.New(t)
	tests := []struct {
		resolution string
		height     int
		ok         bool
	}{
		{"1920x1080", 1080, true},
		{"1080p", 1080, true},
		{"720", 720, true},
		{"audio only", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		height, ok := parseHeight(tt.resolution)
		assert.Equal(tt.ok, ok, tt.resolution)
		assert.Equal(tt.height, height, tt.resolution)
	}
}
