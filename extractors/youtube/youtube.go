// Package youtube implements a pure-Go extractor backend for YouTube URLs on
// top of kkdai/youtube, avoiding the yt-dlp process spawn for the common
// case. Video-only encodings are fetched together with the best audio-only
// encoding and muxed with ffmpeg.
package youtube

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/vidfetch/vidfetch"
)

type source struct {
	videoID string
}

func (s *source) URL() string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", s.videoID)
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) Probe(ctx context.Context) (*vidfetch.MediaInfo, error) {
	client := youtube.Client{}
	video, err := client.GetVideoContext(ctx, s.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}

	info := &vidfetch.MediaInfo{
		Title:     video.Title,
		Thumbnail: bestThumbnail(video),
	}
	for i := range video.Formats {
		f := &video.Formats[i]
		info.Encodings = append(info.Encodings, vidfetch.Encoding{
			ID:         strconv.Itoa(f.ItagNo),
			Container:  containerOf(f.MimeType),
			HasVideo:   strings.HasPrefix(f.MimeType, "video/"),
			HasAudio:   f.AudioChannels > 0,
			Resolution: f.QualityLabel,
			Height:     f.Height,
			Filesize:   f.ContentLength,
		})
	}
	return info, nil
}

func (s *source) Fetch(ctx context.Context, req vidfetch.FetchRequest) error {
	itag, err := strconv.Atoi(req.EncodingID)
	if err != nil {
		return fmt.Errorf("invalid itag %q: %w", req.EncodingID, err)
	}

	client := youtube.Client{}
	video, err := client.GetVideoContext(ctx, s.URL())
	if err != nil {
		return fmt.Errorf("failed to get video info: %w", err)
	}

	videoFormat := findItag(video, itag)
	if videoFormat == nil {
		// No fallback syntax here, unlike yt-dlp: a vanished itag is an
		// extraction failure.
		return fmt.Errorf("format %d no longer available", itag)
	}

	if videoFormat.AudioChannels > 0 && containerOf(videoFormat.MimeType) == req.Container {
		return saveStream(ctx, &client, video, videoFormat, req.OutputPath, newProgressWriter(req.Progress, 0))
	}

	// Video-only (the norm at >=720p): fetch the best audio track separately
	// and mux the pair into the target container.
	audioFormat := bestAudio(video)
	if audioFormat == nil {
		return fmt.Errorf("no audio track available to merge with format %d", itag)
	}

	dir := filepath.Dir(req.OutputPath)
	videoPath := filepath.Join(dir, fmt.Sprintf("video.f%d.tmp", videoFormat.ItagNo))
	audioPath := filepath.Join(dir, fmt.Sprintf("audio.f%d.tmp", audioFormat.ItagNo))

	// One writer for both saves: the byte offset carries over, so reported
	// progress stays monotonic when the audio stream starts.
	progress := newProgressWriter(req.Progress, videoFormat.ContentLength+audioFormat.ContentLength)
	if err := saveStream(ctx, &client, video, videoFormat, videoPath, progress); err != nil {
		return err
	}
	if err := saveStream(ctx, &client, video, audioFormat, audioPath, progress); err != nil {
		return err
	}
	if err := mux(ctx, videoPath, audioPath, req.OutputPath, videoFormat.MimeType); err != nil {
		return err
	}
	// The intermediate streams are only needed until the mux completes; the
	// job directory sweep would get them anyway.
	_ = os.Remove(videoPath)
	_ = os.Remove(audioPath)
	return nil
}

// saveStream downloads one format to path. The progress writer may be shared
// across several saves; when its total is unset the stream's own length is
// used as the denominator.
func saveStream(
	ctx context.Context,
	client *youtube.Client,
	video *youtube.Video,
	format *youtube.Format,
	path string,
	progress *progressWriter,
) error {
	stream, size, err := client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("failed to get stream for itag %d: %w", format.ItagNo, err)
	}
	defer stream.Close()

	if progress != nil && progress.total <= 0 {
		progress.total = size
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	var w io.Writer = f
	if progress != nil && progress.total > 0 {
		w = io.MultiWriter(f, progress)
	}
	if _, err := io.Copy(w, vidfetch.ReaderContext(ctx, stream)); err != nil {
		return fmt.Errorf("failed to save stream: %w", err)
	}
	return nil
}

type progressWriter struct {
	sink    vidfetch.ProgressSink
	total   int64
	written int64
}

func newProgressWriter(sink vidfetch.ProgressSink, total int64) *progressWriter {
	if sink == nil {
		return nil
	}
	return &progressWriter{sink: sink, total: total}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	w.sink.Progress(100 * float64(w.written) / float64(w.total))
	return len(p), nil
}

// mux combines a video stream and an audio stream into one container file.
// mp4 video is stream-copied; anything else is transcoded to H.264 so the
// result is honest about its .mp4 extension.
func mux(ctx context.Context, videoPath, audioPath, outputPath, videoMimeType string) error {
	videoCodec := []string{"-c:v", "copy"}
	if !strings.Contains(videoMimeType, "mp4") {
		videoCodec = []string{"-c:v", "libx264", "-preset", "fast", "-pix_fmt", "yuv420p"}
	}
	args := []string{"-y", "-i", videoPath, "-i", audioPath}
	args = append(args, videoCodec...)
	args = append(args, "-c:a", "aac", "-movflags", "+faststart", outputPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg mux failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func findItag(video *youtube.Video, itag int) *youtube.Format {
	for i := range video.Formats {
		if video.Formats[i].ItagNo == itag {
			return &video.Formats[i]
		}
	}
	return nil
}

// bestAudio picks the highest-bitrate audio-only format, preferring audio/mp4
// so the mux can usually stream-copy.
func bestAudio(video *youtube.Video) *youtube.Format {
	var best *youtube.Format
	for i := range video.Formats {
		f := &video.Formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == nil {
			best = f
			continue
		}
		bestIsMP4 := strings.HasPrefix(best.MimeType, "audio/mp4")
		fIsMP4 := strings.HasPrefix(f.MimeType, "audio/mp4")
		if fIsMP4 != bestIsMP4 {
			if fIsMP4 {
				best = f
			}
			continue
		}
		if f.Bitrate > best.Bitrate {
			best = f
		}
	}
	return best
}

func containerOf(mimeType string) string {
	mediaType := strings.SplitN(mimeType, ";", 2)[0]
	parts := strings.SplitN(mediaType, "/", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

func bestThumbnail(video *youtube.Video) string {
	if len(video.Thumbnails) == 0 {
		return ""
	}
	best := video.Thumbnails[0]
	for _, t := range video.Thumbnails[1:] {
		if t.Width > best.Width {
			best = t
		}
	}
	return best.URL
}

func Match(s string) (vidfetch.Extractor, error) {
	parsedURL, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	videoID, err := extractVideoID(parsedURL)
	if err != nil {
		return nil, err
	}
	return &source{videoID: videoID}, nil
}

func New() vidfetch.Backend {
	return vidfetch.Backend{Name: "youtube", Match: Match}
}

// Extract video ID from YouTube URL.
//
// Allowed URL formats:
//		http(s?)://(www|m).youtube.com/(watch|details)?v={VIDEO_ID}
//		http(s?)://(www|m).youtube.com/v/{VIDEO_ID}
//		http(s?)://youtu.be/{VIDEO_ID}
func extractVideoID(url *url.URL) (string, error) {
	var id string
	switch url.Hostname() {
	case "www.youtube.com":
		fallthrough
	case "m.youtube.com":
		if strings.HasPrefix(url.Path, "/v/") {
			id = strings.SplitN(url.Path, "/", 3)[2]
		} else if url.Path == "/watch" || url.Path == "/details" {
			if url.Query().Has("v") {
				id = url.Query().Get("v")
			} else {
				return "", fmt.Errorf("missing ?v= query parameter")
			}
		}
	case "youtu.be":
		id = strings.Trim(url.Path, "/")
	default:
		return "", fmt.Errorf("unrecognised hostname")
	}
	if id == "" {
		return "", fmt.Errorf("could not extract video ID")
	}
	return id, nil
}

func init() {
	vidfetch.DefaultRegistry.MustAdd(New())
}
