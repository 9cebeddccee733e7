// Package ytdlp implements the catch-all extractor backend by shelling out
// to the yt-dlp binary, which carries the site-specific scraping logic.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os/exec"
	"strconv"
	"strings"

	"github.com/vidfetch/vidfetch"
)

const DefaultBinary = "yt-dlp"

type Config struct {
	// BinaryPath is the yt-dlp executable to invoke.
	BinaryPath string
}

func NewConfig() Config {
	return Config{BinaryPath: DefaultBinary}
}

// Match accepts any http(s) URL; yt-dlp itself decides whether the site is
// supported, which is why this backend registers at the lowest priority.
func (c Config) Match(s string) (vidfetch.Extractor, error) {
	parsedURL, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unknown URL scheme %v", parsedURL.Scheme)
	}
	return &extractor{url: s, bin: c.BinaryPath}, nil
}

func (c Config) Backend() vidfetch.Backend {
	return vidfetch.Backend{
		Name:  "ytdlp",
		Match: c.Match,
	}
}

type extractor struct {
	url string
	bin string
}

func (e *extractor) URL() string {
	return e.url
}

func (e *extractor) String() string {
	return e.URL()
}

// probeJSON matches the parts of `yt-dlp -J` output this extractor uses.
type probeJSON struct {
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Formats   []struct {
		FormatID       string  `json:"format_id"`
		Ext            string  `json:"ext"`
		Vcodec         string  `json:"vcodec"`
		Acodec         string  `json:"acodec"`
		Resolution     string  `json:"resolution"`
		Height         int     `json:"height"`
		Filesize       float64 `json:"filesize"`
		FilesizeApprox float64 `json:"filesize_approx"`
	} `json:"formats"`
}

func (e *extractor) Probe(ctx context.Context) (*vidfetch.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, e.bin, "-J", "--no-playlist", "--no-warnings", e.url)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("yt-dlp -J failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return decodeProbeOutput(output)
}

func decodeProbeOutput(output []byte) (*vidfetch.MediaInfo, error) {
	var data probeJSON
	if err := json.Unmarshal(output, &data); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp JSON: %w", err)
	}

	info := &vidfetch.MediaInfo{
		Title:     data.Title,
		Thumbnail: data.Thumbnail,
	}
	for _, f := range data.Formats {
		info.Encodings = append(info.Encodings, vidfetch.Encoding{
			ID:        f.FormatID,
			Container: f.Ext,
			// A missing vcodec means unknown, not absent: only the literal
			// "none" marks an audio-only format.
			HasVideo:       f.Vcodec != "none",
			HasAudio:       hasCodec(f.Acodec),
			Resolution:     f.Resolution,
			Height:         f.Height,
			Filesize:       int64(f.Filesize),
			FilesizeApprox: int64(f.FilesizeApprox),
		})
	}
	return info, nil
}

func hasCodec(codec string) bool {
	return codec != "" && codec != "none"
}

// Fetch downloads the selected encoding plus the best available audio track,
// letting yt-dlp mux the pair into the target container at req.OutputPath.
// The trailing "/best" keeps yt-dlp's own fallback behavior when the format
// id no longer exists at fetch time.
func (e *extractor) Fetch(ctx context.Context, req vidfetch.FetchRequest) error {
	cmd := exec.CommandContext(ctx, e.bin, fetchArgs(req, e.url)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if percent, ok := parseProgressLine(scanner.Text()); ok && req.Progress != nil {
			req.Progress.Progress(percent)
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// fetchArgs builds the yt-dlp argument list for a fetch. The -o value is an
// output template, so literal percents in the title-derived path must be
// doubled or yt-dlp treats them as format conversions.
func fetchArgs(req vidfetch.FetchRequest, target string) []string {
	selector := fmt.Sprintf("%s+bestaudio/best", req.EncodingID)
	return []string{
		"--newline",
		"--no-playlist",
		"--no-warnings",
		"-f", selector,
		"--merge-output-format", req.Container,
		"-o", strings.ReplaceAll(req.OutputPath, "%", "%%"),
		target,
	}
}

// parseProgressLine extracts the percentage from yt-dlp --newline output
// such as "[download]  42.7% of 10.00MiB at 1.00MiB/s".
func parseProgressLine(line string) (float64, bool) {
	if !strings.HasPrefix(line, "[download]") {
		return 0, false
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, false
	}
	percentStr := strings.TrimSuffix(fields[1], "%")
	percent, err := strconv.ParseFloat(percentStr, 64)
	if err != nil {
		return 0, false
	}
	return percent, true
}

func init() {
	vidfetch.DefaultRegistry.MustAdd(
		NewConfig().Backend().WithPriority(vidfetch.PriorityLowest),
	)
}
