package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vidfetch/vidfetch"
)

// Generic client-facing messages; extractor detail stays in the logs.
const (
	msgURLRequired      = "URL is required"
	msgResolutionFailed = "Could not process this URL. It may be private, geo-restricted, or invalid."
	msgMissingParams    = "Missing URL or format ID"
	msgDownloadFailed   = "An error occurred during the download process."
)

const streamBufferSize = 64 * 1024

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeJSON(w, http.StatusNotFound, map[string]string{
			"error":   "not found",
			"message": fmt.Sprintf("no route for %s", r.URL.Path),
		})
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

// handleHealthz answers 200 "OK" unconditionally; liveness must not depend on
// extractor health.
func (*Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type getInfoRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleGetInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req getInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, msgURLRequired)
		return
	}

	catalog, err := s.info.Resolve(r.Context(), req.URL)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, catalog)
	case errors.Is(err, vidfetch.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, msgURLRequired)
	default:
		s.writeError(w, http.StatusInternalServerError, msgResolutionFailed)
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sourceURL := r.URL.Query().Get("url")
	formatID := r.URL.Query().Get("format_id")
	if sourceURL == "" || formatID == "" {
		http.Error(w, msgMissingParams, http.StatusBadRequest)
		return
	}

	artifact, err := s.downloads.Materialize(r.Context(), sourceURL, formatID)
	if err != nil {
		if errors.Is(err, vidfetch.ErrInvalidInput) {
			http.Error(w, msgMissingParams, http.StatusBadRequest)
		} else {
			http.Error(w, msgDownloadFailed, http.StatusInternalServerError)
		}
		return
	}
	// The artifact is deleted when Close runs, whether the stream below
	// completes, errors, or is aborted by the client.
	defer artifact.Close()

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Length", strconv.FormatInt(artifact.Size, 10))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename*=UTF-8''%s", rfc5987Escape(artifact.Name)))

	buf := make([]byte, streamBufferSize)
	if _, err := io.CopyBuffer(w, artifact, buf); err != nil {
		// Most often the client going away mid-stream.
		vidfetch.Logger(r.Context()).Warn("streaming interrupted",
			zap.String("name", artifact.Name), zap.Error(err))
	}
}

// rfc5987Escape percent-encodes everything outside RFC 5987's attr-char set
// for use in a filename* value. url.PathEscape is not strict enough here: it
// leaves characters like '=' and '@' bare, which attr-char does not allow.
func rfc5987Escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '&', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
