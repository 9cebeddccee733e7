package util

import (
	"strings"
)

const fallbackName = "video"

// SafeFileName turns a video title into a filename that is safe on common
// filesystems while preserving non-ASCII characters, so UTF-8 titles survive
// to the Content-Disposition header intact.
func SafeFileName(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r < 0x20 || r == 0x7f:
			// control characters are dropped outright
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	name := strings.Trim(b.String(), " .")
	if name == "" {
		return fallbackName
	}
	return name
}
