package niconico

import (
	"path/filepath"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`(?i)(sm|nm|so)(\d+)`)

// ExtractVideoID derives a video id such as "sm9" from a local file name.
// Only the base name is inspected, so directory names never match.
func ExtractVideoID(videoPath string) (string, bool) {
	base := filepath.Base(videoPath)
	m := videoIDPattern.FindStringSubmatch(base)
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]) + m[2], true
}
