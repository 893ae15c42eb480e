package transcode

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const failurePrefix = "ffmpeg error: "

// failureMessage renders the stored message for a non-zero exit.
func failureMessage(stderr string, exitCode, limit int) string {
	excerpt := truncateUTF8(strings.TrimSpace(stderr), limit)
	if excerpt == "" {
		excerpt = "exit status " + strconv.Itoa(exitCode)
	}
	return failurePrefix + excerpt
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}
