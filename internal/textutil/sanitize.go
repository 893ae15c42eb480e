package textutil

import (
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SecureFilename reduces a client-supplied name to a flat ASCII filename.
// Accents are decomposed and dropped, path separators become word breaks,
// whitespace runs collapse to a single underscore, and anything outside
// [A-Za-z0-9_.-] is removed. Leading and trailing dots and underscores are
// trimmed so the result can never be "..", a dotfile, or a path. The result
// may be empty.
func SecureFilename(name string) string {
	decomposed := norm.NFKD.String(name)

	var ascii strings.Builder
	ascii.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case r == '/' || r == '\\':
			ascii.WriteByte(' ')
		case r < utf8.RuneSelf:
			ascii.WriteRune(r)
		}
	}

	joined := strings.Join(strings.Fields(ascii.String()), "_")

	var out strings.Builder
	out.Grow(len(joined))
	for i := 0; i < len(joined); i++ {
		c := joined[i]
		if isFilenameByte(c) {
			out.WriteByte(c)
		}
	}
	return strings.Trim(out.String(), "._")
}

// Extension returns the lowercased extension of name including the dot.
func Extension(name string) string {
	return strings.ToLower(path.Ext(name))
}

func isFilenameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '.' || c == '-':
		return true
	default:
		return false
	}
}
