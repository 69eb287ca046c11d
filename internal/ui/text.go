package ui

import "strings"

// Default truncation settings for long item bodies.
const (
	DefaultMaxLines     = 15
	DefaultContextLines = 5

	truncationPlaceholder = "\n... [truncated - use --full to see complete text] ...\n"
)

// TruncateLines truncates text to maxLines, keeping context from the
// beginning and end with a placeholder in the middle. Text shorter than
// maxLines is returned unchanged.
func TruncateLines(text string, maxLines, contextLines int) string {
	if text == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text
	}
	if contextLines < 1 {
		contextLines = DefaultContextLines
	}
	if maxLines < contextLines*2+3 {
		return strings.Join(lines[:maxLines], "\n") + "\n..."
	}

	var b strings.Builder
	b.WriteString(strings.Join(lines[:contextLines], "\n"))
	b.WriteString(truncationPlaceholder)
	b.WriteString(strings.Join(lines[len(lines)-contextLines:], "\n"))
	return b.String()
}
