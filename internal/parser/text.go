package parser

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// truncate trims s and cuts it to at most maxRunes runes, marking
// the cut with "...". It never splits a multi-byte character.
func truncate(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i] + "..."
		}
		n++
	}
	return s
}

// collapseSpace replaces every run of whitespace (newlines
// included) with a single space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// summaryText normalizes raw message text into a one-line summary.
func summaryText(s string, maxRunes int) string {
	return truncate(collapseSpace(s), maxRunes)
}

// projectName is the display name for a working directory.
func projectName(path string) string {
	if path == "" {
		return ""
	}
	name := filepath.Base(filepath.Clean(path))
	if name == "." || name == string(filepath.Separator) {
		return path
	}
	return name
}

// parseTimestamp parses RFC3339 (with or without fractional
// seconds) into Unix milliseconds. Unparseable input yields 0.
func parseTimestamp(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return nonNegative(t.UnixMilli())
		}
	}
	return 0
}

// mtimeMillis is the modification time of path in Unix
// milliseconds, or 0 when it cannot be read.
func mtimeMillis(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return nonNegative(info.ModTime().UnixMilli())
}

func nonNegative(ms int64) int64 {
	return max(ms, 0)
}

// capSummaries keeps the first n entries of newest-first
// summaries, dropping blanks.
func capSummaries(summaries []string, n int) []string {
	out := make([]string, 0, min(len(summaries), n))
	for _, s := range summaries {
		if len(out) == n {
			break
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
