package parser

import (
	"path/filepath"
	"strings"
	"unicode/utf16"
)

// EncodeClaudeProjectDir maps a project path to the directory name
// Claude Code keeps its per-project transcripts under: every UTF-16
// code unit that is not an ASCII letter or digit becomes '-', so a
// character outside the Basic Multilingual Plane yields two.
func EncodeClaudeProjectDir(path string) string {
	var b strings.Builder
	b.Grow(len(path))
	for _, c := range path {
		switch {
		case isAlphanum(c):
			b.WriteRune(c)
		case utf16.RuneLen(c) == 2:
			b.WriteString("--")
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

func isAlphanum(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// DecodeDashPath recovers the absolute directory an encoded name
// like "Users-alice-my-app" stands for, where both '/' and literal
// dashes were written as '-'. Segmentations are tried longest
// first from "/"; a prefix is only committed once isDir confirms
// it exists, and each candidate path is checked at most once. It
// returns "" when no segmentation names a real directory.
func DecodeDashPath(encoded string, isDir func(string) bool) string {
	encoded = strings.TrimPrefix(encoded, "-")
	if encoded == "" {
		return ""
	}
	d := dashDecoder{
		parts:  strings.Split(encoded, "-"),
		isDir:  isDir,
		exists: make(map[string]bool),
	}
	return d.solve(0, string(filepath.Separator))
}

type dashDecoder struct {
	parts  []string
	isDir  func(string) bool
	exists map[string]bool
}

func (d *dashDecoder) dir(path string) bool {
	ok, seen := d.exists[path]
	if !seen {
		ok = d.isDir(path)
		d.exists[path] = ok
	}
	return ok
}

// solve decodes parts[idx:] below current.
func (d *dashDecoder) solve(idx int, current string) string {
	for end := len(d.parts); end > idx; end-- {
		segment := strings.Join(d.parts[idx:end], "-")
		if segment == "" {
			continue
		}
		candidate := filepath.Join(current, segment)
		if !d.dir(candidate) {
			continue
		}
		if end == len(d.parts) {
			return candidate
		}
		if got := d.solve(end, candidate); got != "" {
			return got
		}
	}
	return ""
}
