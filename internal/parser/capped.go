package parser

import (
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

// readCapped reads at most limit bytes from the start of path. The
// second result reports whether the file was longer than limit.
func readCapped(path string, limit int64) ([]byte, bool, error) {
	f, err := openRegular(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}

// extractStringField finds the first `"field": "value"` pair in
// possibly truncated JSON text and returns the unescaped value.
// The value must be terminated by an unescaped quote inside s;
// empty values report false.
func extractStringField(s, field string) (string, bool) {
	key := `"` + field + `"`
	for from := 0; ; {
		i := strings.Index(s[from:], key)
		if i < 0 {
			return "", false
		}
		rest := s[from+i+len(key):]
		from += i + len(key)

		rest = strings.TrimLeft(rest, " \t\r\n")
		if !strings.HasPrefix(rest, ":") {
			continue
		}
		rest = strings.TrimLeft(rest[1:], " \t\r\n")
		if !strings.HasPrefix(rest, `"`) {
			continue
		}
		raw, ok := scanJSONString(rest[1:])
		if !ok || raw == "" {
			return "", false
		}
		return unescapeJSONString(raw), true
	}
}

// scanJSONString returns the raw contents of a JSON string body up
// to (not including) the first unescaped quote.
func scanJSONString(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return s[:i], true
		}
	}
	return "", false
}

func unescapeJSONString(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}
	quoted := `"` + raw + `"`
	if !gjson.Valid(quoted) {
		return raw
	}
	return gjson.Parse(quoted).String()
}

// userMarkerWindow bounds how far past a user-message marker the
// partial extractor looks for its text.
const userMarkerWindow = 1024

// extractUserTextPartial finds the first `"type":"user"` marker
// and returns the first non-blank "text" value within the next
// userMarkerWindow bytes.
func extractUserTextPartial(s string) (string, bool) {
	for _, marker := range []string{`"type":"user"`, `"type": "user"`} {
		i := strings.Index(s, marker)
		if i < 0 {
			continue
		}
		window := s[i:]
		if len(window) > userMarkerWindow {
			window = window[:userMarkerWindow]
		}
		text, ok := extractStringField(window, "text")
		if ok && collapseSpace(text) != "" {
			return text, true
		}
	}
	return "", false
}
