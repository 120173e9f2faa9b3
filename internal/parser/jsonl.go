package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tidwall/gjson"
)

// scanJSONL calls fn for each valid JSON line of path until fn
// returns false, the file ends, or maxLines non-blank lines have
// been read (0 means no limit). Invalid lines count toward the
// limit but are not passed to fn. A missing file is not an error.
func scanJSONL(
	path string, maxLines int, fn func(line string) bool,
) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	lr := newLineReader(f, maxLineSize)
	for n := 0; maxLines == 0 || n < maxLines; n++ {
		line, ok := lr.next()
		if !ok {
			break
		}
		if !gjson.Valid(line) {
			continue
		}
		if !fn(line) {
			break
		}
	}
	return lr.Err()
}

// firstJSONLine returns the first non-blank line of path when it
// is valid JSON.
func firstJSONLine(path string) (string, bool) {
	var first string
	_ = scanJSONL(path, 1, func(line string) bool {
		first = line
		return false
	})
	return first, first != ""
}

// RewriteJSONLExcluding rewrites the JSONL file at path without
// the records whose field equals id. Every other non-blank line,
// including lines that are not valid JSON, is kept in its original
// order.
// The result ends with exactly one newline, or is empty. When no
// record matches, the file is left untouched. A missing file is
// success. It returns the number of records removed.
func RewriteJSONLExcluding(path, field, id string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	body := bytes.TrimRight(data, "\n")
	if len(body) == 0 {
		return 0, nil
	}

	var kept [][]byte
	removed := 0
	for line := range bytes.SplitSeq(body, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if matchesField(line, field, id) {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	if removed == 0 {
		return 0, nil
	}

	var out []byte
	if len(kept) > 0 {
		out = append(bytes.Join(kept, []byte("\n")), '\n')
	}
	if err := writeFileAtomic(path, out); err != nil {
		return 0, fmt.Errorf("rewriting %s: %w", path, err)
	}
	return removed, nil
}

func matchesField(line []byte, field, id string) bool {
	if !gjson.ValidBytes(line) {
		return false
	}
	v := gjson.GetBytes(line, field)
	return v.Exists() && v.String() == id
}
