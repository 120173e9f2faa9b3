package parser

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeDirs is an existence oracle backed by a fixed set of paths
// and all their ancestors.
func fakeDirs(paths ...string) func(string) bool {
	set := make(map[string]bool)
	for _, p := range paths {
		for d := p; d != "/" && d != "."; d = filepath.Dir(d) {
			set[d] = true
		}
	}
	return func(p string) bool { return set[p] }
}

func TestDecodeDashPath(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
		dirs    []string
		want    string
	}{
		{
			name:    "simple",
			encoded: "-Users-alice-proj",
			dirs:    []string{"/Users/alice/proj"},
			want:    "/Users/alice/proj",
		},
		{
			name:    "without leading dash",
			encoded: "Users-alice-proj",
			dirs:    []string{"/Users/alice/proj"},
			want:    "/Users/alice/proj",
		},
		{
			name:    "dash inside a segment",
			encoded: "Users-alice-my-project",
			dirs:    []string{"/Users/alice/my-project"},
			want:    "/Users/alice/my-project",
		},
		{
			name:    "longest segment preferred",
			encoded: "Users-alice-my-project",
			dirs:    []string{"/Users/alice/my-project", "/Users/alice/my/project"},
			want:    "/Users/alice/my-project",
		},
		{
			name:    "backtracks from dead end",
			encoded: "Users-alice-a-b-c",
			dirs:    []string{"/Users/alice/a-b/x", "/Users/alice/a/b-c"},
			want:    "/Users/alice/a/b-c",
		},
		{
			name:    "no segmentation matches",
			encoded: "-Users-alice-proj",
			dirs:    []string{"/Users/bob/proj"},
			want:    "",
		},
		{
			name:    "prefix exists but leaf does not",
			encoded: "Users-alice-gone",
			dirs:    []string{"/Users/alice"},
			want:    "",
		},
		{
			name:    "empty",
			encoded: "",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := fakeDirs(tt.dirs...)
			assert.Equal(t, tt.want, DecodeDashPath(tt.encoded, oracle))
		})
	}
}

func TestDecodeDashPath_ExhaustsAmbiguousSegmentations(t *testing.T) {
	// Every segmentation of the a's exists; the trailing z never
	// does, so every candidate must be rejected.
	oracle := func(p string) bool { return !strings.Contains(p, "z") }
	encoded := strings.Repeat("a-", 12) + "z"

	assert.Empty(t, DecodeDashPath(encoded, oracle))
}

func TestDecodeDashPath_ChecksEachCandidateOnce(t *testing.T) {
	seen := make(map[string]int)
	oracle := func(p string) bool {
		seen[p]++
		return !strings.Contains(p, "z")
	}
	DecodeDashPath("a-b-c-d-e-z", oracle)

	for p, n := range seen {
		assert.Equal(t, 1, n, "oracle called %d times for %s", n, p)
	}
}

func TestDecodeDashPath_RealFilesystem(t *testing.T) {
	root := t.TempDir()
	target := mustMkdirAll(t, filepath.Join(root, "my-app", "web"))
	encoded := strings.ReplaceAll(strings.TrimPrefix(target, "/"), "/", "-")

	assert.Equal(t, target, DecodeDashPath(encoded, isDir))
}

func TestEncodeClaudeProjectDir(t *testing.T) {
	assert.Equal(t, "-Users-alice-my-app", EncodeClaudeProjectDir("/Users/alice/my-app"))
	assert.Equal(t, "-Users-alice-my-app-v2", EncodeClaudeProjectDir("/Users/alice/my_app.v2"))
}

func TestEncodeClaudeProjectDir_NonASCII(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/home/josé/café", "-home-jos--caf-"},
		{"/w/日本語", "-w----"},
		{"/w/emoji😀x", "-w-emoji--x"},
		// Invalid UTF-8 decodes to U+FFFD, a single code unit.
		{"/w/ÿz", "-w--z"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EncodeClaudeProjectDir(tt.path), tt.path)
	}
}
