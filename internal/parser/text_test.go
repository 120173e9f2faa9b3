package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"cut", "hello world", 5, "hello..."},
		{"trims first", "  hi  ", 5, "hi"},
		{"multibyte", "日本語のテキスト", 3, "日本語..."},
		{"no limit", "anything", 0, "anything"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.in, tt.max))
		})
	}
}

func TestSummaryText(t *testing.T) {
	assert.Equal(t, "fix the bug in main", summaryText("fix  the\nbug\tin main", 100))
	assert.Equal(t, "", summaryText(" \n\t ", 100))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{tsEarly, msEarly},
		{"2024-01-01T10:00:00.5Z", msEarly + 500},
		{"2024-01-01T19:00:00+09:00", msEarly},
		{"2024-01-01T10:00:00", msEarly},
		{"", 0},
		{"yesterday", 0},
		{"1969-12-31T00:00:00Z", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTimestamp(tt.in))
		})
	}
}

func TestProjectName(t *testing.T) {
	assert.Equal(t, "app", projectName("/Users/alice/code/app"))
	assert.Equal(t, "app", projectName("/Users/alice/code/app/"))
	assert.Equal(t, "/", projectName("/"))
	assert.Equal(t, "", projectName(""))
}

func TestCapSummaries(t *testing.T) {
	got := capSummaries([]string{"a", "", "b", "c"}, 2)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Empty(t, capSummaries(nil, 5))
}

func TestSessionRelativeTime(t *testing.T) {
	now := time.UnixMilli(msLate + 10*86400*1000*100)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "now"},
		{3 * time.Minute, "3m"},
		{2 * time.Hour, "2h"},
		{5 * 24 * time.Hour, "5d"},
		{15 * 24 * time.Hour, "2w"},
		{65 * 24 * time.Hour, "2mo"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			s := Session{Timestamp: now.Add(-tt.ago).UnixMilli()}
			assert.Equal(t, tt.want, s.RelativeTime(now))
		})
	}
}

func TestSessionSearchText(t *testing.T) {
	s := Session{
		ProjectName: "app",
		ProjectPath: "/code/app",
		Summaries:   []string{"one", "two", "three"},
		GitBranch:   "main",
	}
	assert.Equal(t, "app /code/app", s.SearchText(5, false))
	assert.Equal(t, "app /code/app one two main", s.SearchText(2, true))
}

func TestSessionDisplayPath(t *testing.T) {
	home := "/Users/alice"
	assert.Equal(t, "~", Session{ProjectPath: home}.DisplayPath(home))
	assert.Equal(t, "~/code/app", Session{ProjectPath: home + "/code/app"}.DisplayPath(home))
	assert.Equal(t, "/Users/alicex", Session{ProjectPath: "/Users/alicex"}.DisplayPath(home))
	assert.Equal(t, "", Session{}.DisplayPath(home))
}

func TestParseAgentType(t *testing.T) {
	got, err := ParseAgentType("Kiro-CLI")
	assert.NoError(t, err)
	assert.Equal(t, AgentKiro, got)

	got, err = ParseAgentType("cursor-agent")
	assert.NoError(t, err)
	assert.Equal(t, AgentCursorAgent, got)

	_, err = ParseAgentType("vim")
	assert.ErrorIs(t, err, ErrUnknownAgent)
}
