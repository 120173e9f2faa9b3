// Package testjsonl provides shared JSONL fixture builders for
// agent session stores. Used by the parser, sync, and cmd test
// packages.
package testjsonl

import (
	"encoding/json"
	"strings"
)

// ClaudeHistoryJSON returns one line of Claude's history.jsonl.
// tsMillis is written as a JSON number, like the real file.
func ClaudeHistoryJSON(
	display string, tsMillis float64, project, sessionID string,
) string {
	return mustMarshal(map[string]any{
		"display":   display,
		"timestamp": tsMillis,
		"project":   project,
		"sessionId": sessionID,
	})
}

// ClaudeTranscriptJSON returns a Claude transcript line carrying
// a cwd.
func ClaudeTranscriptJSON(cwd, sessionID string) string {
	return mustMarshal(map[string]any{
		"type":      "user",
		"cwd":       cwd,
		"sessionId": sessionID,
		"message":   map[string]any{"role": "user", "content": "hi"},
	})
}

// CodexSessionMetaJSON returns a Codex rollout session_meta
// header line. An empty branch omits the git object.
func CodexSessionMetaJSON(id, cwd, timestamp, branch string) string {
	payload := map[string]any{
		"id":        id,
		"cwd":       cwd,
		"timestamp": timestamp,
	}
	if branch != "" {
		payload["git"] = map[string]any{"branch": branch}
	}
	return mustMarshal(map[string]any{
		"timestamp": timestamp,
		"type":      "session_meta",
		"payload":   payload,
	})
}

// CodexMsgJSON returns a Codex response_item message line.
func CodexMsgJSON(role, text, timestamp string) string {
	return mustMarshal(map[string]any{
		"timestamp": timestamp,
		"type":      "response_item",
		"payload": map[string]any{
			"type": "message",
			"role": role,
			"content": []map[string]string{
				{"type": "input_text", "text": text},
			},
		},
	})
}

// CodexHistoryJSON returns one line of Codex's history.jsonl.
func CodexHistoryJSON(sessionID string, tsSeconds int64, text string) string {
	return mustMarshal(map[string]any{
		"session_id": sessionID,
		"ts":         tsSeconds,
		"text":       text,
	})
}

// PiHeaderJSON returns a pi session header line.
func PiHeaderJSON(id, cwd, timestamp string) string {
	return mustMarshal(map[string]any{
		"type":      "session",
		"id":        id,
		"cwd":       cwd,
		"timestamp": timestamp,
	})
}

// PiMessageJSON returns a pi message entry with text content
// blocks.
func PiMessageJSON(role, text string) string {
	return mustMarshal(map[string]any{
		"type": "message",
		"message": map[string]any{
			"role": role,
			"content": []map[string]string{
				{"type": "text", "text": text},
			},
		},
	})
}

// JoinJSONL joins JSON lines with newlines and appends a
// trailing newline.
func JoinJSONL(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// SessionBuilder constructs JSONL content using a fluent API.
type SessionBuilder struct {
	lines []string
}

// NewSessionBuilder returns a new empty SessionBuilder.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{}
}

// AddClaudeHistory appends a Claude history line.
func (b *SessionBuilder) AddClaudeHistory(
	display string, tsMillis float64, project, sessionID string,
) *SessionBuilder {
	b.lines = append(b.lines,
		ClaudeHistoryJSON(display, tsMillis, project, sessionID),
	)
	return b
}

// AddCodexHistory appends a Codex history line.
func (b *SessionBuilder) AddCodexHistory(
	sessionID string, tsSeconds int64, text string,
) *SessionBuilder {
	b.lines = append(b.lines, CodexHistoryJSON(sessionID, tsSeconds, text))
	return b
}

// AddRaw appends an arbitrary raw line.
func (b *SessionBuilder) AddRaw(line string) *SessionBuilder {
	b.lines = append(b.lines, line)
	return b
}

// String returns the JSONL content with a trailing newline.
func (b *SessionBuilder) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}

// StringNoTrailingNewline returns the JSONL content without a
// trailing newline.
func (b *SessionBuilder) StringNoTrailingNewline() string {
	return strings.Join(b.lines, "\n")
}

// GeminiUserMsg builds a Gemini user message object. Content is
// an array of text parts, as current Gemini CLI writes it.
func GeminiUserMsg(id, timestamp, text string) map[string]any {
	return map[string]any{
		"id":        id,
		"timestamp": timestamp,
		"type":      "user",
		"content":   []map[string]string{{"text": text}},
	}
}

// GeminiAssistantMsg builds a Gemini model reply object.
func GeminiAssistantMsg(id, timestamp, content string) map[string]any {
	return map[string]any{
		"id":        id,
		"timestamp": timestamp,
		"type":      "gemini",
		"content":   content,
	}
}

// GeminiSessionJSON builds a complete, indented Gemini session
// document.
func GeminiSessionJSON(
	sessionID, projectHash string,
	startTime, lastUpdated string,
	messages []map[string]any,
) string {
	session := map[string]any{
		"sessionId":   sessionID,
		"projectHash": projectHash,
		"startTime":   startTime,
		"lastUpdated": lastUpdated,
		"messages":    messages,
	}
	b, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(b)
}

func mustMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
