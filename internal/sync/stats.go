package sync

import (
	"time"

	"github.com/subinium/agf/internal/parser"
)

// ScanStats summarizes a full scan run.
//
// Sessions counts what each agent's adapter returned before the
// MaxSessions cap. Failed lists agents whose scan errored,
// panicked or timed out; their contribution is empty.
type ScanStats struct {
	TotalSessions int
	Sessions      map[parser.AgentType]int
	Failed        []parser.AgentType
	Warnings      []string
	Projects      int
	Duration      time.Duration
}

// RecordAgent stores the session count of one adapter.
func (s *ScanStats) RecordAgent(agent parser.AgentType, n int) {
	if s.Sessions == nil {
		s.Sessions = make(map[parser.AgentType]int)
	}
	s.Sessions[agent] = n
}

// RecordFailed marks agent as failed with a warning message.
func (s *ScanStats) RecordFailed(agent parser.AgentType, msg string) {
	s.Failed = append(s.Failed, agent)
	s.Warnings = append(s.Warnings, msg)
}

// OK reports whether every adapter completed.
func (s ScanStats) OK() bool {
	return len(s.Failed) == 0
}
