// Package session keeps per-browser terminal state: the command context
// selected with "use", command history and session environment variables.
// State is persisted in the NATS key-value bucket "sessions".
package session

import (
	"strings"
	"time"
)

// State is the persisted terminal state of one session.
type State struct {
	Context   string            `json:"context,omitempty"`
	History   []string          `json:"history,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	UpdatedAt time.Time         `json:"updated_at,omitempty"`
}

// Prompt is written after every result. It shows the active context.
func (s State) Prompt() string {
	if s.Context != "" {
		return "\r\n[" + s.Context + "]$"
	}
	return "\r\n$"
}

// Qualify prefixes line with the active context, so "get foo" inside the
// "redis" context becomes "redis-get foo".
func (s State) Qualify(line string) string {
	line = strings.TrimSpace(line)
	if s.Context == "" || line == "" {
		return line
	}
	return s.Context + "-" + line
}

// HistoryList wraps the stored history lines.
func (s State) HistoryList() *History {
	return NewHistory(DefaultHistorySize, s.History...)
}

// Remember appends line to the history, keeping it bounded.
func (s *State) Remember(line string) {
	h := s.HistoryList()
	h.Push(line)
	s.History = h.Entries()
}
