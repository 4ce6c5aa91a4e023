package messages

import (
	"fmt"
	"time"
)

// =============================================================================
// CORE INTERFACES
// =============================================================================

// Message represents any message in the system
type Message interface {
	Subject() string
	Validate() error
}

// Command represents an input that requests something to happen
type Command interface {
	Message
	IsCommand()
}

// Event represents something that has happened
type Event interface {
	Message
	IsEvent()
	Timestamp() time.Time
}

// =============================================================================
// SUBJECT CONSTANTS - Single source of truth for all subjects
// =============================================================================

const (
	TerminalCommandSubjectPattern = "terminal.session.*.command" // * = session id
	TerminalOutputSubjectPattern  = "event.terminal.session.*.output"
	TerminalContextSubjectPattern = "event.terminal.session.*.context"

	// TerminalExecSubject is served over core NATS request/reply.
	TerminalExecSubject = "terminal.exec"

	// Stream names
	TerminalStream = "TERMINAL"
	EventStream    = "EVENT"
)

// =============================================================================
// TERMINAL DOMAIN - COMMANDS
// =============================================================================

// TerminalCommandMessage represents a command line entered in the terminal
type TerminalCommandMessage struct {
	SessionID     string `json:"session_id"`
	Cmd           string `json:"cmd"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func (c TerminalCommandMessage) Subject() string { return TerminalCommandSubject(c.SessionID) }
func (c TerminalCommandMessage) IsCommand()      {}
func (c TerminalCommandMessage) Validate() error {
	return validateTerminalCommand(c)
}

// =============================================================================
// TERMINAL DOMAIN - EVENTS
// =============================================================================

// TerminalOutputEvent carries terminal-ready output for one command line.
// Output uses CRLF line breaks; Prompt is written after it.
type TerminalOutputEvent struct {
	SessionID     string    `json:"session_id"`
	Cmd           string    `json:"cmd"`
	Output        string    `json:"output"`
	Prompt        string    `json:"prompt"`
	Context       string    `json:"context,omitempty"`
	IsError       bool      `json:"is_error,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	History       []string  `json:"history,omitempty"`
	EmittedAt     time.Time `json:"emitted_at"`
}

func (e TerminalOutputEvent) Subject() string      { return TerminalOutputSubject(e.SessionID) }
func (e TerminalOutputEvent) IsEvent()             {}
func (e TerminalOutputEvent) Timestamp() time.Time { return e.EmittedAt }
func (e TerminalOutputEvent) Validate() error {
	if e.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	return nil
}

// TerminalContextEvent indicates the session switched its command context
type TerminalContextEvent struct {
	SessionID string    `json:"session_id"`
	Context   string    `json:"context"`
	ChangedAt time.Time `json:"changed_at"`
}

func (e TerminalContextEvent) Subject() string      { return TerminalContextSubject(e.SessionID) }
func (e TerminalContextEvent) IsEvent()             {}
func (e TerminalContextEvent) Timestamp() time.Time { return e.ChangedAt }
func (e TerminalContextEvent) Validate() error {
	if e.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	return nil
}

// =============================================================================
// TERMINAL DOMAIN - REQUEST / REPLY
// =============================================================================

// ExecRequest asks for one command line to be evaluated synchronously.
// Without a SessionID no context or history is applied.
type ExecRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Cmd       string `json:"cmd"`
}

// ExecReply is the answer to an ExecRequest.
type ExecReply struct {
	Output  string `json:"output"`
	Prompt  string `json:"prompt"`
	IsError bool   `json:"is_error,omitempty"`
	Error   string `json:"error,omitempty"`
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func TerminalCommandSubject(sessionID string) string {
	return fmt.Sprintf("terminal.session.%s.command", sessionID)
}

func TerminalOutputSubject(sessionID string) string {
	return fmt.Sprintf("event.terminal.session.%s.output", sessionID)
}

func TerminalContextSubject(sessionID string) string {
	return fmt.Sprintf("event.terminal.session.%s.context", sessionID)
}
