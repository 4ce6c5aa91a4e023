package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/xid"
)

// =============================================================================
// CONSTRUCTORS - Easy message creation
// =============================================================================

// NewTerminalCommandMessage creates a terminal command message with a fresh
// correlation id.
func NewTerminalCommandMessage(sessionID, cmd string) *TerminalCommandMessage {
	return &TerminalCommandMessage{
		SessionID:     sessionID,
		Cmd:           cmd,
		CorrelationID: xid.New().String(),
	}
}

// WithCorrelation overrides the correlation ID
func (c *TerminalCommandMessage) WithCorrelation(id string) *TerminalCommandMessage {
	c.CorrelationID = id
	return c
}

// NewTerminalOutputEvent creates a terminal output event
func NewTerminalOutputEvent(sessionID, cmd, output, prompt string) *TerminalOutputEvent {
	return &TerminalOutputEvent{
		SessionID: sessionID,
		Cmd:       cmd,
		Output:    output,
		Prompt:    prompt,
		EmittedAt: time.Now(),
	}
}

// WithContext records the command context active when the output was produced
func (e *TerminalOutputEvent) WithContext(name string) *TerminalOutputEvent {
	e.Context = name
	return e
}

// WithCorrelation adds correlation ID to the output event
func (e *TerminalOutputEvent) WithCorrelation(id string) *TerminalOutputEvent {
	e.CorrelationID = id
	return e
}

// WithHistory attaches the session history after the command ran
func (e *TerminalOutputEvent) WithHistory(history []string) *TerminalOutputEvent {
	e.History = history
	return e
}

// AsError flags the output as an error result
func (e *TerminalOutputEvent) AsError(isErr bool) *TerminalOutputEvent {
	e.IsError = isErr
	return e
}

// NewTerminalContextEvent creates a context change event
func NewTerminalContextEvent(sessionID, name string) *TerminalContextEvent {
	return &TerminalContextEvent{
		SessionID: sessionID,
		Context:   name,
		ChangedAt: time.Now(),
	}
}

// =============================================================================
// VALIDATION - Implementation of Validate() methods
// =============================================================================

// MaxCommandLength is the longest command line, in characters, a session
// may submit.
const MaxCommandLength = 4096

// CheckCommandLength rejects command lines longer than MaxCommandLength.
func CheckCommandLength(cmd string) error {
	if n := utf8.RuneCountInString(cmd); n > MaxCommandLength {
		return fmt.Errorf("cmd is %d characters long, the limit is %d", n, MaxCommandLength)
	}
	return nil
}

var sessionIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validateTerminalCommand implements validation for TerminalCommandMessage
func validateTerminalCommand(c TerminalCommandMessage) error {
	if c.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if !sessionIDRegex.MatchString(c.SessionID) {
		return fmt.Errorf("session_id must contain only alphanumeric characters, hyphens, and underscores")
	}
	if c.Cmd == "" {
		return fmt.Errorf("cmd is required")
	}
	return CheckCommandLength(c.Cmd)
}

// =============================================================================
// PUBLISHER - Type-safe message publishing
// =============================================================================

// Publisher validates messages and publishes them as JSON on their own
// subject.
type Publisher struct {
	js jetstream.JetStream
}

func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishCommand publishes cmd once it validates.
func (p *Publisher) PublishCommand(ctx context.Context, cmd Command) error {
	return p.publish(ctx, "command", cmd)
}

// PublishEvent publishes evt once it validates.
func (p *Publisher) PublishEvent(ctx context.Context, evt Event) error {
	return p.publish(ctx, "event", evt)
}

func (p *Publisher) publish(ctx context.Context, kind string, m Message) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%s validation failed: %w", kind, err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	if _, err := p.js.Publish(ctx, m.Subject(), data); err != nil {
		return fmt.Errorf("publish %s %s: %w", kind, m.Subject(), err)
	}
	return nil
}

// =============================================================================
// UTILITIES - Helper functions for common operations
// =============================================================================

// BuildCommand creates a typed command from UI form data
func BuildCommand(messageType string, data map[string]any) (Command, error) {
	switch messageType {
	case "TerminalCommandMessage":
		sessionID, _ := data["session_id"].(string)
		cmdText, _ := data["cmd"].(string)
		cmd := NewTerminalCommandMessage(sessionID, cmdText)
		if corrID, ok := data["correlation_id"].(string); ok && corrID != "" {
			cmd.CorrelationID = corrID
		}
		return cmd, nil

	default:
		return nil, fmt.Errorf("unknown command type: %s", messageType)
	}
}

// GetCommandTypes returns all available command message types
func GetCommandTypes() []string {
	return []string{
		"TerminalCommandMessage",
	}
}
