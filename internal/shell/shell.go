// Package shell is the interactive command evaluator behind the browser
// terminal. Commands are xterm.CustomizedCommand values looked up by the
// first word of the command line.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"sync"

	"xtermshell/internal/xterm"
)

// CommandNotFoundError is the result of evaluating a line whose first word
// names no registered command.
type CommandNotFoundError struct {
	Name string
}

func (e *CommandNotFoundError) Error() string {
	return fmt.Sprintf("No command found for '%s'", e.Name)
}

// PanicError is produced when a command panics while executing.
type PanicError struct {
	Command string
	Value   any
	Stack   []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Value)
}

// Describer is implemented by commands that provide a one-line description
// for help output.
type Describer interface {
	Description() string
}

var ErrInvalidCommand = errors.New("invalid command")

// Shell evaluates command lines against a registry of commands.
type Shell struct {
	version string

	mu       sync.RWMutex
	commands map[string]xterm.CustomizedCommand
	lastErr  error
}

// New returns a Shell with the built-in commands registered.
func New(version string) *Shell {
	s := &Shell{
		version:  version,
		commands: make(map[string]xterm.CustomizedCommand),
	}
	if err := s.Register(builtins(s)...); err != nil {
		panic(err)
	}
	return s
}

// Register adds commands. Names must be non-empty, contain no whitespace and
// be unique within the shell.
func (s *Shell) Register(cmds ...xterm.CustomizedCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cmds {
		name := c.Name()
		if name == "" || strings.ContainsAny(name, " \t\r\n") {
			return fmt.Errorf("%w: bad name %q", ErrInvalidCommand, name)
		}
		if _, dup := s.commands[name]; dup {
			return fmt.Errorf("%w: %s already registered", ErrInvalidCommand, name)
		}
		s.commands[name] = c
	}
	return nil
}

// Lookup returns the command registered under name.
func (s *Shell) Lookup(name string) (xterm.CustomizedCommand, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.commands[name]
	return c, ok
}

// Names returns the registered command names in sorted order.
func (s *Shell) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.commands))
	for n := range s.commands {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Evaluate runs one command line. An empty line evaluates to nil. Error
// results, including deferred results that later fail, are remembered for
// stacktrace.
func (s *Shell) Evaluate(ctx context.Context, line string) (result any) {
	name, args := splitLine(line)
	if name == "" {
		return nil
	}
	cmd, ok := s.Lookup(name)
	if !ok {
		return s.fail(&CommandNotFoundError{Name: name})
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("shell: command panicked", "command", name, "panic", r)
			result = s.fail(&PanicError{Command: name, Value: r, Stack: debug.Stack()})
		}
	}()

	result = cmd.Execute(ctx, args)
	if xterm.IsNil(result) {
		return nil
	}
	switch v := result.(type) {
	case error:
		return s.fail(v)
	case *xterm.Deferred[string]:
		return xterm.OnError(v, func(err error) { s.fail(err) })
	}
	return result
}

// LastError returns the most recent error result, if any.
func (s *Shell) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Shell) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return err
}

// splitLine separates the command name from the raw argument string.
func splitLine(line string) (name, args string) {
	line = strings.TrimSpace(line)
	i := strings.IndexFunc(line, isSpace)
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i:])
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\r' || r == '\n' }

// Command is a CustomizedCommand built from a function.
type Command struct {
	name string
	desc string
	fn   func(ctx context.Context, arguments string) any
}

// NewCommand builds a Command.
func NewCommand(name, desc string, fn func(ctx context.Context, arguments string) any) *Command {
	return &Command{name: name, desc: desc, fn: fn}
}

func (c *Command) Name() string        { return c.name }
func (c *Command) Description() string { return c.desc }
func (c *Command) Execute(ctx context.Context, arguments string) any {
	return c.fn(ctx, arguments)
}
