package runtime

import (
	"context"

	"xtermshell/internal/session"
)

// CommandResult defines what the terminal should display after execution.
type CommandResult struct {
	Output  string
	IsError bool
}

// TerminalCommand is a command that works on the session itself rather than
// being sent to the shell (switching context, history, session env).
type TerminalCommand interface {
	// Name returns the command name, e.g. "use".
	Name() string
	// Help returns the help text for the command.
	Help() string
	// Execute runs the command against the given session state and arguments
	// (args[0] is the command name), returning the new state and the output.
	Execute(ctx context.Context, sessionID string, state session.State, args []string) (session.State, CommandResult)
}
