package runtime

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"xtermshell/internal/session"
)

var contextNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// UseCommand selects the command context. Later lines are sent to the shell
// prefixed with "<context>-".
// Usage: use <context>
type UseCommand struct{}

func (c *UseCommand) Name() string { return "use" }
func (c *UseCommand) Help() string {
	return "use <context> - prefix following commands with <context>-"
}
func (c *UseCommand) Execute(ctx context.Context, sessionID string, state session.State, args []string) (session.State, CommandResult) {
	if len(args) < 2 {
		return state, CommandResult{Output: "usage: use <context>", IsError: true}
	}
	name := args[1]
	if !contextNameRegex.MatchString(name) {
		return state, CommandResult{Output: fmt.Sprintf("invalid context name: %s", name), IsError: true}
	}
	state.Context = name
	return state, CommandResult{}
}

// UnuseCommand leaves the current command context. It is registered under
// both "unuse" and "reset".
// Usage: unuse | reset
type UnuseCommand struct{ name string }

func (c *UnuseCommand) Name() string { return c.name }
func (c *UnuseCommand) Help() string { return c.name + " - leave the current command context" }
func (c *UnuseCommand) Execute(ctx context.Context, sessionID string, state session.State, args []string) (session.State, CommandResult) {
	state.Context = ""
	return state, CommandResult{}
}

// HistoryCommand lists or clears the command history of the session.
// Usage: history [n] | history clear
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string { return "history" }
func (c *HistoryCommand) Help() string {
	return "history [n] - show the last n commands; history clear - forget them"
}
func (c *HistoryCommand) Execute(ctx context.Context, sessionID string, state session.State, args []string) (session.State, CommandResult) {
	n := 0
	if len(args) > 1 {
		if args[1] == "clear" {
			state.History = nil
			return state, CommandResult{Output: "history cleared"}
		}
		v, err := strconv.Atoi(args[1])
		if err != nil || v < 0 {
			return state, CommandResult{Output: "usage: history [n|clear]", IsError: true}
		}
		n = v
	}
	entries := state.HistoryList().Last(n)
	offset := len(state.History) - len(entries)
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%5d  %s", offset+i+1, e)
	}
	return state, CommandResult{Output: strings.Join(lines, "\n")}
}

// EnvCommand manages session environment variables. They are handed to
// process commands started from this session.
// Usage: env set KEY=VALUE | env unset KEY | env list | env clear
type EnvCommand struct{}

func (c *EnvCommand) Name() string { return "env" }
func (c *EnvCommand) Help() string {
	return `env set KEY=VALUE   Set a session environment variable
env unset KEY       Remove one variable
env list            List session environment variables
env clear           Remove all session environment variables`
}
func (c *EnvCommand) Execute(ctx context.Context, sessionID string, state session.State, args []string) (session.State, CommandResult) {
	if len(args) < 2 {
		return state, CommandResult{Output: "usage: env [set|unset|list|clear]", IsError: true}
	}
	sub := args[1]
	switch sub {
	case "set":
		if len(args) < 3 || !strings.Contains(args[2], "=") {
			return state, CommandResult{Output: "usage: env set KEY=VALUE", IsError: true}
		}
		key, val, _ := strings.Cut(strings.Join(args[2:], " "), "=")
		if key == "" {
			return state, CommandResult{Output: "usage: env set KEY=VALUE", IsError: true}
		}
		if state.Env == nil {
			state.Env = make(map[string]string)
		}
		state.Env[key] = val
		return state, CommandResult{Output: fmt.Sprintf("set %s=%s", key, val)}
	case "unset":
		if len(args) < 3 {
			return state, CommandResult{Output: "usage: env unset KEY", IsError: true}
		}
		delete(state.Env, args[2])
		return state, CommandResult{Output: "unset " + args[2]}
	case "list":
		if len(state.Env) == 0 {
			return state, CommandResult{Output: "no session environment variables set"}
		}
		keys := make([]string, 0, len(state.Env))
		for k := range state.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, len(keys))
		for i, k := range keys {
			lines[i] = fmt.Sprintf("%s=%s", k, state.Env[k])
		}
		return state, CommandResult{Output: "session environment:\n  " + strings.Join(lines, "\n  ")}
	case "clear":
		state.Env = nil
		return state, CommandResult{Output: "cleared all session environment variables"}
	default:
		return state, CommandResult{Output: "unknown env command: " + sub, IsError: true}
	}
}

// DefaultCommands returns the session commands every engine handles.
func DefaultCommands() []TerminalCommand {
	return []TerminalCommand{
		&UseCommand{},
		&UnuseCommand{name: "unuse"},
		&UnuseCommand{name: "reset"},
		&HistoryCommand{},
		&EnvCommand{},
	}
}
