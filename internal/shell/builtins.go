package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"xtermshell/internal/xterm"
)

// ClearScreen erases the display and homes the cursor.
const ClearScreen = "\x1b[2J\x1b[3J\x1b[H"

func builtins(s *Shell) []xterm.CustomizedCommand {
	return []xterm.CustomizedCommand{
		NewCommand("help", "Display help about available commands.", s.help),
		NewCommand("echo", "Print the arguments back.", func(_ context.Context, args string) any {
			return args
		}),
		NewCommand("date", "Show the current server time.", func(_ context.Context, _ string) any {
			return time.Now().Format(time.RFC1123)
		}),
		NewCommand("version", "Show the shell version.", func(_ context.Context, _ string) any {
			return s.version
		}),
		NewCommand("clear", "Clear the terminal screen.", func(_ context.Context, _ string) any {
			return ClearScreen
		}),
		NewCommand("stacktrace", "Display the full details of the last error.", s.stacktrace),
	}
}

func (s *Shell) help(_ context.Context, args string) any {
	if topic := strings.TrimSpace(args); topic != "" {
		cmd, ok := s.Lookup(topic)
		if !ok {
			return &CommandNotFoundError{Name: topic}
		}
		return fmt.Sprintf("%s - %s", topic, describe(cmd))
	}

	names := s.Names()
	width := 0
	for _, n := range names {
		width = max(width, len(n))
	}
	lines := []string{xterm.NewStyled("AVAILABLE COMMANDS", xterm.DefaultStyle.WithBold()).ANSI(), ""}
	for _, n := range names {
		cmd, _ := s.Lookup(n)
		lines = append(lines, fmt.Sprintf("  %-*s  %s", width, n, describe(cmd)))
	}
	return lines
}

func (s *Shell) stacktrace(_ context.Context, _ string) any {
	err := s.LastError()
	if err == nil {
		return "No error to report"
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe.Error() + "\n" + string(pe.Stack)
	}
	var lines []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		lines = append(lines, fmt.Sprintf("%T: %s", e, e.Error()))
	}
	return strings.Join(lines, "\n")
}

// Help returns name/description pairs for every registered command.
func (s *Shell) Help() map[string]string {
	out := make(map[string]string)
	for _, n := range s.Names() {
		cmd, _ := s.Lookup(n)
		out[n] = describe(cmd)
	}
	return out
}

func describe(cmd xterm.CustomizedCommand) string {
	if d, ok := cmd.(Describer); ok {
		return d.Description()
	}
	return ""
}
