package xterm

import (
	"context"
	"fmt"
	"log/slog"
)

// CommandHandler executes command lines coming from xterm.js and turns the
// results into terminal-ready text.
type CommandHandler struct {
	shell Evaluator
}

func NewCommandHandler(shell Evaluator) *CommandHandler {
	return &CommandHandler{shell: shell}
}

// ExecuteCommand evaluates commandLine and yields exactly one string.
// Deferred shell results are passed through with their line breaks
// normalized once they resolve; a deferred that fails yields the error text.
func (h *CommandHandler) ExecuteCommand(ctx context.Context, commandLine string) (out *Deferred[string]) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("xterm: rendering result panicked", "line", commandLine, "panic", r)
			out = Just(ErrorText(fmt.Errorf("cannot display result: %v", r)))
		}
	}()
	result := h.shell.Evaluate(ctx, commandLine)
	text, deferred := Render(result)
	if deferred != nil {
		return Map(recoverText(deferred), FormatLineBreak)
	}
	return Just(FormatLineBreak(text))
}

// recoverText maps a failed deferred to its error text. Cancellation of the
// awaiting context is still reported as an error.
func recoverText(d *Deferred[string]) *Deferred[string] {
	return Defer(func(ctx context.Context) (string, error) {
		text, err := d.Await(ctx)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", err
		}
		slog.Debug("xterm: deferred result failed", "err", err)
		return ErrorText(err), nil
	})
}
