package xterm

import "context"

// CustomizedCommand is a named command that can be plugged into the shell.
// Execute receives the raw argument string after the command name, which is
// empty when the command was invoked bare. The returned value goes through
// Render like any other shell result.
type CustomizedCommand interface {
	Name() string
	Execute(ctx context.Context, arguments string) any
}

// Evaluator is the interactive shell the terminal talks to. Evaluate never
// returns a Go error: failures come back as error values in the result.
type Evaluator interface {
	Evaluate(ctx context.Context, line string) any
}

// EvaluatorFunc adapts a plain function to Evaluator.
type EvaluatorFunc func(ctx context.Context, line string) any

func (f EvaluatorFunc) Evaluate(ctx context.Context, line string) any { return f(ctx, line) }
