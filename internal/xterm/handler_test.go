package xterm

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedShell(result any) Evaluator {
	return EvaluatorFunc(func(ctx context.Context, line string) any { return result })
}

func TestCommandHandler_ExecuteCommand(t *testing.T) {
	tests := []struct {
		name   string
		result any
		want   string
	}{
		{"plain text normalized", "a\nb", "a\r\nb"},
		{"crlf untouched", "a\r\nb", "a\r\nb"},
		{"collection", []string{"one", "two"}, "one\r\ntwo"},
		{"error red", errors.New("No command found for 'x'"), "\x1b[31mNo command found for 'x'\x1b[39m"},
		{"multi-line error", errors.New("line1\nline2"), "\x1b[31mline1\r\nline2\x1b[39m"},
		{"styled", NewStyled("warn", DefaultStyle.Foreground(Yellow)), "\x1b[33mwarn\x1b[39m"},
		{"deferred", Just("x\ny"), "x\r\ny"},
		{"nil", nil, ""},
		{"number", 3.5, "3.5"},
		{"nil error pointer", (*fs.PathError)(nil), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCommandHandler(fixedShell(tt.result))
			got, err := h.ExecuteCommand(context.Background(), "anything").Await(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandHandler_PassesLineToShell(t *testing.T) {
	var seen string
	h := NewCommandHandler(EvaluatorFunc(func(ctx context.Context, line string) any {
		seen = line
		return "ok"
	}))
	_, err := h.ExecuteCommand(context.Background(), "redis-get foo").Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "redis-get foo", seen)
}

func TestCommandHandler_FailedDeferredYieldsErrorText(t *testing.T) {
	h := NewCommandHandler(fixedShell(Fail[string](errors.New("exit status 1"))))
	got, err := h.ExecuteCommand(context.Background(), "run").Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "\x1b[31mexit status 1\x1b[39m", got)
}

func TestCommandHandler_CancelledDeferred(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	pending := Defer(func(ctx context.Context) (string, error) {
		<-block
		return "", nil
	})
	h := NewCommandHandler(fixedShell(pending))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.ExecuteCommand(ctx, "slow").Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type explodingStringer struct{}

func (explodingStringer) String() string { panic("no string form") }

func TestCommandHandler_RenderPanicYieldsErrorText(t *testing.T) {
	h := NewCommandHandler(fixedShell(explodingStringer{}))
	got, err := h.ExecuteCommand(context.Background(), "odd").Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "\x1b[31mcannot display result: no string form\x1b[39m", got)
}
