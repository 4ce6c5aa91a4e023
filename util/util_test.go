package util

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectMatches(t *testing.T) {
	tests := []struct {
		pattern, subj string
		want          bool
	}{
		{"event.terminal.session.*.output", "event.terminal.session.abc.output", true},
		{"event.terminal.session.*.output", "event.terminal.session.abc.context", false},
		{"event.terminal.session.*.output", "event.terminal.session.output", false},
		{"event.>", "event.terminal.session.abc.output", true},
		{">", "anything.at.all", true},
		{"terminal.exec", "terminal.exec", true},
		{"terminal.exec", "terminal.exec.more", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.subj, func(t *testing.T) {
			assert.Equal(t, tt.want, SubjectMatches(tt.pattern, tt.subj))
		})
	}
}

func TestSubjectToken(t *testing.T) {
	subj := "terminal.session.abc.command"
	assert.Equal(t, "terminal", SubjectToken(subj, 0))
	assert.Equal(t, "abc", SubjectToken(subj, 2))
	assert.Equal(t, "command", SubjectToken(subj, 3))
	assert.Equal(t, "", SubjectToken(subj, 4))
	assert.Equal(t, "", SubjectToken("", 1))
}

func TestMarkdownToHTML(t *testing.T) {
	src := []byte("# Commands\n\n| Command | Description |\n|---|---|\n| `echo` | Print |\n")
	comp, err := MarkdownToHTML("test-help", src)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, comp.Render(context.Background(), &buf))
	out := buf.String()
	assert.Contains(t, out, "<h1>Commands</h1>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<code>echo</code>")

	// cached under the same key
	again, err := MarkdownToHTML("test-help", []byte("ignored"))
	require.NoError(t, err)
	var buf2 bytes.Buffer
	require.NoError(t, again.Render(context.Background(), &buf2))
	assert.Equal(t, out, buf2.String())
}
