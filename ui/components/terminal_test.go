package components

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripANSI(t *testing.T) {
	assert.Equal(t, "error", StripANSI("\x1b[31merror\x1b[39m"))
	assert.Equal(t, "", StripANSI("\x1b[2J\x1b[3J\x1b[H"))
	assert.Equal(t, "plain", StripANSI("plain"))
}

func TestTranscriptLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TranscriptLine("echo <b>", "\x1b[31mfail & stop\x1b[39m", true).Render(context.Background(), &buf))
	out := buf.String()
	assert.Contains(t, out, "$ echo &lt;b&gt;")
	assert.Contains(t, out, "fail &amp; stop")
	assert.Contains(t, out, "transcript-error")
	assert.NotContains(t, out, "\x1b")
}
