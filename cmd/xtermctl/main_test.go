package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"xtermshell/internal/platform"
	"xtermshell/internal/testutil"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, sid string) *client {
	t.Helper()
	nc, _ := testutil.RunJetStream(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	_, err := platform.NewApp(ctx, nc, &platform.TerminalConfig{
		Version:        "9.9.9",
		CommandTimeout: time.Second,
		Storage:        jetstream.MemoryStorage,
	}, prometheus.NewRegistry())
	require.NoError(t, err)
	return &client{nc: nc, session: sid, timeout: 2 * time.Second, prompt: "\r\n$"}
}

func TestClient_Exec(t *testing.T) {
	c := newClient(t, "cli-test")

	reply, err := c.exec(context.Background(), "version")
	require.NoError(t, err)
	assert.Equal(t, "9.9.9", reply.Output)
	assert.False(t, reply.IsError)

	_, err = c.exec(context.Background(), "use db")
	require.NoError(t, err)
	assert.Equal(t, "\r\n[db]$", c.prompt)
}

func TestClient_ExecBadSession(t *testing.T) {
	c := newClient(t, "not a session")
	_, err := c.exec(context.Background(), "version")
	assert.Error(t, err)
}

func TestClient_Repl(t *testing.T) {
	c := newClient(t, "cli-repl")

	var out strings.Builder
	err := c.repl(context.Background(), strings.NewReader("use redis\n\nnope\nexit\necho unreachable\n"), &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "\r\n[redis]$ ")
	assert.Contains(t, text, "No command found for 'redis-nope'")
	assert.NotContains(t, text, "unreachable")
}
