package messages_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"xtermshell/internal/messages"
	"xtermshell/internal/testutil"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjects(t *testing.T) {
	assert.Equal(t, "terminal.session.abc.command", messages.TerminalCommandSubject("abc"))
	assert.Equal(t, "event.terminal.session.abc.output", messages.TerminalOutputSubject("abc"))
	assert.Equal(t, "event.terminal.session.abc.context", messages.TerminalContextSubject("abc"))

	cmd := messages.NewTerminalCommandMessage("abc", "help")
	assert.Equal(t, messages.TerminalCommandSubject("abc"), cmd.Subject())
	assert.NotEmpty(t, cmd.CorrelationID)
}

func TestTerminalCommandMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     messages.TerminalCommandMessage
		wantErr bool
	}{
		{"ok", messages.TerminalCommandMessage{SessionID: "a-b_1", Cmd: "ls"}, false},
		{"missing session", messages.TerminalCommandMessage{Cmd: "ls"}, true},
		{"dotted session", messages.TerminalCommandMessage{SessionID: "a.b", Cmd: "ls"}, true},
		{"wildcard session", messages.TerminalCommandMessage{SessionID: "*", Cmd: "ls"}, true},
		{"missing cmd", messages.TerminalCommandMessage{SessionID: "a"}, true},
		{"cmd at limit", messages.TerminalCommandMessage{SessionID: "a", Cmd: strings.Repeat("x", messages.MaxCommandLength)}, false},
		{"multibyte cmd at limit", messages.TerminalCommandMessage{SessionID: "a", Cmd: strings.Repeat("é", messages.MaxCommandLength)}, false},
		{"cmd too long", messages.TerminalCommandMessage{SessionID: "a", Cmd: strings.Repeat("x", messages.MaxCommandLength+1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			data, _ := json.Marshal(tt.msg)
			assert.Equal(t, tt.wantErr, messages.ValidateTerminalPayload(data) != nil, "schema and Validate disagree")
		})
	}
}

func TestDecodeTerminalCommand(t *testing.T) {
	got, err := messages.DecodeTerminalCommand([]byte(`{"session_id":"s1","cmd":"echo hi","correlation_id":"c1"}`))
	require.NoError(t, err)
	assert.Equal(t, messages.TerminalCommandMessage{SessionID: "s1", Cmd: "echo hi", CorrelationID: "c1"}, got)

	bad := []string{
		`{"session_id":"s1"}`,
		`{"session_id":"s.1","cmd":"x"}`,
		`{"session_id":"s1","cmd":""}`,
		`{"session_id":"s1","cmd":"x","extra":true}`,
		`{"session_id":1,"cmd":"x"}`,
		`not json`,
	}
	for _, b := range bad {
		_, err := messages.DecodeTerminalCommand([]byte(b))
		assert.Error(t, err, b)
	}
}

func TestBuildCommand(t *testing.T) {
	cmd, err := messages.BuildCommand("TerminalCommandMessage", map[string]any{
		"session_id":     "s1",
		"cmd":            "help",
		"correlation_id": "req-1",
	})
	require.NoError(t, err)
	tc, ok := cmd.(*messages.TerminalCommandMessage)
	require.True(t, ok)
	assert.Equal(t, "req-1", tc.CorrelationID)
	assert.NoError(t, tc.Validate())

	_, err = messages.BuildCommand("Nope", nil)
	assert.Error(t, err)
	assert.Equal(t, []string{"TerminalCommandMessage"}, messages.GetCommandTypes())
}

func TestPublisher(t *testing.T) {
	ctx := context.Background()
	_, js := testutil.RunJetStream(t)
	stream, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     messages.EventStream,
		Subjects: []string{"event.>"},
		Storage:  jetstream.MemoryStorage,
	})
	require.NoError(t, err)

	pub := messages.NewPublisher(js)
	evt := messages.NewTerminalOutputEvent("s1", "help", "a\r\nb", "\r\n$").WithContext("redis").AsError(true)
	require.NoError(t, pub.PublishEvent(ctx, evt))

	msg, err := stream.GetLastMsgForSubject(ctx, messages.TerminalOutputSubject("s1"))
	require.NoError(t, err)
	var got messages.TerminalOutputEvent
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "a\r\nb", got.Output)
	assert.Equal(t, "redis", got.Context)
	assert.True(t, got.IsError)

	err = pub.PublishEvent(ctx, &messages.TerminalOutputEvent{})
	assert.Error(t, err)
	err = pub.PublishCommand(ctx, &messages.TerminalCommandMessage{SessionID: "s1"})
	assert.Error(t, err)
}
