package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"xtermshell/internal/messages"
	"xtermshell/internal/session"
	components "xtermshell/ui/components"

	"github.com/nats-io/nats.go/jetstream"
	datastar "github.com/starfederation/datastar/sdk/go"
)

// ─────────────────── TERMINAL EVENTS ───────────────────

// Page hooks of the xterm.js instance: write receives output, restore the
// session state on connect.
const (
	xtermWrite   = "window.xtermshell && window.xtermshell.write"
	xtermRestore = "window.xtermshell && window.xtermshell.restore"
)

// xtermUpdate is the argument of the page hooks.
type xtermUpdate struct {
	Output  string   `json:"output,omitempty"`
	Prompt  string   `json:"prompt"`
	History []string `json:"history,omitempty"`
}

func callHook(sse *datastar.ServerSentEventGenerator, hook string, u xtermUpdate) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return sse.ExecuteScript(fmt.Sprintf("%s(%s)", hook, payload))
}

func renderOutput(ctx context.Context, msg jetstream.Msg, sse *datastar.ServerSentEventGenerator, evt messages.TerminalOutputEvent) error {
	// 1. append transcript line
	if err := sse.MergeFragmentTempl(
		components.TranscriptLine(evt.Cmd, evt.Output, evt.IsError),
		datastar.WithSelectorID("terminal-transcript"),
		datastar.WithMergeAppend(),
	); err != nil {
		return err
	}

	// 2. hand the raw text and the history to xterm.js
	return callHook(sse, xtermWrite, xtermUpdate{Output: evt.Output, Prompt: evt.Prompt, History: evt.History})
}

// RenderSessionState sends the stored prompt and history of a session to a
// page that just connected.
func RenderSessionState(sse *datastar.ServerSentEventGenerator, st session.State) error {
	return callHook(sse, xtermRestore, xtermUpdate{Prompt: st.Prompt(), History: st.History})
}

func renderContext(ctx context.Context, msg jetstream.Msg, sse *datastar.ServerSentEventGenerator, evt messages.TerminalContextEvent) error {
	return sse.MarshalAndMergeSignals(map[string]string{"context": evt.Context})
}

// ─────────────────── REGISTRY ──────────────────────────

func init() {
	Specs = []RendererSpec{
		{Pattern: messages.TerminalOutputSubjectPattern, Build: func(subj string) Renderer {
			return typed[messages.TerminalOutputEvent](subj, renderOutput)
		}},
		{Pattern: messages.TerminalContextSubjectPattern, Build: func(subj string) Renderer {
			return typed[messages.TerminalContextEvent](subj, renderContext)
		}},
	}
}

// SessionSubjects lists the event subjects a browser session listens to.
func SessionSubjects(sid string) []string {
	return []string{
		messages.TerminalContextSubject(sid),
		messages.TerminalOutputSubject(sid),
	}
}
