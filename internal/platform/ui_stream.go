package platform

import (
	"context"
	"log/slog"
	"net/http"

	"xtermshell/internal/messages"
	"xtermshell/internal/runtime"
	"xtermshell/internal/session"

	"github.com/nats-io/nats.go/jetstream"
	datastar "github.com/starfederation/datastar/sdk/go"
)

// TerminalStream is the SSE handler for /terminal/stream. It first restores
// the stored prompt and history, then follows the session's output and
// context events from the moment the page connects.
func TerminalStream(js jetstream.JetStream, sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := SessionID(r)
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		subs := runtime.SessionSubjects(sid)
		cons, err := js.OrderedConsumer(ctx, messages.EventStream, jetstream.OrderedConsumerConfig{
			FilterSubjects: subs,
			DeliverPolicy:  jetstream.DeliverNewPolicy,
		})
		if err != nil {
			slog.Warn("stream: consumer not created", "sid", sid, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		sse := datastar.NewSSE(w, r)
		if st, err := sessions.Load(ctx, sid); err != nil {
			slog.Warn("stream: session not restored", "sid", sid, "err", err)
		} else if err := runtime.RenderSessionState(sse, st); err != nil {
			slog.Warn("stream: restore", "sid", sid, "err", err)
		}
		renderers := runtime.ForSubjects(subs)

		// Consume callbacks run serially; sse has a single writer.
		cc, err := cons.Consume(func(msg jetstream.Msg) {
			if err := runtime.Dispatch(ctx, renderers, msg, sse); err != nil {
				slog.Warn("stream: render", "subj", msg.Subject(), "err", err)
			}
		})
		if err != nil {
			slog.Warn("stream: consume failed", "sid", sid, "err", err)
			return
		}
		defer cc.Stop()

		<-ctx.Done() // Wait for disconnect
	}
}
