package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"

	"xtermshell/util"

	"github.com/a-h/templ"
	"github.com/nats-io/nats.go/jetstream"
	datastar "github.com/starfederation/datastar/sdk/go"
)

// RenderFunc writes one event message to a browser terminal's SSE stream.
type RenderFunc func(ctx context.Context, msg jetstream.Msg, sse *datastar.ServerSentEventGenerator) error

// Renderer handles the messages whose subject matches Pattern.
type Renderer struct {
	Pattern string
	Render  RenderFunc
}

// Matches reports whether subj is handled by r.
func (r Renderer) Matches(subj string) bool { return util.SubjectMatches(r.Pattern, subj) }

// RendererSpec builds a Renderer for any subject covered by Pattern.
type RendererSpec struct {
	Pattern string
	Build   func(subj string) Renderer
}

// Specs is filled by renderers.go during init and treated as read-only.
var Specs []RendererSpec

// ForSubjects returns one renderer per subscribed subject that some spec
// covers, in subject order, followed by the fallback.
func ForSubjects(subjects []string) []Renderer {
	var out []Renderer
	for _, subj := range subjects {
		for _, spec := range Specs {
			if util.SubjectMatches(spec.Pattern, subj) {
				out = append(out, spec.Build(subj))
				break
			}
		}
	}
	return append(out, fallback)
}

// Dispatch renders msg with the first matching renderer.
func Dispatch(ctx context.Context, renderers []Renderer, msg jetstream.Msg, sse *datastar.ServerSentEventGenerator) error {
	for _, r := range renderers {
		if r.Matches(msg.Subject()) {
			return r.Render(ctx, msg, sse)
		}
	}
	return nil
}

// typed decodes the JSON payload strictly into T before calling handler.
func typed[T any](pattern string, handler func(context.Context, jetstream.Msg, *datastar.ServerSentEventGenerator, T) error) Renderer {
	return Renderer{Pattern: pattern, Render: func(ctx context.Context, msg jetstream.Msg, sse *datastar.ServerSentEventGenerator) error {
		var p T
		dec := json.NewDecoder(bytes.NewReader(msg.Data()))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("decode %T: %w", p, err)
		}
		return handler(ctx, msg, sse, p)
	}}
}

// fallback appends anything else to the transcript as <pre>.
var fallback = Renderer{
	Pattern: ">",
	Render: func(ctx context.Context, msg jetstream.Msg, sse *datastar.ServerSentEventGenerator) error {
		frag := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			_, err := fmt.Fprintf(w, "<pre>%s\n%s</pre>", html.EscapeString(msg.Subject()), html.EscapeString(string(msg.Data())))
			return err
		})
		return sse.MergeFragmentTempl(frag,
			datastar.WithSelectorID("terminal-transcript"),
			datastar.WithMergeAppend(),
		)
	},
}
