package components

import (
	"context"
	"fmt"
	"html"
	"io"
	"regexp"

	"github.com/a-h/templ"
)

var sgrPattern = regexp.MustCompile("\x1b\\[[0-9;]*[A-Za-z]")

// StripANSI removes terminal escape sequences so output can be shown as HTML.
func StripANSI(s string) string {
	return sgrPattern.ReplaceAllString(s, "")
}

// TranscriptLine renders one command and its output for the transcript log.
func TranscriptLine(cmd, output string, isErr bool) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		class := "transcript-output"
		if isErr {
			class += " transcript-error"
		}
		_, err := fmt.Fprintf(w,
			"<div class=\"transcript-line\"><kbd>$ %s</kbd><pre class=\"%s\">%s</pre></div>",
			html.EscapeString(cmd), class, html.EscapeString(StripANSI(output)))
		return err
	})
}
