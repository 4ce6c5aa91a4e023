package xterm

import (
	"fmt"
	"strings"
)

// Color is a basic 8-colour ANSI foreground. Default leaves the terminal's
// current colour untouched.
type Color int

const (
	Default Color = iota
	Black
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
)

// Style describes how a Styled text is drawn.
type Style struct {
	Fg   Color
	Bold bool
}

// DefaultStyle draws plain text.
var DefaultStyle = Style{}

// Foreground returns a copy of s with the foreground colour set.
func (s Style) Foreground(c Color) Style {
	s.Fg = c
	return s
}

// WithBold returns a copy of s drawn in bold.
func (s Style) WithBold() Style {
	s.Bold = true
	return s
}

// Styled is text carrying a display style. Shell commands return it when
// their output should be coloured in the browser terminal.
type Styled struct {
	Text  string
	Style Style
}

// NewStyled is shorthand for Styled{Text: text, Style: style}.
func NewStyled(text string, style Style) Styled {
	return Styled{Text: text, Style: style}
}

// ANSI renders the text wrapped in SGR sequences. Only the attributes that
// were switched on are reset afterwards.
func (s Styled) ANSI() string {
	if s.Text == "" {
		return ""
	}
	var b strings.Builder
	if s.Style.Bold {
		b.WriteString("\x1b[1m")
	}
	if s.Style.Fg != Default {
		fmt.Fprintf(&b, "\x1b[%dm", 29+int(s.Style.Fg))
	}
	b.WriteString(s.Text)
	if s.Style.Fg != Default {
		b.WriteString("\x1b[39m")
	}
	if s.Style.Bold {
		b.WriteString("\x1b[22m")
	}
	return b.String()
}

// String returns the unstyled text.
func (s Styled) String() string { return s.Text }
