// Package ui serves the browser side of the terminal: the page hosting
// xterm.js and its static assets.
package ui

import (
	"context"
	"embed"
	"io"

	"github.com/a-h/templ"
)

//go:embed static
var StaticFS embed.FS

//go:embed static/favicon.svg
var FaviconSVG []byte

const (
	xtermVersion    = "5.3.0"
	datastarVersion = "v0.21.4"
)

// Index renders the terminal page. The SSE stream is opened by datastar on
// load; terminal.js owns the xterm.js instance and line editing.
func Index() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>xtermshell</title>
<link rel="icon" href="/favicon.svg" type="image/svg+xml">
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/xterm@`+xtermVersion+`/css/xterm.css">
<script src="https://cdn.jsdelivr.net/npm/xterm@`+xtermVersion+`/lib/xterm.js"></script>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@`+datastarVersion+`/bundles/datastar.js"></script>
<script src="/static/terminal.js" defer></script>
<style>body{margin:0;background:#000}#terminal{height:100vh}#terminal-transcript{display:none}</style>
</head>
<body data-signals="{context: ''}">
<div id="terminal" data-on-load="@get('/terminal/stream')"></div>
<div id="terminal-transcript" aria-live="polite"></div>
</body>
</html>`)
		return err
	})
}
