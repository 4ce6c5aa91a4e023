package util

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	cache sync.Map // map[string]string

	md = goldmark.New(goldmark.WithExtensions(extension.GFM))
)

// MarkdownToHTML converts Markdown to ready-to-embed HTML. Results are
// memoised under key; an empty key disables the cache.
func MarkdownToHTML(key string, src []byte) (templ.Component, error) {
	if key != "" {
		if v, ok := cache.Load(key); ok {
			return templ.Raw(v.(string)), nil
		}
	}
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("markdown: %w", err)
	}
	htmlStr := buf.String()
	if key != "" {
		cache.Store(key, htmlStr)
	}
	return templ.Raw(htmlStr), nil
}
