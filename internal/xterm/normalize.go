package xterm

import (
	"fmt"
	"reflect"
	"strings"
)

// CRLF is the line break xterm.js needs to return the cursor to column 0.
const CRLF = "\r\n"

var errorStyle = DefaultStyle.Foreground(Red)

// FormatLineBreak converts LF-only text to CRLF. Text that already carries a
// CRLF anywhere is assumed to be terminal-ready and is returned as is.
func FormatLineBreak(text string) string {
	if !strings.Contains(text, CRLF) && strings.Contains(text, "\n") {
		return strings.ReplaceAll(text, "\n", CRLF)
	}
	return text
}

// ErrorText renders err the way the terminal shows failed results.
func ErrorText(err error) string {
	return NewStyled(err.Error(), errorStyle).ANSI()
}

// Render turns a shell result into display text. Deferred results are not
// resolved here; they come back as the second return value and the text is
// empty.
func Render(result any) (string, *Deferred[string]) {
	if IsNil(result) {
		return "", nil
	}
	switch v := result.(type) {
	case nil:
		return "", nil
	case *Deferred[string]:
		return "", v
	case error:
		return ErrorText(v), nil
	case Styled:
		return v.ANSI(), nil
	case *Styled:
		return v.ANSI(), nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case []string:
		return strings.Join(v, CRLF), nil
	case fmt.Stringer:
		return v.String(), nil
	}

	switch rv := reflect.ValueOf(result); rv.Kind() {
	case reflect.Slice, reflect.Array:
		lines := make([]string, rv.Len())
		for i := range lines {
			lines[i] = fmt.Sprint(rv.Index(i).Interface())
		}
		return strings.Join(lines, CRLF), nil
	}
	return fmt.Sprint(result), nil
}

// IsNil reports whether v is nil or a nil pointer, map, slice, func or
// channel held in an interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
