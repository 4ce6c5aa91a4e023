package platform

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"xtermshell/internal/messages"
	"xtermshell/internal/runtime"
	"xtermshell/internal/session"
	"xtermshell/util"

	"github.com/nats-io/nats.go/jetstream"
)

// maxFormMemory limits the memory used for multipart parts.
const maxFormMemory = 10 << 20

const maxPatchSize = 64 << 10

var errMissingCmd = errors.New("missing cmd")

// Health returns 200 OK.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// SendCommand handles all typed command submissions
func SendCommand(js jetstream.JetStream) http.HandlerFunc {
	publisher := messages.NewPublisher(js)

	return func(w http.ResponseWriter, r *http.Request) {
		data, err := requestData(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		messageType, ok := data["_messageType"].(string)
		if !ok {
			http.Error(w, "missing _messageType", http.StatusBadRequest)
			return
		}
		delete(data, "_messageType")

		// the session is always the caller's own
		if messageType == "TerminalCommandMessage" {
			data["session_id"] = SessionID(r)
		}

		cmd, err := messages.BuildCommand(messageType, data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := cmd.Validate(); err != nil {
			http.Error(w, fmt.Sprintf("validation error: %v", err), http.StatusBadRequest)
			return
		}
		if err := publisher.PublishCommand(r.Context(), cmd); err != nil {
			http.Error(w, fmt.Sprintf("publish error: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "sent",
			"type":   messageType,
		})
	}
}

// TerminalCommandHandler publishes the submitted line to
// terminal.session.<sid>.command. Output arrives on the SSE stream.
func TerminalCommandHandler(js jetstream.JetStream) http.HandlerFunc {
	publisher := messages.NewPublisher(js)

	return func(w http.ResponseWriter, r *http.Request) {
		cmdText, err := commandLine(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		cmd := messages.NewTerminalCommandMessage(SessionID(r), cmdText)
		if err := cmd.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := publisher.PublishCommand(r.Context(), cmd); err != nil {
			slog.Error("terminal: publish failed", "sid", cmd.SessionID, "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// TerminalExecHandler evaluates the submitted line synchronously and writes
// the terminal-ready output as text/plain. The context name and error flag
// travel in headers.
func TerminalExecHandler(engine *runtime.TerminalEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmdText, err := commandLine(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		res := engine.Execute(r.Context(), SessionID(r), cmdText)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Terminal-Context", res.Context)
		w.Header().Set("X-Terminal-Error", strconv.FormatBool(res.IsError))
		_, _ = w.Write([]byte(res.Output))
	}
}

// SessionDeleteHandler forgets the caller's context, history and env.
func SessionDeleteHandler(store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Delete(r.Context(), SessionID(r)); err != nil {
			slog.Error("session: delete failed", "sid", SessionID(r), "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SessionPatchHandler applies a JSON merge patch to the caller's session
// state and returns the result.
func SessionPatchHandler(store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxPatchSize))
		if err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		st, err := store.Patch(r.Context(), SessionID(r), body)
		if err != nil {
			slog.Warn("session: patch rejected", "sid", SessionID(r), "err", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	}
}

// Helper is anything that can describe its commands by name.
type Helper interface {
	Help() map[string]string
}

// HelpHandler renders the command list as an HTML page.
func HelpHandler(h Helper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := util.MarkdownToHTML("help", helpMarkdown(h.Help()))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, `<!doctype html><html lang="en"><head><meta charset="utf-8"><title>xtermshell help</title></head><body>`)
		if err := body.Render(r.Context(), w); err != nil {
			slog.Warn("help: render failed", "err", err)
			return
		}
		_, _ = fmt.Fprint(w, `</body></html>`)
	}
}

func helpMarkdown(descs map[string]string) []byte {
	names := make([]string, 0, len(descs))
	for n := range descs {
		names = append(names, n)
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString("# Commands\n\n")
	b.WriteString("Type a command in the terminal. `use <context>` prefixes later commands with `<context>-`.\n\n")
	b.WriteString("| Command | Description |\n|---|---|\n")
	for _, n := range names {
		fmt.Fprintf(&b, "| `%s` | %s |\n", n, strings.ReplaceAll(descs[n], "|", `\|`))
	}
	return []byte(b.String())
}

// commandLine extracts the cmd field from a form or JSON body.
func commandLine(r *http.Request) (string, error) {
	data, err := requestData(r)
	if err != nil {
		return "", err
	}
	cmd, _ := data["cmd"].(string)
	if strings.TrimSpace(cmd) == "" {
		return "", errMissingCmd
	}
	return cmd, messages.CheckCommandLength(cmd)
}

// requestData parses multipart/form-data, x-www-form-urlencoded and JSON
// bodies into a flat map.
func requestData(r *http.Request) (map[string]any, error) {
	contentType := r.Header.Get("Content-Type")
	data := make(map[string]any)
	switch {
	case strings.Contains(contentType, "application/json"):
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			return nil, errors.New("invalid JSON")
		}
		return data, nil
	case strings.Contains(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, errors.New("invalid multipart form data")
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, errors.New("invalid form data")
		}
	}
	for key, values := range r.Form {
		if len(values) == 1 {
			data[key] = values[0]
		} else {
			data[key] = values
		}
	}
	return data, nil
}
