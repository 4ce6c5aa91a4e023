package platform

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"xtermshell/internal/messages"
	"xtermshell/internal/testutil"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv    *httptest.Server
	client *http.Client
	app    *App
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	nc, _ := testutil.RunJetStream(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	app, err := NewApp(ctx, nc, &TerminalConfig{
		Version:        "test",
		CommandTimeout: 2 * time.Second,
		Storage:        jetstream.MemoryStorage,
	}, prometheus.NewRegistry())
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(app, HTTPServerConfig{SessionKey: "test-key"}))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &fixture{srv: srv, client: &http.Client{Jar: jar, Timeout: 5 * time.Second}, app: app}
}

func (f *fixture) post(t *testing.T, path, cmd string) *http.Response {
	t.Helper()
	resp, err := f.client.PostForm(f.srv.URL+path, url.Values{"cmd": {cmd}})
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) exec(t *testing.T, cmd string) (string, *http.Response) {
	t.Helper()
	resp := f.post(t, "/terminal/exec", cmd)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body), resp
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestIndexAndStatic(t *testing.T) {
	f := newFixture(t)

	resp, err := f.client.Get(f.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "/terminal/stream")

	u, _ := url.Parse(f.srv.URL)
	require.NotEmpty(t, f.client.Jar.Cookies(u), "session cookie should be set")

	resp, err = f.client.Get(f.srv.URL + "/static/terminal.js")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTerminalExec(t *testing.T) {
	f := newFixture(t)

	out, resp := f.exec(t, "echo hello\nworld")
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "false", resp.Header.Get("X-Terminal-Error"))
	assert.Equal(t, "hello\r\nworld", out)

	out, resp = f.exec(t, "nope")
	assert.Equal(t, "true", resp.Header.Get("X-Terminal-Error"))
	assert.Equal(t, "\x1b[31mNo command found for 'nope'\x1b[39m", out)
}

func TestTerminalExec_SessionLifecycle(t *testing.T) {
	f := newFixture(t)

	_, resp := f.exec(t, "use redis")
	assert.Equal(t, "redis", resp.Header.Get("X-Terminal-Context"))

	out, resp := f.exec(t, "history")
	assert.Equal(t, "redis", resp.Header.Get("X-Terminal-Context"))
	assert.Contains(t, out, "use redis")

	req, err := http.NewRequest(http.MethodDelete, f.srv.URL+"/session", nil)
	require.NoError(t, err)
	del, err := f.client.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)

	out, resp = f.exec(t, "history")
	assert.Empty(t, resp.Header.Get("X-Terminal-Context"))
	assert.NotContains(t, out, "use redis")
	assert.Contains(t, out, "1  history")
}

func TestSessionPatch(t *testing.T) {
	f := newFixture(t)

	patch := func(body string) *http.Response {
		req, err := http.NewRequest(http.MethodPatch, f.srv.URL+"/session", strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/merge-patch+json")
		resp, err := f.client.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := patch(`{"context":"kafka","env":{"TOPIC":"orders"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"context":"kafka"`)

	out, hdr := f.exec(t, "env list")
	assert.Equal(t, "kafka", hdr.Header.Get("X-Terminal-Context"))
	assert.Contains(t, out, "TOPIC=orders")

	assert.Equal(t, http.StatusBadRequest, patch(`{"history":"not a list"}`).StatusCode)
}

func TestTerminalCommand_Validation(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.post(t, "/terminal", "  ").StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.post(t, "/terminal/exec", "").StatusCode)

	long := strings.Repeat("x", messages.MaxCommandLength+1)
	resp := f.post(t, "/terminal", long)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "limit is 4096")
	assert.Equal(t, http.StatusBadRequest, f.post(t, "/terminal/exec", long).StatusCode)
	assert.Equal(t, http.StatusAccepted, f.post(t, "/terminal", long[1:]).StatusCode)

	resp, err := f.client.Post(f.srv.URL+"/terminal", "application/json", strings.NewReader("{bad"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = f.client.Post(f.srv.URL+"/terminal", "application/json", strings.NewReader(`{"cmd":"date"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestSendCommand(t *testing.T) {
	f := newFixture(t)

	resp, err := f.client.PostForm(f.srv.URL+"/command/terminal", url.Values{
		"_messageType": {"TerminalCommandMessage"},
		"cmd":          {"version"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"sent","type":"TerminalCommandMessage"}`, string(body))

	resp2, err := f.client.PostForm(f.srv.URL+"/command/x", url.Values{"cmd": {"version"}})
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestHelpPage(t *testing.T) {
	f := newFixture(t)

	resp, err := f.client.Get(f.srv.URL + "/help")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	for _, name := range []string{"echo", "stacktrace", "use", "history"} {
		assert.Contains(t, string(body), "<code>"+name+"</code>")
	}
}

func TestHelpMarkdown(t *testing.T) {
	md := string(helpMarkdown(map[string]string{"b": "second", "a": "first | pipe"}))
	assert.Less(t, strings.Index(md, "`a`"), strings.Index(md, "`b`"))
	assert.Contains(t, md, `first \| pipe`)
}

func TestTerminalStream(t *testing.T) {
	f := newFixture(t)

	// pick up the session cookie and some history first
	f.exec(t, "use orders")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/terminal/stream", nil)
	require.NoError(t, err)
	stream, err := (&http.Client{Jar: f.client.Jar}).Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Contains(t, stream.Header.Get("Content-Type"), "text/event-stream")

	lines := make(chan string, 64)
	go func() {
		sc := bufio.NewScanner(stream.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	waitFor := func(hook string, parts ...string) {
		t.Helper()
		timeout := time.After(5 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed early")
				if !strings.Contains(line, hook) {
					continue
				}
				found := true
				for _, p := range parts {
					found = found && strings.Contains(line, p)
				}
				if found {
					return
				}
			case <-timeout:
				t.Fatalf("no %s call on the stream", hook)
			}
		}
	}

	waitFor("xtermshell.restore", `"history":["use orders"]`, `[orders]$`)

	assert.Equal(t, http.StatusAccepted, f.post(t, "/terminal", "echo streamed").StatusCode)
	waitFor("xtermshell.write", "streamed", `"history":["use orders","echo streamed"]`)
}
