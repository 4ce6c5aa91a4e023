// Command xtermctl talks to a running xtermshell over NATS request/reply.
//
//	xtermctl -c 'echo hi'      run one command
//	xtermctl                   read command lines from stdin
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"xtermshell/internal/messages"

	"github.com/nats-io/nats.go"
	"github.com/rs/xid"
)

type options struct {
	Server  string
	Session string
	Command string
	Timeout time.Duration
}

// client sends command lines for one session and remembers the last prompt.
type client struct {
	nc      *nats.Conn
	session string
	timeout time.Duration
	prompt  string
}

func main() {
	var opts options
	flag.StringVar(&opts.Server, "server", nats.DefaultURL, "NATS server URL")
	flag.StringVar(&opts.Session, "session", "cli-"+xid.New().String(), "Terminal session id")
	flag.StringVar(&opts.Command, "c", "", "Run a single command and exit")
	flag.DurationVar(&opts.Timeout, "timeout", 35*time.Second, "Per-command reply timeout")
	flag.Parse()

	nc, err := nats.Connect(opts.Server, nats.Name("xtermctl"))
	if err != nil {
		slog.Error("Failed to connect", "server", opts.Server, "err", err)
		os.Exit(1)
	}
	defer nc.Close()

	c := &client{nc: nc, session: opts.Session, timeout: opts.Timeout, prompt: "\r\n$"}
	ctx := context.Background()

	if opts.Command != "" {
		reply, err := c.exec(ctx, opts.Command)
		if err != nil {
			slog.Error("Command failed", "err", err)
			os.Exit(1)
		}
		fmt.Println(reply.Output)
		if reply.IsError {
			os.Exit(2)
		}
		return
	}

	if err := c.repl(ctx, os.Stdin, os.Stdout); err != nil {
		slog.Error("Session ended", "err", err)
		os.Exit(1)
	}
}

// exec evaluates one line remotely.
func (c *client) exec(ctx context.Context, line string) (messages.ExecReply, error) {
	var reply messages.ExecReply
	req, err := json.Marshal(messages.ExecRequest{SessionID: c.session, Cmd: line})
	if err != nil {
		return reply, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.nc.RequestWithContext(ctx, messages.TerminalExecSubject, req)
	if err != nil {
		return reply, fmt.Errorf("request: %w", err)
	}
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return reply, fmt.Errorf("decode reply: %w", err)
	}
	if reply.Error != "" {
		return reply, errors.New(reply.Error)
	}
	if reply.Prompt != "" {
		c.prompt = reply.Prompt
	}
	return reply, nil
}

// repl reads lines from in until EOF or exit, writing output and the prompt
// to out.
func (c *client) repl(ctx context.Context, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, c.prompt, " ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		reply, err := c.exec(ctx, line)
		if err != nil {
			return err
		}
		if reply.Output != "" {
			fmt.Fprint(out, "\r\n", reply.Output)
		}
	}
}
