package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"xtermshell/internal/messages"
	"xtermshell/internal/session"
	"xtermshell/internal/shell"
	"xtermshell/internal/xterm"
	"xtermshell/util"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Shell is what the engine needs from the command evaluator.
type Shell interface {
	xterm.Evaluator
	Register(cmds ...xterm.CustomizedCommand) error
	Lookup(name string) (xterm.CustomizedCommand, bool)
}

// EngineConfig holds terminal engine tunables.
type EngineConfig struct {
	// CommandTimeout bounds how long one command line may take, deferred
	// results included.
	CommandTimeout time.Duration
	// Storage is the JetStream storage used for the TERMINAL stream.
	Storage jetstream.StorageType
}

// Result is the terminal-ready outcome of one command line.
type Result struct {
	Output  string
	Prompt  string
	Context string
	IsError bool
	// History is the session history after the line ran.
	History []string
}

// TerminalEngine interprets terminal.session.*.command messages.
// Session commands (use, history, env...) are handled here; everything else
// goes through the xterm command handler to the shell. Output is published
// to event.terminal.session.*.output.
type TerminalEngine struct {
	nc        *nats.Conn
	js        jetstream.JetStream
	publisher *messages.Publisher
	sessions  *session.Store
	shell     Shell
	handler   *xterm.CommandHandler
	commands  map[string]TerminalCommand
	cfg       EngineConfig
	metrics   *Metrics
	queue     *keyedQueue
}

// ackMargin is added to the command timeout for the consumer AckWait, so a
// command still running is never redelivered.
const ackMargin = 10 * time.Second

func NewTerminalEngine(nc *nats.Conn, js jetstream.JetStream, sessions *session.Store, sh Shell, cfg EngineConfig, metrics *Metrics) (*TerminalEngine, error) {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 30 * time.Second
	}
	te := &TerminalEngine{
		nc:        nc,
		js:        js,
		publisher: messages.NewPublisher(js),
		sessions:  sessions,
		shell:     sh,
		handler:   xterm.NewCommandHandler(trackOutcome(sh)),
		commands:  map[string]TerminalCommand{},
		cfg:       cfg,
		metrics:   metrics,
		queue:     newKeyedQueue(),
	}
	for _, c := range DefaultCommands() {
		te.commands[c.Name()] = c
		// Listed by the shell's help; reached only without a session.
		if err := sh.Register(sessionOnly{c}); err != nil {
			return nil, fmt.Errorf("register %s: %w", c.Name(), err)
		}
	}
	return te, nil
}

// Start creates a consumer on TERMINAL and the terminal.exec responder.
// Both are stopped when ctx is done. Commands of one session run in order;
// sessions do not wait on each other.
func (te *TerminalEngine) Start(ctx context.Context) error {
	if _, err := te.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     messages.TerminalStream,
		Subjects: []string{messages.TerminalCommandSubjectPattern},
		Storage:  te.cfg.Storage,
	}); err != nil {
		// if already exists ignore
		if !errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
			return fmt.Errorf("create %s stream: %w", messages.TerminalStream, err)
		}
	}

	cons, err := te.js.CreateOrUpdateConsumer(ctx, messages.TerminalStream, jetstream.ConsumerConfig{
		Durable:        "TERMINAL_CMD",
		AckPolicy:      jetstream.AckExplicitPolicy,
		FilterSubjects: []string{messages.TerminalCommandSubjectPattern},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
		AckWait:        te.cfg.CommandTimeout + ackMargin,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		sid := util.SubjectToken(msg.Subject(), 2)
		te.queue.Go(sid, func() { te.handleCommand(ctx, msg) })
	})
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	sub, err := te.nc.QueueSubscribe(messages.TerminalExecSubject, "terminal-exec", func(m *nats.Msg) {
		go te.handleExec(ctx, m)
	})
	if err != nil {
		cc.Stop()
		return fmt.Errorf("subscribe %s: %w", messages.TerminalExecSubject, err)
	}

	go func() {
		<-ctx.Done()
		cc.Stop()
		_ = sub.Unsubscribe()
		te.queue.Wait()
		slog.Debug("terminal: engine stopped")
	}()
	return nil
}

func (te *TerminalEngine) handleCommand(ctx context.Context, msg jetstream.Msg) {
	in, err := messages.DecodeTerminalCommand(msg.Data())
	if err != nil {
		slog.Warn("terminal: bad cmd payload", "subject", msg.Subject(), "err", err)
		_ = msg.Ack()
		return
	}
	if msg.Subject() != in.Subject() {
		slog.Warn("terminal: session mismatch", "subject", msg.Subject(), "sid", in.SessionID)
		_ = msg.Ack()
		return
	}

	res := te.Execute(ctx, in.SessionID, in.Cmd)
	evt := messages.NewTerminalOutputEvent(in.SessionID, in.Cmd, res.Output, res.Prompt).
		WithContext(res.Context).
		WithCorrelation(in.CorrelationID).
		AsError(res.IsError).
		WithHistory(res.History)
	te.sendOutput(ctx, evt, msg)
}

func (te *TerminalEngine) handleExec(ctx context.Context, m *nats.Msg) {
	var req messages.ExecRequest
	var reply messages.ExecReply
	if err := json.Unmarshal(m.Data, &req); err != nil {
		reply.Error = "bad request: " + err.Error()
	} else if err := messages.CheckCommandLength(req.Cmd); err != nil {
		reply.Error = err.Error()
	} else if req.SessionID != "" {
		if err := (messages.TerminalCommandMessage{SessionID: req.SessionID, Cmd: "-"}).Validate(); err != nil {
			reply.Error = err.Error()
		}
	}
	if reply.Error == "" {
		res := te.Execute(ctx, req.SessionID, req.Cmd)
		reply = messages.ExecReply{Output: res.Output, Prompt: res.Prompt, IsError: res.IsError}
	}
	data, _ := json.Marshal(reply)
	if err := m.Respond(data); err != nil {
		slog.Warn("terminal: exec respond", "err", err)
	}
}

// Execute evaluates one command line for session sid and persists the
// session state. An empty sid evaluates statelessly. A session whose stored
// state cannot be read is left untouched and the line is not run.
func (te *TerminalEngine) Execute(ctx context.Context, sid, line string) Result {
	t0 := time.Now()
	var state session.State
	if sid != "" {
		st, err := te.sessions.Load(ctx, sid)
		if err != nil {
			slog.Error("terminal: load session", "sid", sid, "err", err)
			te.metrics.observe("session", "error", time.Since(t0).Seconds())
			return Result{
				Output:  xterm.ErrorText(fmt.Errorf("session state unavailable: %w", err)),
				Prompt:  state.Prompt(),
				IsError: true,
			}
		}
		state = st
	}

	line = strings.TrimSpace(line)
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Result{Prompt: state.Prompt(), Context: state.Context, History: state.History}
	}

	var res Result
	kind := "shell"
	if cmd, ok := te.sessionCommand(parts); ok && sid != "" {
		kind = "session"
		res, state = te.runSessionCommand(ctx, sid, cmd, state, line, parts)
	} else {
		res = te.runShell(ctx, state, line)
		if sid != "" {
			state = te.remember(ctx, sid, state, line)
		}
	}
	res.Prompt = state.Prompt()
	res.Context = state.Context
	res.History = state.History

	outcome := "ok"
	switch {
	case res.Output == timeoutText:
		outcome = "timeout"
	case res.IsError:
		outcome = "error"
	}
	te.metrics.observe(kind, outcome, time.Since(t0).Seconds())
	return res
}

// remember appends line to the stored history of sid. Writes from other
// callers since state was loaded are kept.
func (te *TerminalEngine) remember(ctx context.Context, sid string, state session.State, line string) session.State {
	next, err := te.sessions.Update(ctx, sid, func(st session.State) (session.State, error) {
		st.Remember(line)
		return st, nil
	})
	if err != nil {
		slog.Warn("terminal: save session", "sid", sid, "err", err)
		state.Remember(line)
		return state
	}
	return next
}

// sessionCommand resolves parts to a session command. "help use" and
// "use -h" resolve to the help of that command.
func (te *TerminalEngine) sessionCommand(parts []string) (TerminalCommand, bool) {
	if parts[0] == "help" && len(parts) > 1 {
		if c, ok := te.commands[parts[1]]; ok {
			return helpOf{c}, true
		}
		return nil, false
	}
	c, ok := te.commands[parts[0]]
	if !ok {
		return nil, false
	}
	if last := parts[len(parts)-1]; len(parts) > 1 && (last == "-h" || last == "--help") {
		return helpOf{c}, true
	}
	return c, true
}

// runSessionCommand applies cmd to the stored state of sid. The command is
// a pure state transition, so it is applied again if the state changed
// underneath.
func (te *TerminalEngine) runSessionCommand(ctx context.Context, sid string, cmd TerminalCommand, state session.State, line string, parts []string) (Result, session.State) {
	prev := state.Context
	var out CommandResult
	next, err := te.sessions.Update(ctx, sid, func(st session.State) (session.State, error) {
		st.Remember(line)
		var n session.State
		n, out = cmd.Execute(ctx, sid, st, parts)
		return n, nil
	})
	if err != nil {
		slog.Warn("terminal: save session", "sid", sid, "err", err)
		return Result{Output: xterm.ErrorText(fmt.Errorf("session not saved: %w", err)), IsError: true}, state
	}

	if next.Context != prev {
		if err := te.publisher.PublishEvent(ctx, messages.NewTerminalContextEvent(sid, next.Context)); err != nil {
			slog.Warn("terminal: publish context", "sid", sid, "err", err)
		}
	}
	text := out.Output
	if out.IsError {
		text = xterm.ErrorText(errors.New(text))
	}
	return Result{Output: xterm.FormatLineBreak(text), IsError: out.IsError}, next
}

const timeoutText = "\x1b[31mcommand timed out\x1b[39m"

func (te *TerminalEngine) runShell(ctx context.Context, state session.State, line string) Result {
	ctx, cancel := context.WithTimeout(shell.WithEnv(ctx, state.Env), te.cfg.CommandTimeout)
	defer cancel()
	o := &outcome{}
	ctx = context.WithValue(ctx, outcomeKey{}, o)

	out, err := te.handler.ExecuteCommand(ctx, te.qualify(state, line)).Await(ctx)
	if err != nil {
		slog.Warn("terminal: command did not complete", "cmd", line, "err", err)
		return Result{Output: timeoutText, IsError: true}
	}
	return Result{Output: out, IsError: o.failed.Load()}
}

// qualify applies the session context prefix. Commands that only exist
// unprefixed (help, clear...) stay reachable inside a context.
func (te *TerminalEngine) qualify(state session.State, line string) string {
	q := state.Qualify(line)
	if q == line {
		return line
	}
	if _, ok := te.shell.Lookup(strings.Fields(q)[0]); ok {
		return q
	}
	if _, ok := te.shell.Lookup(strings.Fields(line)[0]); ok {
		return line
	}
	return q
}

// sendOutput publishes the output event and acks/naks appropriately.
func (te *TerminalEngine) sendOutput(ctx context.Context, evt *messages.TerminalOutputEvent, msg jetstream.Msg) {
	if err := te.publisher.PublishEvent(ctx, evt); err != nil {
		slog.Warn("terminal: publish output", "sid", evt.SessionID, "err", err)
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

// --- outcome tracking -------------------------------------------------------

type outcomeKey struct{}

type outcome struct{ failed atomic.Bool }

// trackOutcome records on the context whether the shell produced an error
// result, or a deferred result that later failed, so the engine can flag the
// output.
func trackOutcome(ev xterm.Evaluator) xterm.Evaluator {
	return xterm.EvaluatorFunc(func(ctx context.Context, line string) any {
		res := ev.Evaluate(ctx, line)
		o, ok := ctx.Value(outcomeKey{}).(*outcome)
		if !ok || xterm.IsNil(res) {
			return res
		}
		switch v := res.(type) {
		case error:
			o.failed.Store(true)
		case *xterm.Deferred[string]:
			return xterm.OnError(v, func(error) { o.failed.Store(true) })
		}
		return res
	})
}

// --- adapters ---------------------------------------------------------------

// helpOf answers with the help text of a session command.
type helpOf struct{ c TerminalCommand }

func (h helpOf) Name() string { return h.c.Name() }
func (h helpOf) Help() string { return h.c.Help() }
func (h helpOf) Execute(_ context.Context, _ string, state session.State, _ []string) (session.State, CommandResult) {
	return state, CommandResult{Output: h.c.Help()}
}

// sessionOnly exposes a session command to the shell so it shows up in help.
type sessionOnly struct{ c TerminalCommand }

func (s sessionOnly) Name() string        { return s.c.Name() }
func (s sessionOnly) Description() string { return firstLine(s.c.Help()) }
func (s sessionOnly) Execute(context.Context, string) any {
	return fmt.Errorf("%s needs a terminal session", s.c.Name())
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
