package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"xtermshell/internal/messages"
	"xtermshell/internal/runtime"
	"xtermshell/internal/session"
	"xtermshell/internal/shell"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
)

// App bundles the running terminal services shared by the HTTP handlers.
type App struct {
	NC       *nats.Conn
	JS       jetstream.JetStream
	Sessions *session.Store
	Shell    *shell.Shell
	Engine   *runtime.TerminalEngine
}

// NewApp creates the EVENT stream and the sessions bucket, builds the shell
// with the configured process commands and starts the terminal engine.
func NewApp(ctx context.Context, nc *nats.Conn, cfg *TerminalConfig, reg prometheus.Registerer) (*App, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     messages.EventStream,
		Subjects: []string{"event.>"},
		Storage:  cfg.Storage,
	})
	if err != nil && !errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
		return nil, fmt.Errorf("create %s stream: %w", messages.EventStream, err)
	}

	store, err := session.OpenStore(ctx, js, cfg.Storage)
	if err != nil {
		return nil, err
	}

	sh := shell.New(cfg.Version)
	for _, spec := range cfg.Commands {
		pc, err := shell.NewProcessCommand(spec)
		if err != nil {
			return nil, err
		}
		if err := sh.Register(pc); err != nil {
			return nil, err
		}
		slog.Info("platform: process command registered", "name", spec.Name, "binary", spec.Binary)
	}

	metrics, err := runtime.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	engine, err := runtime.NewTerminalEngine(nc, js, store, sh, runtime.EngineConfig{
		CommandTimeout: cfg.CommandTimeout,
		Storage:        cfg.Storage,
	}, metrics)
	if err != nil {
		return nil, err
	}
	if err := engine.Start(ctx); err != nil {
		return nil, fmt.Errorf("start terminal engine: %w", err)
	}

	return &App{NC: nc, JS: js, Sessions: store, Shell: sh, Engine: engine}, nil
}

// Run blocks until ctx is done.
func Run(ctx context.Context, app *App) {
	slog.Info("platform: terminal is up", "commands", len(app.Shell.Names()))
	<-ctx.Done()
	slog.Info("platform: shutdown requested")
}
