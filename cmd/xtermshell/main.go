package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"xtermshell/internal/platform"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	appCfg, err := platform.LoadAppConfig()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	platform.InitLogger(platform.ParseLevel(appCfg.Flags.LogLevel))
	platform.InitMetrics(prometheus.DefaultRegisterer)

	// --- Run embedded NATS server ---
	nc, ns, natErrCh, err := platform.RunEmbeddedServer(ctx, *appCfg.NatsCfg)
	if err != nil {
		slog.Error("Failed to start embedded server", "err", err)
		os.Exit(1)
	}
	defer ns.Shutdown()
	defer nc.Close()

	app, err := platform.NewApp(ctx, nc, appCfg.TerminalCfg, prometheus.DefaultRegisterer)
	if err != nil {
		slog.Error("Failed to start terminal", "err", err)
		os.Exit(1)
	}

	var httpErrCh <-chan error
	if !appCfg.Flags.Headless {
		httpErrCh = platform.RunHTTPServer(ctx, app, *appCfg.HTTPSrvCfg)
	} else {
		// never sends
		httpErrCh = make(chan error)
	}

	go func() {
		select {
		case err := <-natErrCh:
			slog.Error("Embedded server error", "err", err)
			cancel()
		case err := <-httpErrCh:
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	platform.Run(ctx, app)
}
