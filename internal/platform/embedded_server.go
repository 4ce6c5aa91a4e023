package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// EmbeddedServerConfig holds options for running the embedded server.
type EmbeddedServerConfig struct {
	InProcess       bool
	EnableLogging   bool
	JetStream       bool
	JetStreamDomain string
	Port            int    // client port, ignored when InProcess
	LeafNodeURL     string // empty disables leaf node
	LeafNodeCreds   string // optional, only used if LeafNodeURL is set
	StoreDir        string // optional, for JetStream file storage
}

const readyTimeout = 5 * time.Second

// serverOptions translates cfg into nats-server options.
func serverOptions(cfg EmbeddedServerConfig) (*server.Options, error) {
	opts := &server.Options{
		ServerName:      "xtermshell",
		Port:            cfg.Port,
		DontListen:      cfg.InProcess,
		JetStream:       cfg.JetStream,
		JetStreamDomain: cfg.JetStreamDomain,
		StoreDir:        cfg.StoreDir,
	}
	if cfg.LeafNodeURL == "" {
		return opts, nil
	}
	leafURL, err := url.Parse(cfg.LeafNodeURL)
	if err != nil {
		return nil, fmt.Errorf("leaf node url: %w", err)
	}
	opts.LeafNode = server.LeafNodeOpts{Remotes: []*server.RemoteLeafOpts{{
		URLs:        []*url.URL{leafURL},
		Credentials: cfg.LeafNodeCreds,
	}}}
	return opts, nil
}

// RunEmbeddedServer starts an embedded NATS server and connects a client to
// it. The returned channel receives ctx's error once ctx is done; shutting
// the server down is left to the caller.
func RunEmbeddedServer(ctx context.Context, cfg EmbeddedServerConfig) (*nats.Conn, *server.Server, <-chan error, error) {
	opts, err := serverOptions(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("nats server: %w", err)
	}
	if cfg.EnableLogging {
		ns.SetLogger(NewNATSServerLogger(slog.Default()), false, false)
	}
	go ns.Start()
	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return nil, nil, nil, errors.New("nats server not ready")
	}

	clientOpts := []nats.Option{
		nats.Name("xtermshell"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats: disconnected", "err", err)
			}
		}),
	}
	if cfg.InProcess {
		clientOpts = append(clientOpts, nats.InProcessServer(ns))
	}
	nc, err := nats.Connect(ns.ClientURL(), clientOpts...)
	if err != nil {
		ns.Shutdown()
		return nil, nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()
		errCh <- ctx.Err()
	}()
	return nc, ns, errCh, nil
}
