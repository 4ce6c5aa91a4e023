package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nats-io/nats-server/v2/server"
)

// InitLogger installs a JSON slog handler on stdout as the default logger.
func InitLogger(level slog.Level) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true, Level: level})
	slog.SetDefault(slog.New(handler))
}

// ParseLevel maps XTERM_LOG_LEVEL style names to slog levels. Unknown names
// mean info.
func ParseLevel(name string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// natsLogger forwards nats-server log lines to slog. Notices are noisy at
// startup and go to debug.
type natsLogger struct {
	logger *slog.Logger
}

// NewNATSServerLogger returns a server.Logger writing to logger, or to the
// default logger when nil.
func NewNATSServerLogger(logger *slog.Logger) server.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &natsLogger{logger: logger.With("component", "nats")}
}

func (l *natsLogger) log(level slog.Level, format string, v []any) {
	l.logger.Log(context.Background(), level, fmt.Sprintf(format, v...))
}

func (l *natsLogger) Noticef(format string, v ...any) { l.log(slog.LevelDebug, format, v) }
func (l *natsLogger) Warnf(format string, v ...any)   { l.log(slog.LevelWarn, format, v) }
func (l *natsLogger) Errorf(format string, v ...any)  { l.log(slog.LevelError, format, v) }
func (l *natsLogger) Fatalf(format string, v ...any)  { l.log(slog.LevelError, "fatal: "+format, v) }
func (l *natsLogger) Debugf(format string, v ...any)  { l.log(slog.LevelDebug, format, v) }
func (l *natsLogger) Tracef(format string, v ...any)  { l.log(slog.LevelDebug-4, format, v) }
