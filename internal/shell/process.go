package shell

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"xtermshell/internal/xterm"

	"github.com/joho/godotenv"
	"github.com/rs/xid"
)

// ProcessSpec configures a command backed by a local executable.
type ProcessSpec struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Binary      string            `yaml:"binary"`
	Args        []string          `yaml:"args"`
	Dir         string            `yaml:"dir"`
	Env         map[string]string `yaml:"env"`
	Timeout     time.Duration     `yaml:"timeout"`
}

// ProcessCommand runs a local executable and returns its combined output as
// a deferred result. Arguments typed in the terminal are appended to the
// configured ones.
type ProcessCommand struct {
	spec ProcessSpec
}

const defaultProcessTimeout = 30 * time.Second

func NewProcessCommand(spec ProcessSpec) (*ProcessCommand, error) {
	if spec.Name == "" || spec.Binary == "" {
		return nil, fmt.Errorf("%w: process command needs name and binary", ErrInvalidCommand)
	}
	if spec.Timeout <= 0 {
		spec.Timeout = defaultProcessTimeout
	}
	return &ProcessCommand{spec: spec}, nil
}

func (p *ProcessCommand) Name() string { return p.spec.Name }

func (p *ProcessCommand) Description() string {
	if p.spec.Description != "" {
		return p.spec.Description
	}
	return "Run " + filepath.Base(p.spec.Binary)
}

func (p *ProcessCommand) Execute(_ context.Context, arguments string) any {
	args := append(append([]string{}, p.spec.Args...), strings.Fields(arguments)...)
	return xterm.Defer(func(ctx context.Context) (string, error) {
		return p.run(ctx, args)
	})
}

func (p *ProcessCommand) run(ctx context.Context, args []string) (string, error) {
	jobID := xid.New().String()
	ctx, cancel := context.WithTimeout(ctx, p.spec.Timeout)
	defer cancel()

	fileEnv, err := readDotEnv(p.spec.Dir)
	if err != nil {
		slog.Warn("shell: ignoring unreadable .env", "job", jobID, "command", p.spec.Name, "err", err)
	}
	cmd := exec.CommandContext(ctx, p.spec.Binary, args...)
	cmd.Dir = p.spec.Dir
	cmd.Env = mapToEnv(mergeEnv(fileEnv, p.spec.Env, EnvFrom(ctx)))

	slog.Info("shell: process started", "job", jobID, "command", p.spec.Name, "binary", p.spec.Binary, "args", args)
	t0 := time.Now()
	out, err := cmd.CombinedOutput()
	text := strings.TrimRight(string(out), "\n")
	if err != nil {
		slog.Warn("shell: process failed", "job", jobID, "command", p.spec.Name, "duration", time.Since(t0), "err", err)
		if text != "" {
			return "", fmt.Errorf("%s: %w\n%s", p.spec.Name, err, text)
		}
		return "", fmt.Errorf("%s: %w", p.spec.Name, err)
	}
	slog.Info("shell: process finished", "job", jobID, "command", p.spec.Name, "duration", time.Since(t0))
	return text, nil
}

// readDotEnv loads the .env file in dir. A missing file is not an error.
func readDotEnv(dir string) (map[string]string, error) {
	env, err := godotenv.Read(filepath.Join(dir, ".env"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return env, err
}

// mergeEnv layers the environment for a process:
//  1. OS env
//  2. .env file in the working directory (only keys still unset)
//  3. explicit overrides from the command spec
//  4. session environment of the caller (highest)
func mergeEnv(fileEnv, overrides, sessionEnv map[string]string) map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		out[k] = v
	}
	for k, v := range fileEnv {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	for k, v := range overrides {
		out[k] = v
	}
	for k, v := range sessionEnv {
		out[k] = v
	}
	return out
}

type envCtxKey struct{}

// WithEnv attaches session environment variables to ctx. Process commands
// started with that context see them.
func WithEnv(ctx context.Context, env map[string]string) context.Context {
	if len(env) == 0 {
		return ctx
	}
	return context.WithValue(ctx, envCtxKey{}, env)
}

// EnvFrom returns the environment attached with WithEnv.
func EnvFrom(ctx context.Context) map[string]string {
	env, _ := ctx.Value(envCtxKey{}).(map[string]string)
	return env
}

func mapToEnv(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out
}
