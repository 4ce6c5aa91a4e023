package platform

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"xtermshell/internal/shell"

	_ "github.com/joho/godotenv/autoload"
	"github.com/nats-io/nats.go/jetstream"
	"gopkg.in/yaml.v3"
)

// FlagsConfig holds all boolean or string flags for the app.
type FlagsConfig struct {
	// Headless disables the HTTP server when true.
	Headless bool
	// LogLevel is an slog level name.
	LogLevel string
}

// TerminalConfig holds the shell-side settings.
type TerminalConfig struct {
	Version        string
	CommandTimeout time.Duration
	// CommandsFile is an optional YAML file declaring process commands.
	CommandsFile string
	Commands     []shell.ProcessSpec
	// Storage backs the TERMINAL and EVENT streams and the sessions bucket.
	Storage jetstream.StorageType
}

// AppConfig contains the configuration for the app.
type AppConfig struct {
	Flags       *FlagsConfig
	NatsCfg     *EmbeddedServerConfig
	HTTPSrvCfg  *HTTPServerConfig
	TerminalCfg *TerminalConfig
}

// commandsFile is the layout of the YAML commands file.
type commandsFile struct {
	Commands []shell.ProcessSpec `yaml:"commands"`
}

// LoadAppConfig loads application configuration from environment variables
// (a .env file is picked up automatically) and returns an AppConfig.
func LoadAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		Flags:       defaultFlagsCfg(),
		NatsCfg:     defaultNatsCfg(),
		HTTPSrvCfg:  defaultHTTPServerCfg(),
		TerminalCfg: defaultTerminalCfg(),
	}
	if path := cfg.TerminalCfg.CommandsFile; path != "" {
		cmds, err := LoadCommandsFile(path)
		if err != nil {
			return nil, err
		}
		cfg.TerminalCfg.Commands = cmds
	}
	return cfg, nil
}

// LoadCommandsFile reads process command declarations from a YAML file.
func LoadCommandsFile(filename string) ([]shell.ProcessSpec, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read commands file: %w", err)
	}
	var f commandsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse commands file %s: %w", filename, err)
	}
	return f.Commands, nil
}

// defaultFlagsCfg returns the default FlagsConfig (from env).
func defaultFlagsCfg() *FlagsConfig {
	return &FlagsConfig{
		Headless: getEnvBool("XTERM_HEADLESS", false),
		LogLevel: getEnv("XTERM_LOG_LEVEL", "info"),
	}
}

// defaultHTTPServerCfg returns sane defaults for the HTTP server.
func defaultHTTPServerCfg() *HTTPServerConfig {
	return &HTTPServerConfig{
		Port:         getEnvInt("XTERM_HTTP_PORT", 8080),
		ReadTimeout:  getEnvDuration("XTERM_HTTP_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: -1, // SSE streams stay open
		IdleTimeout:  getEnvDuration("XTERM_HTTP_IDLE_TIMEOUT", 2*time.Minute),
		EnableTLS:    getEnvBool("XTERM_TLS", false),
		CertFile:     getEnv("XTERM_TLS_CERT", "./local_certs/localhost.pem"),
		KeyFile:      getEnv("XTERM_TLS_KEY", "./local_certs/localhost-key.pem"),
		SessionKey:   getEnv("XTERM_SESSION_KEY", "very-secret-key-change-me"),
	}
}

// defaultNatsCfg returns the default EmbeddedServerConfig.
func defaultNatsCfg() *EmbeddedServerConfig {
	return &EmbeddedServerConfig{
		InProcess:       getEnvBool("XTERM_NATS_IN_PROCESS", false),
		EnableLogging:   true,
		JetStream:       true,
		JetStreamDomain: "",
		Port:            getEnvInt("XTERM_NATS_PORT", 4222),
		LeafNodeURL:     getEnv("XTERM_NATS_LEAF_URL", ""),
		LeafNodeCreds:   getEnv("XTERM_NATS_LEAF_CREDS", ""),
		StoreDir:        getEnv("XTERM_NATS_STORE_DIR", "./store/js"),
	}
}

// defaultTerminalCfg returns the default TerminalConfig.
func defaultTerminalCfg() *TerminalConfig {
	return &TerminalConfig{
		Version:        getEnv("XTERM_VERSION", "dev"),
		CommandTimeout: getEnvDuration("XTERM_COMMAND_TIMEOUT", 30*time.Second),
		CommandsFile:   getEnv("XTERM_CONFIG", ""),
		Storage:        storageType(getEnv("XTERM_STORAGE", "file")),
	}
}

func storageType(name string) jetstream.StorageType {
	if name == "memory" {
		return jetstream.MemoryStorage
	}
	return jetstream.FileStorage
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
