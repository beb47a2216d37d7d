// Package config loads watchpath settings from defaults, an optional
// TOML/YAML/JSON file and WATCHPATH_* environment variables, in that order.
package config

import (
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config holds all watchpath configuration.
type Config struct {
	LogPath  string // log file to analyze; set from the command line
	LogLevel string
	Backend  BackendConfig
	Engine   EngineConfig
	Output   OutputConfig
}

// BackendConfig selects and configures the model backend.
type BackendConfig struct {
	Provider string // "exec" or "ollama"
	Model    string
	Command  string
	Endpoint string
	APIKey   string
	Timeout  time.Duration // per invocation; 0 means none
	Extra    map[string]string
}

// EngineConfig holds session analysis settings.
type EngineConfig struct {
	PromptPath  string // empty means the embedded default template
	ChunkSize   int
	Window      time.Duration
	Workers     int
	RateLimit   float64 // backend calls per second; 0 means unlimited
	MaxSessions int     // 0 means all
}

// OutputConfig holds output destination settings.
type OutputConfig struct {
	Kind       string // comma-separated: "stdout", "file", "webhook"
	Path       string
	WebhookURL string
	Verbosity  string // "minimal", "standard", "full"
	Pretty     bool
	MaxSize    int64 // file rotation threshold in bytes; 0 disables rotation
}

// Kinds splits Kind into its destinations, dropping blanks.
func (o OutputConfig) Kinds() []string {
	var kinds []string
	for _, k := range strings.Split(o.Kind, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// WritesStdout reports whether payloads go to stdout.
func (o OutputConfig) WritesStdout() bool {
	return slices.Contains(o.Kinds(), "stdout")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Backend: BackendConfig{
			Provider: "exec",
			Model:    "mistral:7b-instruct",
			Command:  "ollama",
			Endpoint: "http://localhost:11434",
		},
		Engine: EngineConfig{
			ChunkSize: 50,
			Window:    15 * time.Minute,
			Workers:   1,
		},
		Output: OutputConfig{
			Kind:      "stdout",
			Verbosity: "standard",
		},
	}
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Default()
	applyEnv(&cfg)
	return cfg
}

// applyEnv overrides cfg with any WATCHPATH_* variables that are set.
func applyEnv(cfg *Config) {
	cfg.LogLevel = getenv("WATCHPATH_LOG_LEVEL", cfg.LogLevel)

	b := &cfg.Backend
	b.Provider = getenv("WATCHPATH_BACKEND", b.Provider)
	b.Model = getenv("WATCHPATH_MODEL", b.Model)
	b.Command = getenv("WATCHPATH_COMMAND", b.Command)
	b.Endpoint = getenv("WATCHPATH_ENDPOINT", b.Endpoint)
	b.APIKey = getenv("WATCHPATH_API_KEY", b.APIKey)
	b.Timeout = getenvDuration("WATCHPATH_BACKEND_TIMEOUT", b.Timeout)
	b.Extra = mergeExtra(b.Extra, loadBackendExtra())

	e := &cfg.Engine
	e.PromptPath = getenv("WATCHPATH_PROMPT", e.PromptPath)
	e.ChunkSize = getenvInt("WATCHPATH_CHUNK_SIZE", e.ChunkSize)
	e.Window = getenvDuration("WATCHPATH_WINDOW", e.Window)
	e.Workers = getenvInt("WATCHPATH_WORKERS", e.Workers)
	e.RateLimit = getenvFloat("WATCHPATH_RATE_LIMIT", e.RateLimit)
	e.MaxSessions = getenvInt("WATCHPATH_MAX_SESSIONS", e.MaxSessions)

	o := &cfg.Output
	o.Kind = getenv("WATCHPATH_OUTPUT", o.Kind)
	o.Path = getenv("WATCHPATH_OUTPUT_PATH", o.Path)
	o.WebhookURL = getenv("WATCHPATH_WEBHOOK_URL", o.WebhookURL)
	o.Verbosity = getenv("WATCHPATH_VERBOSITY", o.Verbosity)
	o.Pretty = getenvBool("WATCHPATH_OUTPUT_PRETTY", o.Pretty)
	o.MaxSize = int64(getenvInt("WATCHPATH_OUTPUT_MAX_SIZE", int(o.MaxSize)))
}

// loadBackendExtra reads provider-specific env vars into an Extra map.
func loadBackendExtra() map[string]string {
	vars := []struct {
		envVar   string
		extraKey string
	}{
		{"WATCHPATH_EXEC_ARGS", "args"},
		{"WATCHPATH_OLLAMA_FORMAT", "format"},
	}

	var m map[string]string
	for _, v := range vars {
		if val := os.Getenv(v.envVar); val != "" {
			if m == nil {
				m = make(map[string]string)
			}
			m[v.extraKey] = val
		}
	}
	return m
}

func mergeExtra(base, over map[string]string) map[string]string {
	if len(over) == 0 {
		return base
	}
	if base == nil {
		base = make(map[string]string, len(over))
	}
	for k, v := range over {
		base[k] = v
	}
	return base
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
