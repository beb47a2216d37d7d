package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hejijunhao/watchpath/internal/output"
)

// ValidationError is one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid setting found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var knownBackends = map[string]bool{"exec": true, "ollama": true}

// Validate checks the configuration before any processing starts. It returns
// nil or a ValidationErrors.
func (c Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.LogPath == "" {
		add("log", "no log file given")
	} else if err := checkFile(c.LogPath); err != nil {
		add("log", "%v", err)
	}
	if c.Engine.PromptPath != "" {
		if err := checkFile(c.Engine.PromptPath); err != nil {
			add("engine.prompt", "%v", err)
		}
	}

	if !knownBackends[c.Backend.Provider] {
		add("backend.provider", "unknown backend %q (want exec or ollama)", c.Backend.Provider)
	}
	if c.Backend.Timeout < 0 {
		add("backend.timeout", "must not be negative, got %s", c.Backend.Timeout)
	}

	if c.Engine.ChunkSize <= 0 {
		add("engine.chunk_size", "must be positive, got %d", c.Engine.ChunkSize)
	}
	if c.Engine.Window <= 0 {
		add("engine.window", "must be positive, got %s", c.Engine.Window)
	}
	if c.Engine.Workers < 1 {
		add("engine.workers", "must be at least 1, got %d", c.Engine.Workers)
	}
	if c.Engine.RateLimit < 0 {
		add("engine.rate_limit", "must not be negative, got %g", c.Engine.RateLimit)
	}
	if c.Engine.MaxSessions < 0 {
		add("engine.max_sessions", "must not be negative, got %d", c.Engine.MaxSessions)
	}

	if _, err := output.ParseVerbosity(c.Output.Verbosity); err != nil {
		add("output.verbosity", "unknown verbosity %q", c.Output.Verbosity)
	}
	if len(c.Output.Kinds()) == 0 {
		add("output.kind", "no output configured")
	}
	for _, kind := range c.Output.Kinds() {
		switch kind {
		case "stdout":
		case "file":
			if c.Output.Path == "" {
				add("output.path", "required for file output")
			}
		case "webhook":
			if c.Output.WebhookURL == "" {
				add("output.webhook_url", "required for webhook output")
			}
		default:
			add("output.kind", "unknown output %q (want stdout, file or webhook)", kind)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
