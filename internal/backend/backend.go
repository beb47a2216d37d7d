package backend

import (
	"context"
	"fmt"
	"time"
)

// Backend runs one prompt through a language model.
type Backend interface {
	// Invoke sends prompt and returns whatever the model produced. A non-nil
	// error means the model could not be reached or started; a model that ran
	// and failed reports a non-zero ExitCode instead.
	Invoke(ctx context.Context, prompt string) (Result, error)
}

// Checker is implemented by backends that can verify reachability up front.
type Checker interface {
	Check(ctx context.Context) error
}

// Result is the raw outcome of one invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Config holds provider-specific settings.
type Config struct {
	Provider string
	Model    string
	Command  string // exec: executable to run
	Endpoint string // http backends: base URL
	APIKey   string
	Timeout  time.Duration // per request; 0 leaves it to the caller's context
	Extra    map[string]string
}

// Error reports a backend that could not be started or reached.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
