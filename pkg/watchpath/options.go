package watchpath

import (
	"time"

	"github.com/hejijunhao/watchpath/internal/backend"
	"github.com/hejijunhao/watchpath/internal/engine/chunker"
	"github.com/hejijunhao/watchpath/internal/sessionize"
)

type options struct {
	backend     backend.Config
	custom      Backend
	promptPath  string
	chunkSize   int
	window      time.Duration
	workers     int
	maxSessions int
}

// Option configures a Watchpath instance.
type Option func(*options)

// WithBackend selects a built-in backend by name: "exec" (default) runs the
// model as a local process, "ollama" talks to an Ollama server over HTTP.
func WithBackend(provider string) Option {
	return func(o *options) { o.backend.Provider = provider }
}

// WithModel sets the model name. Default: "mistral:7b-instruct".
func WithModel(model string) Option {
	return func(o *options) { o.backend.Model = model }
}

// WithCommand sets the executable for the exec backend. Default: "ollama".
func WithCommand(command string) Option {
	return func(o *options) { o.backend.Command = command }
}

// WithEndpoint sets the server URL for the ollama backend.
func WithEndpoint(url string) Option {
	return func(o *options) { o.backend.Endpoint = url }
}

// WithTimeout bounds each model invocation.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.backend.Timeout = d }
}

// WithCustomBackend uses b instead of a built-in backend.
func WithCustomBackend(b Backend) Option {
	return func(o *options) { o.custom = b }
}

// WithPromptFile loads the analyst prompt template from path instead of the
// built-in one.
func WithPromptFile(path string) Option {
	return func(o *options) { o.promptPath = path }
}

// WithChunkSize caps how many log lines of a session are sent to the model.
// Default: 50.
func WithChunkSize(n int) Option {
	return func(o *options) { o.chunkSize = n }
}

// WithWindow sets the inactivity gap that ends a session. Default: 15m.
func WithWindow(d time.Duration) Option {
	return func(o *options) { o.window = d }
}

// WithWorkers sets how many sessions are analyzed concurrently. Default: 1.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithMaxSessions analyzes only the first n sessions. Default: all.
func WithMaxSessions(n int) Option {
	return func(o *options) { o.maxSessions = n }
}

func defaultOptions() options {
	return options{
		backend:   backend.Config{Provider: "exec"},
		chunkSize: chunker.DefaultSize,
		window:    sessionize.DefaultWindow,
		workers:   1,
	}
}
