package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hejijunhao/watchpath/internal/backend"
	"github.com/hejijunhao/watchpath/internal/engine/chunker"
	"github.com/hejijunhao/watchpath/internal/engine/enrich"
	"github.com/hejijunhao/watchpath/internal/engine/normalize"
	"github.com/hejijunhao/watchpath/internal/engine/prompt"
	"github.com/hejijunhao/watchpath/internal/engine/severity"
	"github.com/hejijunhao/watchpath/internal/model"
)

// ErrBackendUnavailable is wrapped by every error Analyze returns for a
// backend that could not be started, could not be reached, or exited non-zero.
var ErrBackendUnavailable = errors.New("backend unavailable")

// Engine orchestrates the chunk → prompt → invoke → normalize → enrich
// pipeline for one session at a time. It is safe for concurrent use.
type Engine struct {
	backend   backend.Backend
	template  string
	chunkSize int
	timeout   time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithTemplate sets the base prompt template.
func WithTemplate(t string) Option {
	return func(e *Engine) { e.template = t }
}

// WithChunkSize caps the number of log lines sent per session.
func WithChunkSize(n int) Option {
	return func(e *Engine) { e.chunkSize = n }
}

// WithTimeout bounds each backend invocation. Zero means no limit beyond the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// New creates an Engine over the given backend.
func New(b backend.Backend, opts ...Option) *Engine {
	e := &Engine{
		backend:   b,
		template:  prompt.Default(),
		chunkSize: chunker.DefaultSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze produces the analysis for one session. The returned analysis is
// always well-formed; a non-nil error wraps ErrBackendUnavailable and the
// caller decides whether to substitute Degraded.
func (e *Engine) Analyze(ctx context.Context, s model.Session) (model.SessionAnalysis, error) {
	chunk := chunker.Chunk(s, e.chunkSize)

	if chunker.IsBlank(chunk) {
		note, ev := enrich.Enrich("", model.NoEvidence(), chunk)
		return model.SessionAnalysis{
			SessionID:   s.ID,
			Severity:    severity.ForScore(nil),
			AnalystNote: note,
			Evidence:    ev,
		}, nil
	}

	text := prompt.Compose(e.template, s.ID, chunk)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := e.backend.Invoke(ctx, text)
	if err != nil {
		return model.SessionAnalysis{}, fmt.Errorf("engine: session %s: %w: %w", s.ID, ErrBackendUnavailable, err)
	}
	if res.ExitCode != 0 {
		return model.SessionAnalysis{}, fmt.Errorf("engine: session %s: %w: exit status %d: %s",
			s.ID, ErrBackendUnavailable, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	slog.Debug("backend responded",
		"session", s.ID,
		"duration", time.Since(start),
		"prompt_tokens", chunker.EstimateTokens(text),
		"response_bytes", len(res.Stdout),
	)

	return Interpret(s.ID, res.Stdout, chunk), nil
}

// Interpret turns a raw backend response for a chunk into an analysis.
func Interpret(sessionID, raw, chunk string) model.SessionAnalysis {
	n := normalize.Normalize(raw)
	note, ev := enrich.Enrich(n.Note, n.Evidence, chunk)
	return model.SessionAnalysis{
		SessionID:    sessionID,
		AnomalyScore: n.Score,
		Severity:     severity.ForScore(n.Score),
		AnalystNote:  note,
		Evidence:     ev,
		RawResponse:  strings.TrimSpace(raw),
		Conforms:     n.Conforms,
	}
}

// Degraded is the analysis substituted when the backend failed: no score,
// the failure reason as the note, and the chunk itself as evidence.
func Degraded(s model.Session, chunkSize int, err error) model.SessionAnalysis {
	return model.SessionAnalysis{
		SessionID:   s.ID,
		Severity:    severity.ForScore(nil),
		AnalystNote: "Analysis unavailable: " + reason(err),
		Evidence:    model.SingleEvidence(chunker.Chunk(s, chunkSize)),
		Degraded:    true,
	}
}

// ChunkSize returns the configured chunk size.
func (e *Engine) ChunkSize() int { return e.chunkSize }

// reason strips the engine prefix so the note reads as the underlying cause.
func reason(err error) string {
	if err == nil {
		return ErrBackendUnavailable.Error()
	}
	msg := err.Error()
	if i := strings.Index(msg, ErrBackendUnavailable.Error()); i >= 0 {
		return msg[i:]
	}
	return msg
}
