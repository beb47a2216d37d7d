// Package pipeline runs one analysis pass over a log file: parse,
// sessionize, summarize, analyze each session through the engine and deliver
// the payloads in session order.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/hejijunhao/watchpath/internal/backend"
	"github.com/hejijunhao/watchpath/internal/engine"
	"github.com/hejijunhao/watchpath/internal/model"
	"github.com/hejijunhao/watchpath/internal/output"
	"github.com/hejijunhao/watchpath/internal/parser"
	"github.com/hejijunhao/watchpath/internal/report"
	"github.com/hejijunhao/watchpath/internal/sessionize"
	"github.com/hejijunhao/watchpath/internal/stats"
)

const healthCheckTimeout = 5 * time.Second

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers sets how many sessions are analyzed concurrently. Default: 1.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithRateLimit spaces backend calls to at most rps per second. Zero or
// negative disables the limit.
func WithRateLimit(rps float64) Option {
	return func(p *Pipeline) {
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithWindow sets the sessionizer inactivity window.
func WithWindow(d time.Duration) Option {
	return func(p *Pipeline) { p.window = d }
}

// WithMaxSessions analyzes only the first n sessions. Zero means all.
func WithMaxSessions(n int) Option {
	return func(p *Pipeline) { p.maxSessions = n }
}

// WithHealthCheck probes the backend before the first session. A failed probe
// is logged; the run continues and failing sessions degrade.
func WithHealthCheck(c backend.Checker) Option {
	return func(p *Pipeline) { p.checker = c }
}

// Pipeline connects the engine to an output.
type Pipeline struct {
	engine      *engine.Engine
	output      output.Output
	checker     backend.Checker
	limiter     *rate.Limiter
	workers     int
	window      time.Duration
	maxSessions int
}

// Summary describes a finished run.
type Summary struct {
	RunID        string
	TotalLines   int
	SkippedLines int
	Sessions     int
	Delivered    int
	Degraded     int
	Duration     time.Duration
	// Statistics covers every kept session, including ones a cancelled run
	// never analyzed.
	Statistics model.SessionStatistics
}

// New creates a Pipeline from the given components.
func New(eng *engine.Engine, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:  eng,
		output:  out,
		workers: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run analyzes the log file at path.
func (p *Pipeline) Run(ctx context.Context, path string) (Summary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Summary{}, fmt.Errorf("pipeline: %w", err)
	}
	res, err := parser.ParseFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("pipeline: %w", err)
	}
	slog.Info("log parsed",
		"path", path,
		"size", humanize.Bytes(uint64(info.Size())),
		"records", len(res.Records),
		"skipped", res.SkippedLines,
	)
	return p.analyze(ctx, res)
}

// RunReader analyzes log text read from r.
func (p *Pipeline) RunReader(ctx context.Context, r io.Reader) (Summary, error) {
	res, err := parser.ParseReader(r)
	if err != nil {
		return Summary{}, fmt.Errorf("pipeline: %w", err)
	}
	return p.analyze(ctx, res)
}

// Prepare sessionizes records, keeps the first maxSessions sessions (all when
// maxSessions <= 0) and summarizes what is kept.
func Prepare(records []model.LogRecord, window time.Duration, maxSessions int) ([]model.Session, model.SessionStatistics) {
	sessions := sessionize.New(sessionize.Config{Window: window}).Build(records)
	if maxSessions > 0 && len(sessions) > maxSessions {
		sessions = sessions[:maxSessions]
	}
	return sessions, stats.Summarize(sessions)
}

func (p *Pipeline) analyze(ctx context.Context, res parser.Result) (Summary, error) {
	start := time.Now()
	sum := Summary{
		RunID:        uuid.NewString(),
		TotalLines:   res.TotalLines,
		SkippedLines: res.SkippedLines,
	}

	sessions, st := Prepare(res.Records, p.window, p.maxSessions)
	sum.Sessions = len(sessions)
	sum.Statistics = st
	global := report.Global(st)

	p.healthCheck(ctx)

	var started, degraded, delivered atomic.Int64
	// Writes use a context detached from run cancellation so payloads for
	// sessions already analyzed still reach the output.
	writeCtx := context.WithoutCancel(ctx)
	buf := newOrderedBuffer(p.output)

	// Sessions are admitted in index order by this loop alone, so after
	// cancellation no later session can start while an earlier one is
	// skipped and the buffer never waits on a hole.
	g, gctx := errgroup.WithContext(ctx)
	slots := semaphore.NewWeighted(int64(p.workers))

	for i, s := range sessions {
		if err := slots.Acquire(gctx, 1); err != nil {
			break
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(gctx); err != nil {
				slots.Release(1)
				break
			}
		}
		// Acquire may succeed on a done context.
		if gctx.Err() != nil {
			slots.Release(1)
			break
		}
		started.Add(1)
		g.Go(func() error {
			defer slots.Release(1)
			a, err := p.engine.Analyze(context.WithoutCancel(gctx), s)
			if err != nil {
				slog.Warn("session analysis degraded", "session", s.ID, "error", err)
				a = engine.Degraded(s, p.engine.ChunkSize(), err)
				degraded.Add(1)
			}
			n, err := buf.put(writeCtx, i, report.Build(sum.RunID, s, a, global))
			delivered.Add(int64(n))
			return err
		})
	}
	err := g.Wait()

	sum.Delivered = int(delivered.Load())
	sum.Degraded = int(degraded.Load())
	sum.Duration = time.Since(start)

	slog.Info("run complete",
		"run_id", sum.RunID,
		"lines", humanize.Comma(int64(sum.TotalLines)),
		"sessions", sum.Sessions,
		"delivered", sum.Delivered,
		"degraded", sum.Degraded,
		"duration", sum.Duration.Round(time.Millisecond),
	)

	if err != nil {
		return sum, fmt.Errorf("pipeline output: %w", err)
	}
	if n := int(started.Load()); ctx.Err() != nil && n < len(sessions) {
		return sum, fmt.Errorf("pipeline: cancelled after %d of %d sessions: %w", n, len(sessions), ctx.Err())
	}
	return sum, nil
}

func (p *Pipeline) healthCheck(ctx context.Context) {
	if p.checker == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := p.checker.Check(cctx); err != nil {
		slog.Warn("backend health check failed", "error", err)
	}
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}
