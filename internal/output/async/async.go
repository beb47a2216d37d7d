package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hejijunhao/watchpath/internal/output"
	"github.com/hejijunhao/watchpath/internal/report"
)

const (
	defaultBufferSize   = 256
	defaultDrainTimeout = 30 * time.Second
)

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel capacity. Default: 256.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithDrainTimeout bounds how long Close waits for queued payloads.
// Default: 30s.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) { a.drainTimeout = d }
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write drop the payload instead of blocking when the
// buffer is full.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// Async moves delivery to a background goroutine so a slow destination does
// not hold up analysis. Payloads reach the inner output in Write order.
// Inner errors go to errFunc instead of the caller.
type Async struct {
	inner        output.Output
	ch           chan report.Payload
	done         chan struct{}
	errFunc      func(error)
	bufSize      int
	drainTimeout time.Duration
	dropOnFull   bool
	closeOnce    sync.Once
}

// New wraps inner and starts the drain goroutine.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		errFunc:      func(err error) { slog.Warn("async output write error", "error", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan report.Payload, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write queues p. It blocks while the buffer is full unless drop-on-full is
// set, and returns ctx.Err() if ctx ends while blocked.
func (a *Async) Write(ctx context.Context, p report.Payload) error {
	if a.dropOnFull {
		select {
		case a.ch <- p:
		default:
			slog.Warn("async output buffer full, dropping payload", "session", p.SessionID)
		}
		return nil
	}
	select {
	case a.ch <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting payloads, waits for the queue to drain (bounded by
// the drain timeout) and closes the inner output. Safe to call twice.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.ch)
		select {
		case <-a.done:
		case <-time.After(a.drainTimeout):
			slog.Warn("async output drain timed out", "timeout", a.drainTimeout)
		}
		err = a.inner.Close()
	})
	return err
}

func (a *Async) drain() {
	defer close(a.done)
	for p := range a.ch {
		if err := a.inner.Write(context.Background(), p); err != nil {
			a.errFunc(err)
		}
	}
}
