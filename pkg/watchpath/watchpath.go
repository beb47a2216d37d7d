package watchpath

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hejijunhao/watchpath/internal/backend"
	"github.com/hejijunhao/watchpath/internal/engine"
	"github.com/hejijunhao/watchpath/internal/engine/prompt"
	"github.com/hejijunhao/watchpath/internal/model"
	"github.com/hejijunhao/watchpath/internal/parser"
	"github.com/hejijunhao/watchpath/internal/pipeline"
	"github.com/hejijunhao/watchpath/internal/report"

	_ "github.com/hejijunhao/watchpath/internal/backend/exec"
	_ "github.com/hejijunhao/watchpath/internal/backend/ollama"
)

// Watchpath analyzes access logs through a language model backend.
type Watchpath struct {
	engine *engine.Engine
	opts   options
}

// New creates a Watchpath instance. It resolves the backend and loads the
// prompt template but does not contact the model.
func New(opts ...Option) (*Watchpath, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	b := o.custom
	if b == nil {
		var err error
		if b, err = backend.New(o.backend); err != nil {
			return nil, fmt.Errorf("watchpath: %w", err)
		}
	}

	tmpl, err := prompt.Load(o.promptPath)
	if err != nil {
		return nil, fmt.Errorf("watchpath: %w", err)
	}

	eng := engine.New(b,
		engine.WithTemplate(tmpl),
		engine.WithChunkSize(o.chunkSize),
		engine.WithTimeout(o.backend.Timeout),
	)
	return &Watchpath{engine: eng, opts: o}, nil
}

// Sessions parses and sessionizes the log in r without calling the model.
func (w *Watchpath) Sessions(r io.Reader) ([]Session, Statistics, error) {
	res, err := parser.ParseReader(r)
	if err != nil {
		return nil, Statistics{}, fmt.Errorf("watchpath: %w", err)
	}
	sessions, st := pipeline.Prepare(res.Records, w.opts.window, w.opts.maxSessions)

	out := make([]Session, len(sessions))
	for i := range sessions {
		out[i] = sessionFromModel(&sessions[i])
	}
	return out, statisticsFromModel(st), nil
}

// Analyze runs every session of the log in r through the model and returns
// one report per session in session order, together with the statistics
// every report was analyzed against. A backend failure degrades the affected
// report instead of failing the call. On cancellation the reports delivered
// so far are returned with the error.
func (w *Watchpath) Analyze(ctx context.Context, r io.Reader) ([]Report, Statistics, error) {
	c := &collector{}
	p := w.newPipeline(c)
	sum, err := p.RunReader(ctx, r)
	if err != nil {
		return c.reports(), statisticsFromModel(sum.Statistics), fmt.Errorf("watchpath: %w", err)
	}
	return c.reports(), statisticsFromModel(sum.Statistics), nil
}

// AnalyzeFile is Analyze over the file at path.
func (w *Watchpath) AnalyzeFile(ctx context.Context, path string) ([]Report, Statistics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Statistics{}, fmt.Errorf("watchpath: %w", err)
	}
	defer f.Close()
	return w.Analyze(ctx, f)
}

// Interpret normalizes one raw model response for the given log chunk
// without calling any backend. Useful for replaying recorded responses.
func Interpret(raw, chunk string) Report {
	a := engine.Interpret("", raw, chunk)
	return Report{
		Score:       a.AnomalyScore,
		Severity:    a.Severity,
		Note:        a.AnalystNote,
		Evidence:    a.Evidence,
		RawResponse: a.RawResponse,
	}
}

func (w *Watchpath) newPipeline(out *collector) *pipeline.Pipeline {
	return pipeline.New(w.engine, out,
		pipeline.WithWorkers(w.opts.workers),
		pipeline.WithWindow(w.opts.window),
		pipeline.WithMaxSessions(w.opts.maxSessions),
	)
}

func sessionFromModel(s *model.Session) Session {
	raw := make([]string, len(s.Records))
	for i, r := range s.Records {
		raw[i] = r.Raw
	}
	return Session{
		ID:       s.ID,
		IP:       s.IP,
		User:     s.User,
		Start:    s.Start(),
		End:      s.End(),
		Duration: s.Duration(),
		Requests: len(s.Records),
		RawLogs:  raw,
	}
}

func statisticsFromModel(st model.SessionStatistics) Statistics {
	var timeline []TimelinePoint
	if len(st.Timeline) > 0 {
		timeline = make([]TimelinePoint, len(st.Timeline))
		for i, p := range st.Timeline {
			timeline[i] = TimelinePoint{Minute: p.Minute, Count: p.Count}
		}
	}
	return Statistics{
		MeanSessionDuration: st.MeanSessionDuration,
		IPDistribution:      st.IPDistribution,
		RequestCounts:       st.RequestCounts,
		StatusDistribution:  st.StatusDistribution,
		Timeline:            timeline,
	}
}

// collector is an output that keeps payloads in memory.
type collector struct {
	mu       sync.Mutex
	payloads []report.Payload
}

func (c *collector) Write(_ context.Context, p report.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, p)
	return nil
}

func (c *collector) Close() error { return nil }

func (c *collector) reports() []Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Report, len(c.payloads))
	for i, p := range c.payloads {
		out[i] = Report{
			RunID:       p.RunID,
			SessionID:   p.SessionID,
			IP:          p.IP,
			User:        p.User,
			Score:       p.AnomalyScore,
			Severity:    p.Severity,
			Note:        p.AnalystNote,
			Evidence:    p.Evidence,
			RawResponse: p.RawResponse,
			Degraded:    p.Degraded,
		}
	}
	return out
}
