package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hejijunhao/watchpath/internal/backend"
	"github.com/hejijunhao/watchpath/internal/engine"
	"github.com/hejijunhao/watchpath/internal/engine/testdata"
	"github.com/hejijunhao/watchpath/internal/parser"
	"github.com/hejijunhao/watchpath/internal/report"
)

// Session ids of the embedded sample log, in emission order.
var sampleOrder = []string{
	"198.51.100.23-anon-1",
	"198.51.100.23-alice-1",
	"203.0.113.7-anon-1",
	"192.0.2.10-anon-1",
	"198.51.100.23-alice-2",
}

const okResponse = `{"anomaly_score": 0.2, "analyst_note": {"summary": "Routine browsing", "impact": "None", "action": "No action"}, "evidence": []}`

// --- mocks ---

var sessionLine = regexp.MustCompile(`Session ID: (\S+)`)

// scriptedBackend answers per session id. Sessions listed in delays sleep
// first; sessions listed in fail exit non-zero.
type scriptedBackend struct {
	mu     sync.Mutex
	calls  []string
	delays map[string]time.Duration
	fail   map[string]bool
	onCall func(id string)
}

func (b *scriptedBackend) Invoke(ctx context.Context, prompt string) (backend.Result, error) {
	id := ""
	if m := sessionLine.FindStringSubmatch(prompt); m != nil {
		id = m[1]
	}
	b.mu.Lock()
	b.calls = append(b.calls, id)
	b.mu.Unlock()
	if b.onCall != nil {
		b.onCall(id)
	}
	if d := b.delays[id]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return backend.Result{}, ctx.Err()
		}
	}
	if b.fail[id] {
		return backend.Result{Stderr: "model not found", ExitCode: 1}, nil
	}
	return backend.Result{Stdout: okResponse}, nil
}

func (b *scriptedBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

type mockChecker struct {
	called bool
	err    error
}

func (c *mockChecker) Check(context.Context) error {
	c.called = true
	return c.err
}

type mockOutput struct {
	mu       sync.Mutex
	payloads []report.Payload
	err      error
	closed   bool
}

func (m *mockOutput) Write(_ context.Context, p report.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.payloads = append(m.payloads, p)
	return nil
}

func (m *mockOutput) Close() error {
	m.closed = true
	return nil
}

func (m *mockOutput) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.payloads))
	for i, p := range m.payloads {
		out[i] = p.SessionID
	}
	return out
}

func runSample(t *testing.T, ctx context.Context, b backend.Backend, out *mockOutput, opts ...Option) (Summary, error) {
	t.Helper()
	p := New(engine.New(b), out, opts...)
	return p.RunReader(ctx, strings.NewReader(testdata.AccessLog))
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- orderedBuffer tests ---

// held reports how many payloads are waiting on an earlier session.
func (b *orderedBuffer) held() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func TestOrderedBufferReleasesContiguousPayloads(t *testing.T) {
	out := &mockOutput{}
	buf := newOrderedBuffer(out)
	ctx := context.Background()

	if n, _ := buf.put(ctx, 2, report.Payload{SessionID: "c"}); n != 0 {
		t.Fatalf("index 2 written early: %d", n)
	}
	if n, _ := buf.put(ctx, 1, report.Payload{SessionID: "b"}); n != 0 {
		t.Fatalf("index 1 written early: %d", n)
	}
	if buf.held() != 2 {
		t.Fatalf("held = %d, want 2", buf.held())
	}
	if n, _ := buf.put(ctx, 0, report.Payload{SessionID: "a"}); n != 3 {
		t.Fatalf("releasing index 0 wrote %d, want 3", n)
	}
	if got := out.ids(); !equalIDs(got, []string{"a", "b", "c"}) {
		t.Fatalf("order = %v", got)
	}
	if buf.held() != 0 {
		t.Fatalf("held = %d after release", buf.held())
	}
}

func TestOrderedBufferStickyError(t *testing.T) {
	boom := errors.New("disk full")
	buf := newOrderedBuffer(&mockOutput{err: boom})

	if _, err := buf.put(context.Background(), 0, report.Payload{}); !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}
	if _, err := buf.put(context.Background(), 1, report.Payload{}); !errors.Is(err, boom) {
		t.Fatalf("expected sticky error, got %v", err)
	}
}

// --- Run tests ---

func TestRunDeliversInSessionOrder(t *testing.T) {
	b := &scriptedBackend{delays: map[string]time.Duration{
		sampleOrder[0]: 150 * time.Millisecond,
		sampleOrder[2]: 50 * time.Millisecond,
	}}
	out := &mockOutput{}

	sum, err := runSample(t, context.Background(), b, out, WithWorkers(4))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got := out.ids(); !equalIDs(got, sampleOrder) {
		t.Fatalf("delivery order = %v, want %v", got, sampleOrder)
	}
	if sum.Sessions != 5 || sum.Delivered != 5 || sum.Degraded != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.TotalLines != 17 || sum.SkippedLines != 2 {
		t.Errorf("lines = %d/%d, want 17/2", sum.TotalLines, sum.SkippedLines)
	}

	for _, p := range out.payloads {
		if p.RunID == "" || p.RunID != sum.RunID {
			t.Errorf("%s: run id %q, want %q", p.SessionID, p.RunID, sum.RunID)
		}
		if p.GlobalStats != out.payloads[0].GlobalStats {
			t.Errorf("%s: global stats not shared", p.SessionID)
		}
		if p.AnomalyScore == nil || *p.AnomalyScore != 0.2 {
			t.Errorf("%s: score = %v", p.SessionID, p.AnomalyScore)
		}
	}
}

func TestRunSubstitutesDegradedAnalysis(t *testing.T) {
	failing := sampleOrder[2]
	b := &scriptedBackend{fail: map[string]bool{failing: true}}
	out := &mockOutput{}

	sum, err := runSample(t, context.Background(), b, out, WithWorkers(2))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.Degraded != 1 || sum.Delivered != 5 {
		t.Fatalf("summary = %+v", sum)
	}

	for _, p := range out.payloads {
		if p.SessionID != failing {
			if p.Degraded {
				t.Errorf("%s unexpectedly degraded", p.SessionID)
			}
			continue
		}
		if !p.Degraded {
			t.Fatal("failing session not marked degraded")
		}
		if p.AnomalyScore != nil {
			t.Errorf("degraded score = %v, want nil", *p.AnomalyScore)
		}
		if !strings.HasPrefix(p.AnalystNote, "Analysis unavailable: backend unavailable") {
			t.Errorf("note = %q", p.AnalystNote)
		}
		if !strings.Contains(p.AnalystNote, "model not found") {
			t.Errorf("note lacks stderr: %q", p.AnalystNote)
		}
		if !p.Evidence.IsSingle() || !strings.Contains(p.Evidence.String(), "/wp-login.php") {
			t.Errorf("evidence = %v, want the chunk", p.Evidence)
		}
	}
}

func TestRunMaxSessions(t *testing.T) {
	b := &scriptedBackend{}
	out := &mockOutput{}

	sum, err := runSample(t, context.Background(), b, out, WithMaxSessions(2))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.Sessions != 2 || b.callCount() != 2 {
		t.Fatalf("sessions = %d, calls = %d, want 2/2", sum.Sessions, b.callCount())
	}
	g := out.payloads[0].GlobalStats
	if len(g.IPDistribution) != 1 || g.IPDistribution["198.51.100.23"] != 2 {
		t.Errorf("statistics not limited to kept sessions: %v", g.IPDistribution)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &scriptedBackend{}
	out := &mockOutput{}

	_, err := runSample(t, ctx, b, out)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if b.callCount() != 0 || len(out.ids()) != 0 {
		t.Fatalf("calls = %d, delivered = %d, want 0/0", b.callCount(), len(out.ids()))
	}
}

func TestRunCancelStopsScheduling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := &scriptedBackend{
		delays: map[string]time.Duration{sampleOrder[0]: 50 * time.Millisecond},
		onCall: func(string) { cancel() },
	}
	out := &mockOutput{}

	sum, err := runSample(t, ctx, b, out, WithWorkers(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if b.callCount() != 1 {
		t.Fatalf("backend calls = %d, want 1", b.callCount())
	}
	// The in-flight invocation is detached from run cancellation.
	if got := out.ids(); !equalIDs(got, sampleOrder[:1]) {
		t.Fatalf("delivered = %v", got)
	}
	if out.payloads[0].Degraded || sum.Degraded != 0 {
		t.Error("in-flight session degraded by run cancellation")
	}
}

func TestRunCancelWithWorkersDeliversContiguousPrefix(t *testing.T) {
	for _, workers := range []int{2, 3, 5} {
		ctx, cancel := context.WithCancel(context.Background())
		b := &scriptedBackend{
			delays: map[string]time.Duration{sampleOrder[0]: 30 * time.Millisecond},
			onCall: func(string) { cancel() },
		}
		out := &mockOutput{}

		sum, err := runSample(t, ctx, b, out, WithWorkers(workers))
		cancel()
		if !errors.Is(err, context.Canceled) && b.callCount() != len(sampleOrder) {
			t.Fatalf("workers=%d: expected context.Canceled, got %v", workers, err)
		}
		// Every started session is delivered and nothing after a skipped
		// session starts.
		n := b.callCount()
		if got := out.ids(); !equalIDs(got, sampleOrder[:n]) {
			t.Fatalf("workers=%d: delivered = %v, want first %d sessions", workers, got, n)
		}
		if sum.Delivered != n {
			t.Errorf("workers=%d: summary delivered = %d, want %d", workers, sum.Delivered, n)
		}
		if sum.Statistics.IPDistribution["198.51.100.23"] != 3 {
			t.Errorf("workers=%d: statistics = %v", workers, sum.Statistics.IPDistribution)
		}
	}
}

func TestRunOutputErrorStopsRun(t *testing.T) {
	boom := errors.New("disk full")
	b := &scriptedBackend{}
	out := &mockOutput{err: boom}

	_, err := runSample(t, context.Background(), b, out)
	if !errors.Is(err, boom) {
		t.Fatalf("expected output error, got %v", err)
	}
	if b.callCount() >= len(sampleOrder) {
		t.Errorf("backend calls = %d, expected the run to stop early", b.callCount())
	}
}

func TestRunRateLimit(t *testing.T) {
	b := &scriptedBackend{}
	out := &mockOutput{}

	start := time.Now()
	if _, err := runSample(t, context.Background(), b, out, WithWorkers(5), WithRateLimit(20)); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	// Burst of one, then four calls spaced 50ms apart.
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("rate limit not applied: run took %v", elapsed)
	}
}

func TestRunHealthCheckFailureIsNotFatal(t *testing.T) {
	c := &mockChecker{err: errors.New("connection refused")}
	out := &mockOutput{}

	if _, err := runSample(t, context.Background(), &scriptedBackend{}, out, WithHealthCheck(c)); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !c.called {
		t.Error("health check not called")
	}
	if len(out.ids()) != len(sampleOrder) {
		t.Errorf("delivered %d, want %d", len(out.ids()), len(sampleOrder))
	}
}

func TestRunFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	if err := os.WriteFile(path, []byte(testdata.AccessLog), 0o644); err != nil {
		t.Fatal(err)
	}
	out := &mockOutput{}
	p := New(engine.New(&scriptedBackend{}), out)

	sum, err := p.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.Delivered != 5 {
		t.Errorf("delivered = %d, want 5", sum.Delivered)
	}
	if err := p.Close(); err != nil || !out.closed {
		t.Errorf("Close: err=%v closed=%v", err, out.closed)
	}
}

func TestRunMissingFile(t *testing.T) {
	p := New(engine.New(&scriptedBackend{}), &mockOutput{})
	_, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "missing.log"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestPrepareWindow(t *testing.T) {
	res, err := parser.ParseReader(strings.NewReader(testdata.AccessLog))
	if err != nil {
		t.Fatal(err)
	}
	// A one-hour window merges alice's two sessions.
	sessions, st := Prepare(res.Records, time.Hour, 0)
	if len(sessions) != 4 {
		t.Fatalf("sessions = %d, want 4", len(sessions))
	}
	if st.IPDistribution["198.51.100.23"] != 2 {
		t.Errorf("ip distribution = %v", st.IPDistribution)
	}
}
