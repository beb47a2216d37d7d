package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hejijunhao/watchpath/internal/report"
)

// --- mocks ---

type mockOutput struct {
	mu     sync.Mutex
	ids    []string
	closed bool
	err    error
	delay  time.Duration
}

func (m *mockOutput) Write(_ context.Context, p report.Payload) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	m.ids = append(m.ids, p.SessionID)
	m.mu.Unlock()
	return m.err
}

func (m *mockOutput) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockOutput) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ids)
}

func payload(id string) report.Payload {
	return report.Payload{SessionID: id, AnalystNote: "n"}
}

func TestPayloadsFlowThroughInOrder(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(4))

	for i := 0; i < 10; i++ {
		if err := a.Write(context.Background(), payload(fmt.Sprint(i))); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if inner.count() != 10 {
		t.Fatalf("got %d payloads, want 10", inner.count())
	}
	for i, id := range inner.ids {
		if id != fmt.Sprint(i) {
			t.Fatalf("order lost at %d: %v", i, inner.ids)
		}
	}
	if !inner.closed {
		t.Error("inner output not closed")
	}
}

func TestBackpressureUnblocks(t *testing.T) {
	inner := &mockOutput{delay: 50 * time.Millisecond}
	a := New(inner, WithBufferSize(1))
	a.Write(context.Background(), payload("first"))

	done := make(chan struct{})
	go func() {
		a.Write(context.Background(), payload("second"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Write blocked indefinitely")
	}
	a.Close()
}

func TestBlockedWriteHonoursContext(t *testing.T) {
	inner := &mockOutput{delay: time.Second}
	a := New(inner, WithBufferSize(1))
	a.Write(context.Background(), payload("in-flight"))
	a.Write(context.Background(), payload("queued"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := a.Write(ctx, payload("blocked")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	a.Close()
}

func TestDropOnFull(t *testing.T) {
	inner := &mockOutput{delay: 100 * time.Millisecond}
	a := New(inner, WithBufferSize(1), WithDropOnFull())

	for i := 0; i < 20; i++ {
		a.Write(context.Background(), payload("burst"))
	}
	a.Close()

	if n := inner.count(); n == 20 || n == 0 {
		t.Errorf("expected some but not all payloads delivered, got %d", n)
	}
}

func TestCloseDrainsRemaining(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(100))
	for i := 0; i < 50; i++ {
		a.Write(context.Background(), payload("drain"))
	}
	a.Close()

	if inner.count() != 50 {
		t.Errorf("after Close, got %d payloads, want 50", inner.count())
	}
}

func TestDrainTimeout(t *testing.T) {
	inner := &mockOutput{delay: 500 * time.Millisecond}
	a := New(inner, WithBufferSize(4), WithDrainTimeout(50*time.Millisecond))
	a.Write(context.Background(), payload("slow"))

	start := time.Now()
	a.Close()
	if time.Since(start) > 400*time.Millisecond {
		t.Fatal("Close ignored drain timeout")
	}
}

func TestErrorCallbackInvoked(t *testing.T) {
	inner := &mockOutput{err: errors.New("write failed")}
	var errorCount atomic.Int64
	a := New(inner, WithBufferSize(16), WithOnError(func(err error) {
		errorCount.Add(1)
	}))
	for i := 0; i < 5; i++ {
		a.Write(context.Background(), payload("failing"))
	}
	a.Close()

	if errorCount.Load() != 5 {
		t.Errorf("error callback called %d times, want 5", errorCount.Load())
	}
}

func TestCloseIdempotent(t *testing.T) {
	a := New(&mockOutput{}, WithBufferSize(16))
	a.Write(context.Background(), payload("x"))

	if err := a.Close(); err != nil {
		t.Fatalf("first Close error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("drain goroutine did not exit after Close")
	}
}
