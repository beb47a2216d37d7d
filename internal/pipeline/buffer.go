package pipeline

import (
	"context"
	"sync"

	"github.com/hejijunhao/watchpath/internal/output"
	"github.com/hejijunhao/watchpath/internal/report"
)

// orderedBuffer holds payloads that finished out of order and releases them
// to the output strictly by session index.
type orderedBuffer struct {
	out output.Output

	mu      sync.Mutex
	next    int
	pending map[int]report.Payload
	err     error
}

func newOrderedBuffer(out output.Output) *orderedBuffer {
	return &orderedBuffer{
		out:     out,
		pending: make(map[int]report.Payload),
	}
}

// put records the payload for session index i and writes every payload that
// is now contiguous with what has already been written. It returns how many
// payloads it wrote. After the first write error the buffer stops writing
// and keeps returning that error.
func (b *orderedBuffer) put(ctx context.Context, i int, p report.Payload) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err != nil {
		return 0, b.err
	}
	b.pending[i] = p

	written := 0
	for {
		next, ok := b.pending[b.next]
		if !ok {
			return written, nil
		}
		delete(b.pending, b.next)
		b.next++
		if err := b.out.Write(ctx, next); err != nil {
			b.err = err
			return written, err
		}
		written++
	}
}
