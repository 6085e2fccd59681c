package party

import (
	"context"
	"sync"
)

// Barrier is a one-shot N-party rendezvous. It is used between the
// input and evaluation phases so a fast party never consumes an
// evaluation- or output-phase message while a straggler is still
// mid-input — though per spec, per-(wire,kind) message classification
// already makes that safe on its own, and the barrier is a second,
// belt-and-suspenders synchronization point, same as the reference
// implementation's unused Barrier handle made concrete.
type Barrier struct {
	n    int
	mu   sync.Mutex
	seen int
	done chan struct{}
}

// NewBarrier returns a barrier that releases once n parties call Wait.
func NewBarrier(n int) *Barrier {
	return &Barrier{n: n, done: make(chan struct{})}
}

// Wait blocks until every one of the n expected parties has called
// Wait, or until ctx is done first.
func (b *Barrier) Wait(ctx context.Context) error {
	b.mu.Lock()
	b.seen++
	if b.seen >= b.n {
		close(b.done)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
