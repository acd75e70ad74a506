// Package vfsasync is a thin asynchronous facade over pkg/vfscore.Channel:
// each operation is submitted to a bounded worker pool and returns a
// completion handle. All correctness still derives from the synchronous
// core underneath; this package adds nothing but scheduling.
package vfsasync

import "sync"

// Future is a completion handle for one asynchronous channel operation.
// Cancel does not interrupt the underlying synchronous call once it has
// started; it only keeps an operation that has not yet started from
// running.
type Future struct {
	done chan struct{}

	mu        sync.Mutex
	n         int64
	err       error
	cancelled bool
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(n int64, err error) {
	f.mu.Lock()
	f.n, f.err = n, err
	f.mu.Unlock()
	close(f.done)
}

// Cancel marks the future cancelled. If the operation has not yet started
// executing on the worker pool, it will observe this and skip running
// entirely; if it has already started, it runs to completion regardless
// and its result is still reported by Result and TryResult.
func (f *Future) Cancel() {
	f.mu.Lock()
	f.cancelled = true
	f.mu.Unlock()
}

func (f *Future) cancelledBeforeStart() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

// Done returns a channel closed once the operation has completed (with a
// result, an error, or a pre-start cancellation).
func (f *Future) Done() <-chan struct{} { return f.done }

// Result blocks until the operation completes and returns its outcome.
// Once the operation has started, neither cancellation of the ctx passed
// to Submit nor Cancel makes Result return early.
func (f *Future) Result() (int64, error) {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n, f.err
}

// TryResult returns the result if already available, without blocking.
func (f *Future) TryResult() (n int64, err error, ready bool) {
	select {
	case <-f.done:
	default:
		return 0, nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n, f.err, true
}
