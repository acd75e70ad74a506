package vfsasync

import "context"

// Executor is a bounded worker pool: at most maxConcurrency submitted
// operations run at once, matching the pack's ctx.Err()-first idiom
// (checked both before acquiring a slot and immediately after) rather
// than a dedicated worker-goroutine-plus-queue design, since the core's
// own operations are already the unit of concurrency control.
type Executor struct {
	sem chan struct{}
}

// NewExecutor returns an Executor allowing at most maxConcurrency
// operations to run simultaneously. A non-positive value is treated as 1.
func NewExecutor(maxConcurrency int) *Executor {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Executor{sem: make(chan struct{}, maxConcurrency)}
}

// Submit schedules fn to run on the pool and returns a Future for its
// result. If ctx is cancelled before a worker slot is acquired, fn never
// runs and the Future completes with ctx.Err(). Once fn begins running,
// ctx cancellation and Future.Cancel are both ignored until it returns:
// there is no interruption of an in-flight synchronous operation.
func (e *Executor) Submit(ctx context.Context, fn func() (int64, error)) *Future {
	f := newFuture()

	go func() {
		select {
		case e.sem <- struct{}{}:
		case <-ctx.Done():
			f.complete(0, ctx.Err())
			return
		}
		defer func() { <-e.sem }()

		if ctx.Err() != nil {
			f.complete(0, ctx.Err())
			return
		}
		if f.cancelledBeforeStart() {
			f.complete(0, context.Canceled)
			return
		}

		n, err := fn()
		f.complete(n, err)
	}()

	return f
}
