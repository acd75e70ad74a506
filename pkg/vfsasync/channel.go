package vfsasync

import (
	"context"
	"io"

	"github.com/vfscore/engine/pkg/vfscore"
)

// AsyncChannel wraps a vfscore.Channel and an Executor, offering an
// asynchronous variant of each synchronous operation. It adds no
// synchronization of its own beyond Channel's own self-serialization:
// two operations submitted concurrently on the same AsyncChannel are
// still totally ordered by Channel's opMu, they simply queue on
// different goroutines instead of the caller's own.
type AsyncChannel struct {
	ch   *vfscore.Channel
	exec *Executor
}

// NewAsyncChannel returns an AsyncChannel over ch, scheduled on exec.
func NewAsyncChannel(ch *vfscore.Channel, exec *Executor) *AsyncChannel {
	return &AsyncChannel{ch: ch, exec: exec}
}

// Channel returns the underlying synchronous Channel, for callers that
// need to mix synchronous and asynchronous calls.
func (a *AsyncChannel) Channel() *vfscore.Channel { return a.ch }

func (a *AsyncChannel) Read(ctx context.Context, dst []byte) *Future {
	return a.exec.Submit(ctx, func() (int64, error) { return a.ch.Read(dst) })
}

func (a *AsyncChannel) ReadAt(ctx context.Context, dst []byte, position int64) *Future {
	return a.exec.Submit(ctx, func() (int64, error) { return a.ch.ReadAt(dst, position) })
}

func (a *AsyncChannel) ReadVector(ctx context.Context, dsts [][]byte, offset, length int) *Future {
	return a.exec.Submit(ctx, func() (int64, error) { return a.ch.ReadVector(dsts, offset, length) })
}

func (a *AsyncChannel) Write(ctx context.Context, src []byte) *Future {
	return a.exec.Submit(ctx, func() (int64, error) { return a.ch.Write(src) })
}

func (a *AsyncChannel) WriteAt(ctx context.Context, src []byte, position int64) *Future {
	return a.exec.Submit(ctx, func() (int64, error) { return a.ch.WriteAt(src, position) })
}

func (a *AsyncChannel) WriteVector(ctx context.Context, srcs [][]byte, offset, length int) *Future {
	return a.exec.Submit(ctx, func() (int64, error) { return a.ch.WriteVector(srcs, offset, length) })
}

func (a *AsyncChannel) TransferTo(ctx context.Context, position, count int64, sink io.Writer) *Future {
	return a.exec.Submit(ctx, func() (int64, error) { return a.ch.TransferTo(position, count, sink) })
}

func (a *AsyncChannel) TransferFrom(ctx context.Context, source io.Reader, position, count int64) *Future {
	return a.exec.Submit(ctx, func() (int64, error) { return a.ch.TransferFrom(source, position, count) })
}

func (a *AsyncChannel) Truncate(ctx context.Context, n int64) *Future {
	return a.exec.Submit(ctx, func() (int64, error) { return 0, a.ch.Truncate(n) })
}
