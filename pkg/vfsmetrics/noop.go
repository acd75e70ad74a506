package vfsmetrics

import "time"

// NoOp is the default ChannelMetrics implementation: every method is a
// no-op. Callers that don't wire in Prometheus get this automatically.
type NoOp struct{}

func (NoOp) ChannelOpened()                        {}
func (NoOp) ChannelClosed()                        {}
func (NoOp) BytesRead(op string, n int64)          {}
func (NoOp) BytesWritten(op string, n int64)       {}
func (NoOp) LockWait(shared bool, d time.Duration) {}
func (NoOp) PagePoolSize(n int)                    {}

var _ ChannelMetrics = NoOp{}
