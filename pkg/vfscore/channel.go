package vfscore

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vfscore/engine/internal/telemetry/logger"
	"github.com/vfscore/engine/pkg/vfserr"
	"github.com/vfscore/engine/pkg/vfsmetrics"
)

// Mode is the set of open-mode flags a Channel is created with.
type Mode uint8

const (
	ModeRead Mode = 1 << iota
	ModeWrite
	ModeAppend
)

func (m Mode) has(x Mode) bool { return m&x != 0 }

// Channel is an open handle bound to exactly one RegularFile. It owns an
// independently mutable position and mode flags, self-serializes its own
// read/write/transfer/truncate/position operations, and participates in
// the interruptible-blocking protocol described below.
type Channel struct {
	ID   uuid.UUID
	file *RegularFile
	mode Mode

	position atomic.Int64

	// opMu self-serializes every read/write/transfer/truncate/position
	// operation on this Channel: the correctness requirement that
	// while one goroutine is inside such an operation, another calling
	// the same class of operation on the same Channel must wait.
	opMu sync.Mutex

	// stateMu guards open and blockingSignal together so Close/Interrupt
	// and the interruptible-blocking protocol never observe a torn state.
	stateMu        sync.Mutex
	open           bool
	blockingSignal chan struct{}

	locksMu sync.Mutex
	locks   []*RegionLock

	registry *Registry
	metrics  vfsmetrics.ChannelMetrics
}

// NewChannel opens a Channel on file with the given mode, registering it
// with registry (nil is permitted for tests that don't need bulk close).
func NewChannel(file *RegularFile, mode Mode, registry *Registry, metrics vfsmetrics.ChannelMetrics) (*Channel, error) {
	if !mode.has(ModeRead) && !mode.has(ModeWrite) {
		return nil, vfserr.New(vfserr.IllegalArgument, "channel must be opened for read and/or write")
	}
	if metrics == nil {
		metrics = vfsmetrics.NoOp{}
	}

	c := &Channel{
		ID:       uuid.New(),
		file:     file,
		mode:     mode,
		open:     true,
		registry: registry,
		metrics:  metrics,
	}

	if registry != nil {
		if err := registry.register(c); err != nil {
			return nil, err
		}
	}
	file.opened()
	metrics.ChannelOpened()
	logger.Debug("vfscore: channel %s opened on file %s (mode=%d)", c.ID, file.ID, mode)

	return c, nil
}

// IsOpen reports whether the channel has not yet been closed.
func (c *Channel) IsOpen() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.open
}

// Close is idempotent: a second call is a no-op. Close unregisters the
// channel from its registry, releases every advisory lock it holds, and
// invokes RegularFile.Closed to release this channel's open-reference.
func (c *Channel) Close() error {
	c.doClose()
	return nil
}

// Interrupt simulates a caller-driven "this goroutine was interrupted"
// signal distinct from Close: it unblocks any in-flight blocking
// operation on this channel without itself closing the channel. If the
// interrupted operation was genuinely blocked (not merely racing a
// completed op), the interruptible-blocking protocol closes the channel
// as a side effect and reports ClosedByInterrupt, matching the
// distinction between AsynchronousClose (closed by another goroutine) and
// ClosedByInterrupt (this goroutine's own interruption caused the close).
func (c *Channel) Interrupt() {
	c.stateMu.Lock()
	sig := c.blockingSignal
	c.stateMu.Unlock()
	if sig != nil {
		closeSignalOnce(sig)
	}
}

func closeSignalOnce(sig chan struct{}) {
	select {
	case <-sig:
	default:
		close(sig)
	}
}

func (c *Channel) doClose() {
	c.stateMu.Lock()
	if !c.open {
		c.stateMu.Unlock()
		return
	}
	c.open = false
	sig := c.blockingSignal
	c.stateMu.Unlock()

	if sig != nil {
		closeSignalOnce(sig)
	}

	c.locksMu.Lock()
	for _, l := range c.locks {
		_ = l.Release()
	}
	c.locks = nil
	c.locksMu.Unlock()

	if c.registry != nil {
		c.registry.unregister(c)
	}
	c.file.Closed()
	c.metrics.ChannelClosed()
	logger.Debug("vfscore: channel %s closed", c.ID)
}

// runInterruptible implements the entry/exit dance of the interrupt protocol:
// record a fresh interrupt channel, re-check open, run body, then decide
// on exit whether the operation was cancelled and by what.
func (c *Channel) runInterruptible(body func(interrupt <-chan struct{}) (int64, error)) (int64, error) {
	sig := make(chan struct{})

	c.stateMu.Lock()
	if !c.open {
		c.stateMu.Unlock()
		return 0, vfserr.ErrAsynchronousClose
	}
	c.blockingSignal = sig
	c.stateMu.Unlock()

	n, err := body(sig)

	c.stateMu.Lock()
	if c.blockingSignal == sig {
		c.blockingSignal = nil
	}
	stillOpen := c.open
	c.stateMu.Unlock()

	select {
	case <-sig:
		if stillOpen {
			c.doClose()
			return 0, vfserr.ErrClosedByInterrupt
		}
		return 0, vfserr.ErrAsynchronousClose
	default:
		return n, err
	}
}

// ---- read-class operations ----

// Read reads into dst at the channel's current position, advancing it by
// the number of bytes read (unaffected on EOF, which reports -1).
func (c *Channel) Read(dst []byte) (int64, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.IsOpen() {
		return 0, vfserr.ErrClosedChannel
	}
	if !c.mode.has(ModeRead) {
		return 0, vfserr.ErrNonReadable
	}
	if dst == nil {
		return 0, vfserr.New(vfserr.IllegalArgument, "nil destination buffer")
	}

	n, err := c.runInterruptible(func(sig <-chan struct{}) (int64, error) {
		waitStart := time.Now()
		if lerr := c.file.lock.RLockInterruptibly(sig); lerr != nil {
			return 0, lerr
		}
		c.metrics.LockWait(true, time.Since(waitStart))
		defer c.file.lock.RUnlock()

		pos := c.position.Load()
		result, rerr := c.file.store.ReadAt(pos, dst)
		if rerr == nil && result >= 0 {
			c.file.updateAccessTime()
		}
		return result, rerr
	})

	if err == nil && n >= 0 {
		c.position.Add(n)
		c.metrics.BytesRead("read", n)
	}
	return n, err
}

// ReadAt reads into dst starting at the given absolute position. By
// design this does NOT advance the channel's position, even on success.
func (c *Channel) ReadAt(dst []byte, position int64) (int64, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.IsOpen() {
		return 0, vfserr.ErrClosedChannel
	}
	if !c.mode.has(ModeRead) {
		return 0, vfserr.ErrNonReadable
	}
	if position < 0 {
		return 0, vfserr.New(vfserr.IllegalArgument, "negative read position")
	}
	if dst == nil {
		return 0, vfserr.New(vfserr.IllegalArgument, "nil destination buffer")
	}

	n, err := c.runInterruptible(func(sig <-chan struct{}) (int64, error) {
		waitStart := time.Now()
		if lerr := c.file.lock.RLockInterruptibly(sig); lerr != nil {
			return 0, lerr
		}
		c.metrics.LockWait(true, time.Since(waitStart))
		defer c.file.lock.RUnlock()

		result, rerr := c.file.store.ReadAt(position, dst)
		if rerr == nil && result >= 0 {
			c.file.updateAccessTime()
		}
		return result, rerr
	})

	if err == nil && n >= 0 {
		c.metrics.BytesRead("readAt", n)
	}
	return n, err
}

// ReadVector performs a scatter read into dsts[offset:offset+length], the
// same bounds a java.nio ScatteringByteChannel validates. The bounds check
// happens before any lock is touched.
func (c *Channel) ReadVector(dsts [][]byte, offset, length int) (int64, error) {
	if offset < 0 || length < 0 || offset+length > len(dsts) {
		return 0, vfserr.New(vfserr.IllegalArgument, "scatter read index out of range")
	}
	bufs := dsts[offset : offset+length]

	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.IsOpen() {
		return 0, vfserr.ErrClosedChannel
	}
	if !c.mode.has(ModeRead) {
		return 0, vfserr.ErrNonReadable
	}

	n, err := c.runInterruptible(func(sig <-chan struct{}) (int64, error) {
		waitStart := time.Now()
		if lerr := c.file.lock.RLockInterruptibly(sig); lerr != nil {
			return 0, lerr
		}
		c.metrics.LockWait(true, time.Since(waitStart))
		defer c.file.lock.RUnlock()

		pos := c.position.Load()
		result, rerr := c.file.store.ReadAtVectored(pos, bufs)
		if rerr == nil && result >= 0 {
			c.file.updateAccessTime()
		}
		return result, rerr
	})

	if err == nil && n >= 0 {
		c.position.Add(n)
		c.metrics.BytesRead("readv", n)
	}
	return n, err
}

// TransferTo copies up to count bytes starting at position to sink,
// leaving the channel's position unchanged.
func (c *Channel) TransferTo(position, count int64, sink io.Writer) (int64, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.IsOpen() {
		return 0, vfserr.ErrClosedChannel
	}
	if !c.mode.has(ModeRead) {
		return 0, vfserr.ErrNonReadable
	}
	if position < 0 || count < 0 {
		return 0, vfserr.New(vfserr.IllegalArgument, "negative position or count")
	}

	n, err := c.runInterruptible(func(sig <-chan struct{}) (int64, error) {
		waitStart := time.Now()
		if lerr := c.file.lock.RLockInterruptibly(sig); lerr != nil {
			return 0, lerr
		}
		c.metrics.LockWait(true, time.Since(waitStart))
		defer c.file.lock.RUnlock()

		result, terr := c.file.store.TransferTo(position, count, sink)
		if terr == nil {
			c.file.updateAccessTime()
		}
		return result, terr
	})

	if err == nil {
		c.metrics.BytesRead("transferTo", n)
	}
	return n, err
}

// ---- write-class operations ----

// Write writes src at the channel's current position (or, in append
// mode, at the file's current size, read under the write lock), then
// advances the channel's position to effectiveOffset + bytesWritten.
func (c *Channel) Write(src []byte) (int64, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.IsOpen() {
		return 0, vfserr.ErrClosedChannel
	}
	if !c.mode.has(ModeWrite) {
		return 0, vfserr.ErrNonWritable
	}
	if src == nil {
		return 0, vfserr.New(vfserr.IllegalArgument, "nil source buffer")
	}

	var effectiveOffset int64
	n, err := c.runInterruptible(func(sig <-chan struct{}) (int64, error) {
		waitStart := time.Now()
		if lerr := c.file.lock.LockInterruptibly(sig); lerr != nil {
			return 0, lerr
		}
		c.metrics.LockWait(false, time.Since(waitStart))
		defer c.file.lock.Unlock()

		offset := c.position.Load()
		if c.mode.has(ModeAppend) {
			offset = c.file.store.SizeWithoutLocking()
		}
		effectiveOffset = offset

		written, werr := c.file.store.WriteAt(offset, src)
		if werr == nil {
			c.file.updateModTime()
		}
		return written, werr
	})

	if err == nil {
		c.position.Store(effectiveOffset + n)
		c.metrics.BytesWritten("write", n)
	}
	return n, err
}

// WriteAt writes src at the given absolute position. Append mode
// overrides the caller-supplied position with the file's current size
// and, unlike the non-append case, also updates the channel's position
// to reflect where the append landed.
func (c *Channel) WriteAt(src []byte, position int64) (int64, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.IsOpen() {
		return 0, vfserr.ErrClosedChannel
	}
	if !c.mode.has(ModeWrite) {
		return 0, vfserr.ErrNonWritable
	}
	if position < 0 {
		return 0, vfserr.New(vfserr.IllegalArgument, "negative write position")
	}
	if src == nil {
		return 0, vfserr.New(vfserr.IllegalArgument, "nil source buffer")
	}

	var effectiveOffset int64
	n, err := c.runInterruptible(func(sig <-chan struct{}) (int64, error) {
		waitStart := time.Now()
		if lerr := c.file.lock.LockInterruptibly(sig); lerr != nil {
			return 0, lerr
		}
		c.metrics.LockWait(false, time.Since(waitStart))
		defer c.file.lock.Unlock()

		offset := position
		if c.mode.has(ModeAppend) {
			// Read size under the write lock we already hold, not via a
			// no-lock convenience accessor called before acquiring it
			// avoids a race where the size read would otherwise be stale.
			offset = c.file.store.SizeWithoutLocking()
		}
		effectiveOffset = offset

		written, werr := c.file.store.WriteAt(offset, src)
		if werr == nil {
			c.file.updateModTime()
		}
		return written, werr
	})

	if err == nil {
		if c.mode.has(ModeAppend) {
			c.position.Store(effectiveOffset + n)
		}
		c.metrics.BytesWritten("writeAt", n)
	}
	return n, err
}

// WriteVector performs a gather write from srcs[offset:offset+length],
// honoring append mode the same way Write does.
func (c *Channel) WriteVector(srcs [][]byte, offset, length int) (int64, error) {
	if offset < 0 || length < 0 || offset+length > len(srcs) {
		return 0, vfserr.New(vfserr.IllegalArgument, "gather write index out of range")
	}
	bufs := srcs[offset : offset+length]

	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.IsOpen() {
		return 0, vfserr.ErrClosedChannel
	}
	if !c.mode.has(ModeWrite) {
		return 0, vfserr.ErrNonWritable
	}

	var effectiveOffset int64
	n, err := c.runInterruptible(func(sig <-chan struct{}) (int64, error) {
		waitStart := time.Now()
		if lerr := c.file.lock.LockInterruptibly(sig); lerr != nil {
			return 0, lerr
		}
		c.metrics.LockWait(false, time.Since(waitStart))
		defer c.file.lock.Unlock()

		offset := c.position.Load()
		if c.mode.has(ModeAppend) {
			offset = c.file.store.SizeWithoutLocking()
		}
		effectiveOffset = offset

		written, werr := c.file.store.WriteAtVectored(offset, bufs)
		if werr == nil {
			c.file.updateModTime()
		}
		return written, werr
	})

	if err == nil {
		c.position.Store(effectiveOffset + n)
		c.metrics.BytesWritten("writev", n)
	}
	return n, err
}

// TransferFrom copies up to count bytes from source to position (or, in
// append mode, to the file's current size).
func (c *Channel) TransferFrom(source io.Reader, position, count int64) (int64, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.IsOpen() {
		return 0, vfserr.ErrClosedChannel
	}
	if !c.mode.has(ModeWrite) {
		return 0, vfserr.ErrNonWritable
	}
	if position < 0 || count < 0 {
		return 0, vfserr.New(vfserr.IllegalArgument, "negative position or count")
	}

	var effectiveOffset int64
	n, err := c.runInterruptible(func(sig <-chan struct{}) (int64, error) {
		waitStart := time.Now()
		if lerr := c.file.lock.LockInterruptibly(sig); lerr != nil {
			return 0, lerr
		}
		c.metrics.LockWait(false, time.Since(waitStart))
		defer c.file.lock.Unlock()

		offset := position
		if c.mode.has(ModeAppend) {
			offset = c.file.store.SizeWithoutLocking()
		}
		effectiveOffset = offset

		result, terr := c.file.store.TransferFrom(source, offset, count)
		if terr == nil {
			c.file.updateModTime()
		}
		return result, terr
	})

	if err == nil {
		if c.mode.has(ModeAppend) {
			c.position.Store(effectiveOffset + n)
		}
		c.metrics.BytesWritten("transferFrom", n)
	}
	return n, err
}

// Truncate requires write mode; the channel's position becomes
// min(position, n).
func (c *Channel) Truncate(n int64) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.IsOpen() {
		return vfserr.ErrClosedChannel
	}
	if !c.mode.has(ModeWrite) {
		return vfserr.ErrNonWritable
	}
	if n < 0 {
		return vfserr.New(vfserr.IllegalArgument, "negative truncate size")
	}

	_, err := c.runInterruptible(func(sig <-chan struct{}) (int64, error) {
		waitStart := time.Now()
		if lerr := c.file.lock.LockInterruptibly(sig); lerr != nil {
			return 0, lerr
		}
		c.metrics.LockWait(false, time.Since(waitStart))
		defer c.file.lock.Unlock()

		terr := c.file.store.Truncate(n)
		if terr == nil {
			c.file.updateModTime()
			c.metrics.PagePoolSize(c.file.store.PoolSize())
		}
		return 0, terr
	})

	if err == nil {
		for {
			old := c.position.Load()
			newPos := old
			if n < old {
				newPos = n
			}
			if newPos == old || c.position.CompareAndSwap(old, newPos) {
				break
			}
		}
	}
	return err
}

// ---- position / size / no-op / unsupported ----

// Position returns the channel's current position.
func (c *Channel) Position() (int64, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if !c.IsOpen() {
		return 0, vfserr.ErrClosedChannel
	}
	return c.position.Load(), nil
}

// SetPosition sets the channel's position, serialized against every
// other position/read/write/transfer/truncate call on this channel.
func (c *Channel) SetPosition(n int64) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if !c.IsOpen() {
		return vfserr.ErrClosedChannel
	}
	if n < 0 {
		return vfserr.New(vfserr.IllegalArgument, "negative position")
	}
	c.position.Store(n)
	return nil
}

// Size returns the file's current logical size. It requires no lock and
// no mode, mirroring bytestore.Store.Size's lock-free contract.
func (c *Channel) Size() (int64, error) {
	if !c.IsOpen() {
		return 0, vfserr.ErrClosedChannel
	}
	return c.file.store.SizeWithoutLocking(), nil
}

// Force is a no-op: this core has no durable backing store to flush.
func (c *Channel) Force(metadataOnly bool) error {
	if !c.IsOpen() {
		return vfserr.ErrClosedChannel
	}
	return nil
}

// Map always fails: memory-mapped regions are an explicit Non-goal.
func (c *Channel) Map(offset, length int64, shared bool) (any, error) {
	return nil, vfserr.ErrUnsupported
}

// ---- advisory locks ----

// Lock requests an advisory byte-range lock. Shared locks require read
// mode, exclusive locks require write mode. There is no contention: the
// filesystem is in-process and the lock carries no enforcement.
func (c *Channel) Lock(position, size int64, shared bool) (*RegionLock, error) {
	if !c.IsOpen() {
		return nil, vfserr.ErrClosedChannel
	}
	if shared && !c.mode.has(ModeRead) {
		return nil, vfserr.ErrNonReadable
	}
	if !shared && !c.mode.has(ModeWrite) {
		return nil, vfserr.ErrNonWritable
	}
	if position < 0 || size < 0 {
		return nil, vfserr.New(vfserr.IllegalArgument, "negative lock region")
	}

	l := newRegionLock(c, position, size, shared)
	c.locksMu.Lock()
	c.locks = append(c.locks, l)
	c.locksMu.Unlock()
	return l, nil
}

// TryLock behaves identically to Lock: there is no
// contention to fail on in an in-process, unenforced advisory lock.
func (c *Channel) TryLock(position, size int64, shared bool) (*RegionLock, error) {
	return c.Lock(position, size, shared)
}
