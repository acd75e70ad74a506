package vfscore_test

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vfscore/engine/pkg/bytestore"
	"github.com/vfscore/engine/pkg/vfscore"
	"github.com/vfscore/engine/pkg/vfserr"
)

func newTestFile() *vfscore.RegularFile {
	store := bytestore.New(64, 4)
	return vfscore.NewRegularFile(store, vfscore.NewBasicAttrs())
}

func openChannel(t *testing.T, file *vfscore.RegularFile, mode vfscore.Mode) *vfscore.Channel {
	t.Helper()
	c, err := vfscore.NewChannel(file, mode, vfscore.NewRegistry(0), nil)
	require.NoError(t, err)
	return c
}

// Writing then reading back from an empty file round-trips.
func TestChannelWriteThenReadRoundTrip(t *testing.T) {
	file := newTestFile()
	c := openChannel(t, file, vfscore.ModeRead|vfscore.ModeWrite)

	n, err := c.Write([]byte{0x41, 0x42, 0x43})
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	pos, err := c.Position()
	require.NoError(t, err)
	require.EqualValues(t, 3, pos)

	size, err := c.Size()
	require.NoError(t, err)
	require.EqualValues(t, 3, size)

	require.NoError(t, c.SetPosition(0))

	dst := make([]byte, 3)
	n, err = c.Read(dst)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	require.Equal(t, []byte{0x41, 0x42, 0x43}, dst)

	pos, err = c.Position()
	require.NoError(t, err)
	require.EqualValues(t, 3, pos)

	n, err = c.Read(dst)
	require.NoError(t, err)
	require.EqualValues(t, -1, n)

	pos, err = c.Position()
	require.NoError(t, err)
	require.EqualValues(t, 3, pos)
}

// Concurrent append-mode writers never interleave: each write's
// offset is computed under the write lock, so both payloads land
// back to back with no gap or overlap.
func TestChannelAppendAtomicity(t *testing.T) {
	file := newTestFile()
	c := openChannel(t, file, vfscore.ModeWrite|vfscore.ModeAppend)

	payload := []byte{0x01, 0x02}

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			n, err := c.Write(payload)
			require.NoError(t, err)
			require.EqualValues(t, 2, n)
		}()
	}
	wg.Wait()

	size, err := c.Size()
	require.NoError(t, err)
	require.EqualValues(t, 4, size)

	dst := make([]byte, 4)
	rc, err := openChannel(t, file, vfscore.ModeRead).Read(dst)
	require.NoError(t, err)
	require.EqualValues(t, 4, rc)
	require.Equal(t, append(append([]byte{}, payload...), payload...), dst)
}

// Truncating below the current position clamps it down.
func TestChannelTruncateBelowPosition(t *testing.T) {
	file := newTestFile()
	c := openChannel(t, file, vfscore.ModeRead|vfscore.ModeWrite)

	_, err := c.Write(make([]byte, 10))
	require.NoError(t, err)

	pos, err := c.Position()
	require.NoError(t, err)
	require.EqualValues(t, 10, pos)

	require.NoError(t, c.Truncate(4))

	size, err := c.Size()
	require.NoError(t, err)
	require.EqualValues(t, 4, size)

	pos, err = c.Position()
	require.NoError(t, err)
	require.EqualValues(t, 4, pos)

	n, err := c.Read(make([]byte, 1))
	require.NoError(t, err)
	require.EqualValues(t, -1, n)
}

// Writing past the current end of file zero-fills the gap.
func TestChannelSparseWrite(t *testing.T) {
	file := newTestFile()
	c := openChannel(t, file, vfscore.ModeRead|vfscore.ModeWrite)

	n, err := c.WriteAt([]byte{0xFF}, 5)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	size, err := c.Size()
	require.NoError(t, err)
	require.EqualValues(t, 6, size)

	dst := make([]byte, 6)
	n, err = c.ReadAt(dst, 0)
	require.NoError(t, err)
	require.EqualValues(t, 6, n)
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0xFF}, dst)
}

// Closing a channel while a read is blocked on it releases the read
// with AsynchronousClose, and a subsequent Position() call fails
// ClosedChannel.
func TestChannelCloseUnblocksReader(t *testing.T) {
	file := newTestFile()
	writer := openChannel(t, file, vfscore.ModeWrite)
	reader := openChannel(t, file, vfscore.ModeRead)

	writeLockHeld := make(chan struct{})
	releaseWriteLock := make(chan struct{})
	writeDone := make(chan struct{})

	go func() {
		defer close(writeDone)
		_, err := writer.TransferFrom(&blockingReader{
			started: writeLockHeld,
			release: releaseWriteLock,
		}, 0, 1)
		require.NoError(t, err)
	}()

	<-writeLockHeld

	readDone := make(chan error, 1)
	go func() {
		_, err := reader.Read(make([]byte, 1))
		readDone <- err
	}()

	// Give the reader goroutine a chance to actually block on the file lock.
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, reader.Close())

	select {
	case err := <-readDone:
		require.ErrorIs(t, err, vfserr.ErrAsynchronousClose)
	case <-time.After(2 * time.Second):
		t.Fatal("reader was not unblocked by close")
	}

	_, err := reader.Position()
	require.ErrorIs(t, err, vfserr.ErrClosedChannel)

	close(releaseWriteLock)
	<-writeDone
}

// blockingReader is an io.Reader that signals when it starts and waits
// for a release before completing, used to hold the write lock open
// while another goroutine blocks trying to acquire the read lock.
type blockingReader struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *blockingReader) Read(p []byte) (int, error) {
	r.once.Do(func() { close(r.started) })
	<-r.release
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = 0x01
	return 1, nil
}

// A gather write with bad indices fails IllegalArgument without ever
// touching the file lock.
func TestChannelWriteVectorBadIndicesNeverLocks(t *testing.T) {
	file := newTestFile()
	c := openChannel(t, file, vfscore.ModeWrite)

	_, err := c.WriteVector([][]byte{[]byte("a"), []byte("b")}, -1, 2)
	require.Error(t, err)
	var verr *vfserr.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, vfserr.IllegalArgument, verr.Code)

	// The file's write lock must still be free: a concurrent write on
	// another channel must succeed immediately.
	other := openChannel(t, file, vfscore.ModeWrite)
	done := make(chan error, 1)
	go func() {
		_, werr := other.Write([]byte("x"))
		done <- werr
	}()
	select {
	case werr := <-done:
		require.NoError(t, werr)
	case <-time.After(time.Second):
		t.Fatal("write lock appears to be held after a rejected WriteVector call")
	}
}

// A write-only channel's read fails NonReadableChannel without
// touching the file lock.
func TestChannelReadOnNonReadableFailsWithoutLocking(t *testing.T) {
	file := newTestFile()
	writeOnly := openChannel(t, file, vfscore.ModeWrite)

	_, err := writeOnly.Read(make([]byte, 1))
	require.ErrorIs(t, err, vfserr.ErrNonReadable)

	reader := openChannel(t, file, vfscore.ModeRead)
	done := make(chan error, 1)
	go func() {
		_, rerr := reader.Read(make([]byte, 1))
		done <- rerr
	}()
	select {
	case rerr := <-done:
		require.NoError(t, rerr)
	case <-time.After(time.Second):
		t.Fatal("file lock appears to be held after a rejected non-readable Read call")
	}
}

// Property 9: idempotent close.
func TestChannelCloseIsIdempotent(t *testing.T) {
	file := newTestFile()
	c := openChannel(t, file, vfscore.ModeRead)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.False(t, c.IsOpen())
}

// Property 10: lock validity.
func TestChannelLockValidity(t *testing.T) {
	file := newTestFile()
	c := openChannel(t, file, vfscore.ModeRead|vfscore.ModeWrite)

	l, err := c.Lock(0, 10, false)
	require.NoError(t, err)
	require.True(t, l.IsValid())

	require.NoError(t, l.Release())
	require.False(t, l.IsValid())

	// A second release is tolerated.
	require.NoError(t, l.Release())
	require.False(t, l.IsValid())
}

// Closing a channel invalidates any locks it still holds.
func TestChannelCloseInvalidatesLocks(t *testing.T) {
	file := newTestFile()
	c := openChannel(t, file, vfscore.ModeRead|vfscore.ModeWrite)

	l, err := c.Lock(0, 10, true)
	require.NoError(t, err)
	require.True(t, l.IsValid())

	require.NoError(t, c.Close())
	require.False(t, l.IsValid())
}

// Explicit-position write semantics: append unset leaves the channel
// position unchanged; append set updates it.
func TestChannelWriteAtPositionSemantics(t *testing.T) {
	file := newTestFile()
	c := openChannel(t, file, vfscore.ModeRead|vfscore.ModeWrite)
	require.NoError(t, c.SetPosition(2))

	n, err := c.WriteAt([]byte{1, 2, 3}, 10)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	pos, err := c.Position()
	require.NoError(t, err)
	require.EqualValues(t, 2, pos, "non-append WriteAt must not move the channel position")

	appendCh := openChannel(t, file, vfscore.ModeWrite|vfscore.ModeAppend)
	n, err = appendCh.WriteAt([]byte{9, 9}, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	pos, err = appendCh.Position()
	require.NoError(t, err)
	sizeAfter, _ := appendCh.Size()
	require.EqualValues(t, sizeAfter, pos, "append WriteAt must move the channel position to size_after_write")
}

func TestChannelReadVectorAndWriteVectorRoundTrip(t *testing.T) {
	file := newTestFile()
	c := openChannel(t, file, vfscore.ModeRead|vfscore.ModeWrite)

	srcs := [][]byte{[]byte("hello"), []byte("world"), []byte("ignored")}
	n, err := c.WriteVector(srcs, 0, 2)
	require.NoError(t, err)
	require.EqualValues(t, 10, n)

	require.NoError(t, c.SetPosition(0))
	dsts := [][]byte{make([]byte, 5), make([]byte, 5)}
	n, err = c.ReadVector(dsts, 0, 2)
	require.NoError(t, err)
	require.EqualValues(t, 10, n)
	require.True(t, bytes.Equal(dsts[0], []byte("hello")))
	require.True(t, bytes.Equal(dsts[1], []byte("world")))
}

func TestChannelTransferToUnchangedPosition(t *testing.T) {
	file := newTestFile()
	c := openChannel(t, file, vfscore.ModeRead|vfscore.ModeWrite)
	_, err := c.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.NoError(t, c.SetPosition(1))

	var buf bytes.Buffer
	n, err := c.TransferTo(0, 6, &buf)
	require.NoError(t, err)
	require.EqualValues(t, 6, n)
	require.Equal(t, "abcdef", buf.String())

	pos, err := c.Position()
	require.NoError(t, err)
	require.EqualValues(t, 1, pos)
}

func TestChannelMapUnsupported(t *testing.T) {
	file := newTestFile()
	c := openChannel(t, file, vfscore.ModeRead)
	_, err := c.Map(0, 10, true)
	require.ErrorIs(t, err, vfserr.ErrUnsupported)
}

func TestChannelForceIsNoOp(t *testing.T) {
	file := newTestFile()
	c := openChannel(t, file, vfscore.ModeRead)
	require.NoError(t, c.Force(true))
	require.NoError(t, c.Close())
	require.ErrorIs(t, c.Force(true), vfserr.ErrClosedChannel)
}
