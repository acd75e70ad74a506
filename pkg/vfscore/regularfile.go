// Package vfscore implements the Regular File and Channel layers of the
// core: a Byte Store bound to metadata and a reader/writer lock, and the
// interruptible, position-keeping I/O handle opened on it. The directory
// tree, path resolution and attribute-view providers that create and
// populate RegularFile values live outside this module's scope; this
// package only consumes a minimal Attrs interface.
package vfscore

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vfscore/engine/pkg/bytestore"
)

// Attrs is the minimal metadata contract the core requires from an
// external attribute record. Everything else about a file's attributes
// (ownership, POSIX/unix permission views, extended attributes) belongs
// to an external attribute-view subsystem; the core only ever reads or
// writes timestamps through this interface.
type Attrs interface {
	AccessTime() time.Time
	SetAccessTime(t time.Time)
	ModTime() time.Time
	SetModTime(t time.Time)
}

// BasicAttrs is a minimal Attrs implementation sufficient for tests and
// for embedding by a fuller attribute-view record; it carries just the
// timestamp fields the core actually consumes.
type BasicAttrs struct {
	mu    sync.RWMutex
	atime time.Time
	mtime time.Time
}

// NewBasicAttrs returns a BasicAttrs with both timestamps set to now.
func NewBasicAttrs() *BasicAttrs {
	now := time.Now()
	return &BasicAttrs{atime: now, mtime: now}
}

func (a *BasicAttrs) AccessTime() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.atime
}

func (a *BasicAttrs) SetAccessTime(t time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.atime = t
}

func (a *BasicAttrs) ModTime() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mtime
}

func (a *BasicAttrs) SetModTime(t time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mtime = t
}

// RegularFile binds a Byte Store to an attribute record and the
// reader/writer lock that guards both. It tracks link count and open
// count itself rather than relying on garbage-collection semantics: the
// file counts as freed, and its OnFreed hook runs, only once both
// counters reach zero. The file keeps its reference to the store; it does
// not release the store's pages itself.
type RegularFile struct {
	ID    uuid.UUID
	store *bytestore.Store
	attrs Attrs

	lock *interruptibleRWMutex

	linkCount atomic.Int64
	openCount atomic.Int64

	onFreed func(*RegularFile) // optional hook invoked when the file is fully freed
	freed   atomic.Bool
}

// NewRegularFile creates a RegularFile with link count 0, wrapping store
// and attrs. A freshly created file is not yet linked into any
// directory.
func NewRegularFile(store *bytestore.Store, attrs Attrs) *RegularFile {
	return &RegularFile{
		ID:    uuid.New(),
		store: store,
		attrs: attrs,
		lock:  newInterruptibleRWMutex(),
	}
}

// OnFreed registers a callback invoked exactly once, when both the link
// count and open count reach zero. Used by the (out-of-scope) directory
// tree to reclaim any indices it keeps by file ID.
func (f *RegularFile) OnFreed(fn func(*RegularFile)) { f.onFreed = fn }

func (f *RegularFile) maybeFree() {
	if f.linkCount.Load() == 0 && f.openCount.Load() == 0 && f.onFreed != nil && f.freed.CompareAndSwap(false, true) {
		f.onFreed(f)
	}
}

// IncrementLinkCount is called by the directory tree on each hard link.
func (f *RegularFile) IncrementLinkCount() { f.linkCount.Add(1) }

// DecrementLinkCount is called by the directory tree on each unlink. A
// file with link count 0 but open channels persists (deferred deletion).
func (f *RegularFile) DecrementLinkCount() {
	f.linkCount.Add(-1)
	f.maybeFree()
}

// Links reports the current link count.
func (f *RegularFile) Links() int64 { return f.linkCount.Load() }

// Closed is invoked by a Channel when it releases its reference to this
// file (on Close). It decrements the open-reference count and, when both
// counters are zero, runs the OnFreed hook; the store itself is not
// released here.
func (f *RegularFile) Closed() {
	f.openCount.Add(-1)
	f.maybeFree()
}

// opened is invoked when a Channel is constructed against this file.
func (f *RegularFile) opened() { f.openCount.Add(1) }

func (f *RegularFile) updateAccessTime() { f.attrs.SetAccessTime(time.Now()) }
func (f *RegularFile) updateModTime()    { f.attrs.SetModTime(time.Now()) }

// Size returns the current logical size without acquiring any lock,
// mirroring bytestore.Store.Size's lock-free contract.
func (f *RegularFile) Size() int64 { return f.store.SizeWithoutLocking() }
