package vfscore

import "sync"

// RegionLock is an advisory byte-range lock on a RegularFile, held by one
// Channel. It carries no enforcement: nothing in this package refuses a
// second, overlapping lock request. It exists so callers that coordinate
// cooperatively (as advisory locks are meant to) have a handle to check
// validity against and release.
type RegionLock struct {
	channel  *Channel
	Position int64
	Size     int64
	Shared   bool

	mu    sync.Mutex
	valid bool
}

func newRegionLock(c *Channel, position, size int64, shared bool) *RegionLock {
	return &RegionLock{
		channel:  c,
		Position: position,
		Size:     size,
		Shared:   shared,
		valid:    true,
	}
}

// IsValid reports whether the lock has not yet been released, either
// explicitly or as a side effect of its owning channel closing.
func (l *RegionLock) IsValid() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.valid
}

// Release invalidates the lock. It is idempotent: releasing an
// already-released lock is not an error.
func (l *RegionLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.valid = false
	return nil
}

// Overlaps reports whether l and other cover any common byte range. A
// zero Size is treated as "to end of file" and so overlaps anything at
// or past its Position.
func (l *RegionLock) Overlaps(other *RegionLock) bool {
	lEnd := int64(-1)
	if l.Size > 0 {
		lEnd = l.Position + l.Size
	}
	oEnd := int64(-1)
	if other.Size > 0 {
		oEnd = other.Position + other.Size
	}

	if lEnd != -1 && other.Position >= lEnd {
		return false
	}
	if oEnd != -1 && l.Position >= oEnd {
		return false
	}
	return true
}
