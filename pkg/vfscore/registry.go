package vfscore

import (
	"sync"

	"github.com/google/uuid"

	"github.com/vfscore/engine/internal/telemetry/logger"
	"github.com/vfscore/engine/pkg/vfserr"
)

// Registry tracks every currently open Channel in a filesystem instance:
// a concurrency-safe handle table keyed by ID. It never evicts on
// capacity pressure; it exists solely so a filesystem-wide shutdown can
// close every outstanding handle at once, and optionally to cap how many
// channels may be open simultaneously.
type Registry struct {
	mu       sync.Mutex
	channels map[uuid.UUID]*Channel
	maxOpen  int
}

// NewRegistry returns an empty Registry. maxOpen caps the number of
// channels register will accept; a value of 0 or less leaves the
// registry unbounded.
func NewRegistry(maxOpen int) *Registry {
	return &Registry{channels: make(map[uuid.UUID]*Channel), maxOpen: maxOpen}
}

// register adds c to the table, failing with TooManyOpenChannels once
// maxOpen registered channels are already outstanding.
func (r *Registry) register(c *Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maxOpen > 0 && len(r.channels) >= r.maxOpen {
		return vfserr.ErrTooManyOpenChannels
	}
	r.channels[c.ID] = c
	return nil
}

func (r *Registry) unregister(c *Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, c.ID)
}

// Len reports the number of currently registered (open) channels.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

// CloseAll closes every currently registered channel. Channels opened
// concurrently with a CloseAll call are not guaranteed to be included.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	snapshot := make([]*Channel, 0, len(r.channels))
	for _, c := range r.channels {
		snapshot = append(snapshot, c)
	}
	r.mu.Unlock()

	if len(snapshot) > 0 {
		logger.Warn("vfscore: registry forcing close of %d outstanding channel(s)", len(snapshot))
	}
	for _, c := range snapshot {
		_ = c.Close()
	}
}
