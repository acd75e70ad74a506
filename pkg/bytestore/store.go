// Package bytestore implements a paged, growable byte-content engine: a
// flat logical byte array backed by fixed-size pages, addressable at
// arbitrary offsets, with sparse
// zero-fill and copy-on-link semantics. Store performs no locking of its
// own — callers (pkg/vfscore.RegularFile) hold the appropriate
// reader/writer lock before calling into it, with the single documented
// exception of Size, which is safe to call without any lock.
package bytestore

import (
	"io"
	"sync/atomic"

	"github.com/vfscore/engine/internal/telemetry/logger"
	"github.com/vfscore/engine/pkg/vfserr"
)

// DefaultPageSize is the page size used when a caller does not specify
// one. 8 KiB is a common page-cache granularity.
const DefaultPageSize = 8 * 1024

// Store is a growable sequence of fixed-size pages representing the
// content of one file identity. It is reference-counted at the
// RegularFile layer, not here: Store itself has no notion of how many
// links or open channels refer to it.
type Store struct {
	pageSize int
	pages    [][]byte // nil entries are sparse (unallocated) pages
	size     atomic.Int64
	pool     *pagePool
	zero     []byte // read-only, all-zero page-sized scratch buffer
}

// New creates an empty Store with the given page size and free-page-pool
// bound. A poolBound of 0 uses defaultPoolBound.
func New(pageSize, poolBound int) *Store {
	if pageSize <= 0 {
		logger.Error("bytestore: cannot allocate a store with page size %d, falling back to %d", pageSize, DefaultPageSize)
		pageSize = DefaultPageSize
	}
	return &Store{
		pageSize: pageSize,
		pool:     newPagePool(pageSize, poolBound),
		zero:     make([]byte, pageSize),
	}
}

// Size returns the current logical length. It is a single atomic load and
// is safe to call without any external lock.
func (s *Store) Size() int64 { return s.size.Load() }

// SizeWithoutLocking is identical to Size. It exists so callers that
// already hold the RegularFile write lock have an explicitly-named entry
// point documenting that no additional locking is being performed.
func (s *Store) SizeWithoutLocking() int64 { return s.size.Load() }

func (s *Store) addr(offset int64) (pageIndex int, pageOffset int) {
	return int(offset / int64(s.pageSize)), int(offset % int64(s.pageSize))
}

func (s *Store) pagesNeeded(size int64) int {
	if size <= 0 {
		return 0
	}
	return int((size-1)/int64(s.pageSize)) + 1
}

// ensurePage guarantees s.pages has an allocated (non-sparse) page at
// pageIndex, growing the page slice as needed.
func (s *Store) ensurePage(pageIndex int) {
	if pageIndex >= len(s.pages) {
		grown := make([][]byte, pageIndex+1)
		copy(grown, s.pages)
		s.pages = grown
	}
	if s.pages[pageIndex] == nil {
		s.pages[pageIndex] = s.pool.get()
	}
}

// growSizeAtLeast atomically raises size to at least newSize: a write
// never shrinks a store, only grows or leaves it unchanged.
func (s *Store) growSizeAtLeast(newSize int64) {
	for {
		old := s.size.Load()
		if newSize <= old {
			return
		}
		if s.size.CompareAndSwap(old, newSize) {
			return
		}
	}
}

// readInto copies len(buf) bytes starting at position into buf, treating
// sparse pages as zero. The caller must have already validated that
// [position, position+len(buf)) lies within [0, size).
func (s *Store) readInto(position int64, buf []byte) {
	read := 0
	n := len(buf)
	for read < n {
		pageIdx, pageOff := s.addr(position + int64(read))
		chunk := s.pageSize - pageOff
		if remaining := n - read; chunk > remaining {
			chunk = remaining
		}
		if pageIdx < len(s.pages) && s.pages[pageIdx] != nil {
			copy(buf[read:read+chunk], s.pages[pageIdx][pageOff:pageOff+chunk])
		} else {
			for i := 0; i < chunk; i++ {
				buf[read+i] = 0
			}
		}
		read += chunk
	}
}

// ReadAt reads bytes into dst starting at position. It returns the number
// of bytes read, or -1 if position >= size at entry. It never reads past
// size.
func (s *Store) ReadAt(position int64, dst []byte) (int64, error) {
	if position < 0 {
		return 0, vfserr.New(vfserr.IllegalArgument, "negative read position")
	}
	if dst == nil {
		return 0, vfserr.New(vfserr.IllegalArgument, "nil destination buffer")
	}

	size := s.size.Load()
	if position >= size {
		return -1, nil
	}

	avail := size - position
	toRead := int64(len(dst))
	if toRead > avail {
		toRead = avail
	}

	s.readInto(position, dst[:toRead])
	return toRead, nil
}

// ReadAtVectored performs a scatter read: it fills each buffer in dsts in
// order, up to its remaining capacity, stopping at size. It returns the
// total bytes read, or -1 if position >= size at entry.
func (s *Store) ReadAtVectored(position int64, dsts [][]byte) (int64, error) {
	if position < 0 {
		return 0, vfserr.New(vfserr.IllegalArgument, "negative read position")
	}

	size := s.size.Load()
	if position >= size {
		return -1, nil
	}

	var total int64
	pos := position
	for _, d := range dsts {
		if len(d) == 0 {
			continue
		}
		avail := size - pos
		if avail <= 0 {
			break
		}
		toRead := int64(len(d))
		if toRead > avail {
			toRead = avail
		}
		s.readInto(pos, d[:toRead])
		total += toRead
		pos += toRead
	}
	return total, nil
}

// WriteAt writes src to [position, position+len(src)). If position is
// past the current size, the gap is logically zero (sparse pages are
// simply never allocated there). On return, size = max(oldSize,
// position+written).
func (s *Store) WriteAt(position int64, src []byte) (int64, error) {
	if position < 0 {
		return 0, vfserr.New(vfserr.IllegalArgument, "negative write position")
	}
	if src == nil {
		return 0, vfserr.New(vfserr.IllegalArgument, "nil source buffer")
	}

	written := s.writeAtUnchecked(position, src)
	s.growSizeAtLeast(position + int64(written))
	return int64(written), nil
}

func (s *Store) writeAtUnchecked(position int64, src []byte) int {
	n := len(src)
	written := 0
	for written < n {
		pageIdx, pageOff := s.addr(position + int64(written))
		chunk := s.pageSize - pageOff
		if remaining := n - written; chunk > remaining {
			chunk = remaining
		}
		s.ensurePage(pageIdx)
		copy(s.pages[pageIdx][pageOff:pageOff+chunk], src[written:written+chunk])
		written += chunk
	}
	return written
}

// WriteAtVectored performs a gather write: srcs are written contiguously
// starting at position, in array order.
func (s *Store) WriteAtVectored(position int64, srcs [][]byte) (int64, error) {
	if position < 0 {
		return 0, vfserr.New(vfserr.IllegalArgument, "negative write position")
	}

	var total int64
	pos := position
	for _, src := range srcs {
		if len(src) == 0 {
			continue
		}
		written := s.writeAtUnchecked(pos, src)
		total += int64(written)
		pos += int64(written)
	}
	s.growSizeAtLeast(position + total)
	return total, nil
}

// TransferTo copies up to count bytes starting at position to sink. Short
// transfers are permitted if sink accepts fewer bytes than offered; zero
// is returned (not an error) when position >= size.
func (s *Store) TransferTo(position, count int64, sink io.Writer) (int64, error) {
	if position < 0 || count < 0 {
		return 0, vfserr.New(vfserr.IllegalArgument, "negative position or count")
	}
	if sink == nil {
		return 0, vfserr.New(vfserr.IllegalArgument, "nil sink")
	}

	size := s.size.Load()
	if position >= size {
		return 0, nil
	}

	avail := size - position
	remaining := count
	if remaining > avail {
		remaining = avail
	}

	var total int64
	for remaining > 0 {
		pageIdx, pageOff := s.addr(position + total)
		chunkLen := int64(s.pageSize - pageOff)
		if chunkLen > remaining {
			chunkLen = remaining
		}

		var chunk []byte
		if pageIdx < len(s.pages) && s.pages[pageIdx] != nil {
			chunk = s.pages[pageIdx][pageOff : int64(pageOff)+chunkLen]
		} else {
			chunk = s.zero[:chunkLen]
		}

		n, err := sink.Write(chunk)
		total += int64(n)
		remaining -= int64(n)
		if err != nil {
			return total, vfserr.Wrap(vfserr.IO, "transferTo write failed", err)
		}
		if int64(n) < chunkLen {
			// Sink accepted fewer bytes than offered; stop here rather
			// than looping.
			break
		}
	}
	return total, nil
}

// TransferFrom copies up to count bytes from source to position, growing
// the store as needed. It stops early on source EOF.
func (s *Store) TransferFrom(source io.Reader, position, count int64) (int64, error) {
	if position < 0 || count < 0 {
		return 0, vfserr.New(vfserr.IllegalArgument, "negative position or count")
	}
	if source == nil {
		return 0, vfserr.New(vfserr.IllegalArgument, "nil source")
	}

	var total int64
	for total < count {
		pageIdx, pageOff := s.addr(position + total)
		chunkLen := int64(s.pageSize - pageOff)
		if remaining := count - total; chunkLen > remaining {
			chunkLen = remaining
		}

		s.ensurePage(pageIdx)
		page := s.pages[pageIdx]

		n, err := io.ReadFull(source, page[pageOff:int64(pageOff)+chunkLen])
		total += int64(n)
		if n > 0 {
			s.growSizeAtLeast(position + total)
		}
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return total, vfserr.Wrap(vfserr.IO, "transferFrom read failed", err)
		}
	}
	return total, nil
}

// Truncate sets size to newSize if newSize < size, releasing pages no
// longer covered back to the pool. Truncate never grows the store.
func (s *Store) Truncate(newSize int64) error {
	if newSize < 0 {
		return vfserr.New(vfserr.IllegalArgument, "negative truncate size")
	}

	size := s.size.Load()
	if newSize >= size {
		return nil
	}

	s.size.Store(newSize)

	// Zero the tail of the last kept page so a later write past newSize
	// sees a zero gap rather than the truncated bytes.
	if pageIdx, pageOff := s.addr(newSize); pageOff != 0 && pageIdx < len(s.pages) && s.pages[pageIdx] != nil {
		tail := s.pages[pageIdx][pageOff:]
		for i := range tail {
			tail[i] = 0
		}
	}

	required := s.pagesNeeded(newSize)
	for i := required; i < len(s.pages); i++ {
		if s.pages[i] != nil {
			s.pool.put(s.pages[i])
			s.pages[i] = nil
		}
	}
	if required < len(s.pages) {
		s.pages = s.pages[:required]
	}
	return nil
}

// Copy produces a new, independent Store with the same logical bytes,
// sharing no pages with s.
func (s *Store) Copy() *Store {
	size := s.size.Load()
	dup := New(s.pageSize, s.pool.bound)
	dup.pages = make([][]byte, len(s.pages))
	for i, p := range s.pages {
		if p == nil {
			continue
		}
		np := dup.pool.get()
		copy(np, p)
		dup.pages[i] = np
	}
	dup.size.Store(size)
	return dup
}

// PageSize returns the fixed page size this store was created with.
func (s *Store) PageSize() int { return s.pageSize }

// PoolSize reports how many pages are currently sitting in the free-page
// pool, for pkg/vfsmetrics.
func (s *Store) PoolSize() int { return s.pool.size() }
