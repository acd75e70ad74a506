package bytestore

import (
	"sync"

	"github.com/vfscore/engine/internal/telemetry/logger"
)

// defaultPoolBound caps how many released pages a pagePool will hold onto,
// so an idle file that once grew large does not pin memory forever.
const defaultPoolBound = 16

// pagePool is a bounded, thread-safe cache of released, zeroed pages. It
// exists to reduce allocation churn for workloads that repeatedly truncate
// and regrow the same file. It is intentionally simple: a LIFO stack with
// no eviction ordering beyond "most recently released wins", since pages
// are fungible and carry no identity worth preserving.
type pagePool struct {
	mu       sync.Mutex
	pages    [][]byte
	bound    int
	pageSize int
}

func newPagePool(pageSize, bound int) *pagePool {
	if bound <= 0 {
		bound = defaultPoolBound
	}
	return &pagePool{bound: bound, pageSize: pageSize}
}

// get returns a zeroed page, reusing a pooled one when available.
func (p *pagePool) get() []byte {
	p.mu.Lock()
	n := len(p.pages)
	if n == 0 {
		p.mu.Unlock()
		return make([]byte, p.pageSize)
	}
	page := p.pages[n-1]
	p.pages = p.pages[:n-1]
	remaining := n - 1
	p.mu.Unlock()

	logger.Debug("bytestore: page pool shrank to %d page(s)", remaining)
	for i := range page {
		page[i] = 0
	}
	return page
}

// put releases a page back to the pool if there is room, otherwise it is
// left for the garbage collector.
func (p *pagePool) put(page []byte) {
	if page == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pages) >= p.bound {
		return
	}
	p.pages = append(p.pages, page)
	logger.Debug("bytestore: page pool grew to %d page(s)", len(p.pages))
}

// size reports the number of pages currently held by the pool. Exposed for
// pkg/vfsmetrics to report pool occupancy.
func (p *pagePool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pages)
}
