package buffer

import (
	"sync"

	"github.com/finchdb/finchdb/internal/storage/file"
	"github.com/finchdb/finchdb/internal/storage/page"
	util "github.com/finchdb/finchdb/internal/utils"
)

// ParallelPool shards page storage across a fixed set of Instances,
// routing every operation by page_id mod N except NewPage, which probes
// instances starting at a rotating cursor to spread allocation load.
// The cursor is the pool's only shared mutable state; a
// small mutex protects it, since strict consistency on it is unnecessary
// but a data race is not acceptable regardless.
type ParallelPool struct {
	instances []*Instance

	startMu    sync.Mutex
	startIndex int
}

// NewParallelPool wraps pre-built instances into a routed pool.
func NewParallelPool(instances []*Instance) *ParallelPool {
	if len(instances) == 0 {
		panic(util.ErrInvalidPoolSize)
	}
	return &ParallelPool{instances: instances}
}

// NewParallelBufferPool builds numInstances shards of perInstanceSize
// frames each, all backed by filer, using a fresh Replacer from
// newReplacer per shard — the constructor form of the original
// ParallelBufferPoolManager.
func NewParallelBufferPool(numInstances, perInstanceSize int, filer file.Filer, newReplacer func() Replacer) *ParallelPool {
	instances := make([]*Instance, numInstances)
	for i := range instances {
		instances[i] = NewShardedInstance(perInstanceSize, numInstances, i, filer, newReplacer())
	}
	return NewParallelPool(instances)
}

func (p *ParallelPool) routeFor(pageID util.PageID) *Instance {
	n := util.PageID(len(p.instances))
	idx := pageID % n
	if idx < 0 {
		idx += n
	}
	return p.instances[idx]
}

// GetPoolSize returns num_instances * per_instance_pool_size.
func (p *ParallelPool) GetPoolSize() int {
	total := 0
	for _, inst := range p.instances {
		total += inst.PoolSize()
	}
	return total
}

// NewPage probes instances starting at the rotating cursor, returning the
// first successful allocation and advancing the cursor past it. If every
// instance fails, the cursor still advances by one so the next caller
// starts somewhere else.
func (p *ParallelPool) NewPage() (*page.Frame, util.PageID, error) {
	n := len(p.instances)

	p.startMu.Lock()
	start := p.startIndex
	p.startMu.Unlock()

	for i := 0; i < n; i++ {
		idx := (start + i) % n
		frame, pageID, err := p.instances[idx].NewPage()
		if err == nil {
			p.startMu.Lock()
			p.startIndex = (idx + 1) % n
			p.startMu.Unlock()
			return frame, pageID, nil
		}
	}

	p.startMu.Lock()
	p.startIndex = (p.startIndex + 1) % n
	p.startMu.Unlock()
	return nil, util.InvalidPageID, util.ErrPoolExhausted
}

// FetchPage delegates to the instance owning page_id mod N.
func (p *ParallelPool) FetchPage(pageID util.PageID) (*page.Frame, error) {
	return p.routeFor(pageID).FetchPage(pageID)
}

// UnpinPage delegates to the instance owning page_id mod N.
func (p *ParallelPool) UnpinPage(pageID util.PageID, dirty bool) error {
	return p.routeFor(pageID).UnpinPage(pageID, dirty)
}

// FlushPage delegates to the instance owning page_id mod N.
func (p *ParallelPool) FlushPage(pageID util.PageID) error {
	return p.routeFor(pageID).FlushPage(pageID)
}

// DeletePage delegates to the instance owning page_id mod N.
func (p *ParallelPool) DeletePage(pageID util.PageID) error {
	return p.routeFor(pageID).DeletePage(pageID)
}

// FlushAll flushes every resident page across every instance.
func (p *ParallelPool) FlushAll() error {
	var firstErr error
	for _, inst := range p.instances {
		if err := inst.FlushAll(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
