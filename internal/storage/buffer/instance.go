package buffer

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/finchdb/finchdb/internal/storage/file"
	"github.com/finchdb/finchdb/internal/storage/page"
	util "github.com/finchdb/finchdb/internal/utils"
)

// Instance is a single buffer pool shard: pool_size frames, a free list,
// a page table, a Replacer, and the latch serializing all of it. An
// earlier BufferPool (pool.go) drifted from the pin-count contract — its
// EvictFromLRU required frames to already carry a "pinned" header flag
// it never set — so the eviction and pin bookkeeping here follow the
// original BufferPoolManagerInstance design instead.
type Instance struct {
	mu sync.Mutex

	frames    []*page.Frame
	freeList  []util.FrameID
	pageTable map[util.PageID]util.FrameID
	replacer  Replacer
	filer     file.Filer

	poolSize      int
	numInstances  int
	instanceIndex int
	nextPageID    util.PageID

	log *logrus.Entry
}

// NewInstance returns a standalone, unsharded instance — the
// num_instances=1, instance_index=0 convenience form the original
// BufferPoolManagerInstance offered as its single-argument constructor.
func NewInstance(poolSize int, filer file.Filer, replacer Replacer) *Instance {
	return NewShardedInstance(poolSize, 1, 0, filer, replacer)
}

// NewShardedInstance returns instance instanceIndex of numInstances
// shards, each pool_size frames, allocating page ids from the residue
// class instanceIndex mod numInstances.
func NewShardedInstance(poolSize, numInstances, instanceIndex int, filer file.Filer, replacer Replacer) *Instance {
	if poolSize <= 0 {
		panic(util.ErrInvalidPoolSize)
	}
	if numInstances <= 0 || instanceIndex < 0 || instanceIndex >= numInstances {
		panic(util.ErrInvalidPoolSize)
	}

	frames := make([]*page.Frame, poolSize)
	freeList := make([]util.FrameID, poolSize)
	for i := range frames {
		frames[i] = page.NewFrame()
		freeList[i] = i
	}

	return &Instance{
		frames:        frames,
		freeList:      freeList,
		pageTable:     make(map[util.PageID]util.FrameID, poolSize),
		replacer:      replacer,
		filer:         filer,
		poolSize:      poolSize,
		numInstances:  numInstances,
		instanceIndex: instanceIndex,
		nextPageID:    util.PageID(instanceIndex),
		log:           logrus.WithFields(logrus.Fields{"component": "buffer", "instance": instanceIndex}),
	}
}

// PoolSize returns the number of frames this instance owns.
func (inst *Instance) PoolSize() int {
	return inst.poolSize
}

// acquireFrame returns a frame ready for reuse: from the free list if one
// exists, otherwise from the replacer, writing back and unmapping its
// victim first. Caller must hold inst.mu.
func (inst *Instance) acquireFrame() (util.FrameID, bool) {
	if n := len(inst.freeList); n > 0 {
		frameIdx := inst.freeList[n-1]
		inst.freeList = inst.freeList[:n-1]
		return frameIdx, true
	}

	frameIdx, ok := inst.replacer.Victim()
	if !ok {
		return util.InvalidFrameID, false
	}

	victim := inst.frames[frameIdx]
	if victim.Dirty {
		if err := inst.filer.WritePage(victim.PageID, victim.Data[:]); err != nil {
			inst.log.WithError(err).WithField("page_id", victim.PageID).
				Warn("write back of evicted dirty page failed")
		}
	}
	delete(inst.pageTable, victim.PageID)
	return frameIdx, true
}

func (inst *Instance) allocatePageID() util.PageID {
	id := inst.nextPageID
	inst.nextPageID += util.PageID(inst.numInstances)
	return id
}

// NewPage allocates a fresh page id and a pinned, zeroed frame for it.
// Fails with ErrPoolExhausted when every frame is pinned. The zeroed
// frame is not eagerly written to disk — it becomes durable on first
// explicit flush or eviction.
func (inst *Instance) NewPage() (*page.Frame, util.PageID, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	frameIdx, ok := inst.acquireFrame()
	if !ok {
		return nil, util.InvalidPageID, util.ErrPoolExhausted
	}

	pageID := inst.allocatePageID()
	frame := inst.frames[frameIdx]
	frame.Reset()
	frame.PageID = pageID
	frame.PinCount = 1
	inst.pageTable[pageID] = frameIdx
	return frame, pageID, nil
}

// FetchPage returns a pinned frame holding pageID, reading it from disk
// if not already resident. Fails with ErrPoolExhausted when the page is
// not resident and every frame is pinned.
func (inst *Instance) FetchPage(pageID util.PageID) (*page.Frame, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if frameIdx, resident := inst.pageTable[pageID]; resident {
		frame := inst.frames[frameIdx]
		inst.replacer.Pin(frameIdx)
		frame.PinCount++
		return frame, nil
	}

	frameIdx, ok := inst.acquireFrame()
	if !ok {
		return nil, util.ErrPoolExhausted
	}

	frame := inst.frames[frameIdx]
	frame.Reset()
	if err := inst.filer.ReadPage(pageID, frame.Data[:]); err != nil {
		inst.freeList = append(inst.freeList, frameIdx)
		return nil, errors.Wrapf(err, "read page %d from disk", pageID)
	}
	frame.PageID = pageID
	frame.PinCount = 1
	inst.pageTable[pageID] = frameIdx
	return frame, nil
}

// UnpinPage decrements pageID's pin count, ORing dirty into the frame's
// dirty flag first. Returns ErrPageNotResident for an unknown page and
// ErrUnderPin if the pin count was already zero.
func (inst *Instance) UnpinPage(pageID util.PageID, dirty bool) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	frameIdx, resident := inst.pageTable[pageID]
	if !resident {
		return util.ErrPageNotResident
	}

	frame := inst.frames[frameIdx]
	if dirty {
		frame.Dirty = true
	}
	if frame.PinCount <= 0 {
		return util.ErrUnderPin
	}

	frame.PinCount--
	if frame.PinCount == 0 {
		inst.replacer.Unpin(frameIdx)
	}
	return nil
}

// FlushPage synchronously writes pageID's frame to disk and clears its
// dirty flag on success — resolving the source's open question so a
// repeated flush-without-modify doesn't keep rewriting the same bytes.
// Legal whether the page is pinned or not; returns ErrPageNotResident if
// it isn't resident at all.
func (inst *Instance) FlushPage(pageID util.PageID) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.flushLocked(pageID)
}

func (inst *Instance) flushLocked(pageID util.PageID) error {
	frameIdx, resident := inst.pageTable[pageID]
	if !resident {
		return util.ErrPageNotResident
	}

	frame := inst.frames[frameIdx]
	if err := inst.filer.WritePage(pageID, frame.Data[:]); err != nil {
		return errors.Wrapf(err, "flush page %d", pageID)
	}
	frame.Dirty = false
	return nil
}

// FlushAll flushes every resident page, returning the first error
// encountered (if any) after attempting the rest.
func (inst *Instance) FlushAll() error {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	var firstErr error
	for pageID := range inst.pageTable {
		if err := inst.flushLocked(pageID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeletePage retires pageID: idempotent if not resident, fails with
// ErrPagePinned if still pinned, otherwise reclaims the frame to the free
// list and announces the deallocation to the disk manager.
func (inst *Instance) DeletePage(pageID util.PageID) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	frameIdx, resident := inst.pageTable[pageID]
	if !resident {
		return nil
	}

	frame := inst.frames[frameIdx]
	if frame.PinCount != 0 {
		return util.ErrPagePinned
	}

	inst.replacer.Pin(frameIdx)
	delete(inst.pageTable, pageID)
	frame.Reset()
	inst.freeList = append(inst.freeList, frameIdx)
	inst.filer.DeallocatePage(pageID)
	return nil
}
