package buffer

import (
	"container/list"

	util "github.com/finchdb/finchdb/internal/utils"
)

// LRUReplacer is a Replacer where victim picks the
// frame that has been evictable the longest, and only the pinned→
// evictable transition records recency — re-unpinning an already
// eligible frame does not refresh its position. Grounded on
// buffer/lru_replacer.cpp's list-plus-side-table design, expressed here
// with container/list instead of a hand-rolled doubly linked list.
type LRUReplacer struct {
	order *list.List
	nodes map[util.FrameID]*list.Element
}

// NewLRUReplacer returns an empty LRU replacer.
func NewLRUReplacer() *LRUReplacer {
	return &LRUReplacer{
		order: list.New(),
		nodes: make(map[util.FrameID]*list.Element),
	}
}

// Victim removes and returns the least-recently-unpinned frame.
func (r *LRUReplacer) Victim() (util.FrameID, bool) {
	back := r.order.Back()
	if back == nil {
		return util.InvalidFrameID, false
	}
	frame := back.Value.(util.FrameID)
	r.order.Remove(back)
	delete(r.nodes, frame)
	return frame, true
}

// Pin removes frame from the eligible set. No-op if frame isn't present.
func (r *LRUReplacer) Pin(frame util.FrameID) {
	if el, ok := r.nodes[frame]; ok {
		r.order.Remove(el)
		delete(r.nodes, frame)
	}
}

// Unpin inserts frame at the front of recency order. No-op if already
// present — it does not refresh position.
func (r *LRUReplacer) Unpin(frame util.FrameID) {
	if _, ok := r.nodes[frame]; ok {
		return
	}
	r.nodes[frame] = r.order.PushFront(frame)
}

// Size returns the number of frames currently eligible for eviction.
func (r *LRUReplacer) Size() int {
	return r.order.Len()
}
