// Package buffer implements the buffer pool: a fixed-size cache of page
// frames mediating access between higher-level access methods and the
// on-disk page store (internal/storage/file).
package buffer

import util "github.com/finchdb/finchdb/internal/utils"

// Replacer maintains the set of frames currently eligible for eviction —
// i.e. resident and unpinned. Implementations are not
// safe for concurrent use on their own: the owning Instance's latch
// serializes every call, the same way a single BufferPoolManagerInstance
// latch guarded its LRUReplacer in the original design this is grounded
// on.
type Replacer interface {
	// Victim returns and removes the frame the policy would evict next.
	// Returns false when no frame is eligible.
	Victim() (util.FrameID, bool)
	// Pin removes frame from the eligible set if present; a no-op
	// otherwise, so the pool can call it defensively before every fetch.
	Pin(frame util.FrameID)
	// Unpin inserts frame into the eligible set if not already present.
	// This is the only way a frame becomes eligible for eviction.
	Unpin(frame util.FrameID)
	// Size returns the number of currently eligible frames.
	Size() int
}
