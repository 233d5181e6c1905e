package buffer

import util "github.com/finchdb/finchdb/internal/utils"

// clockDesc tracks one frame's eligibility and second-chance bit.
type clockDesc struct {
	present bool
	used    bool
}

// ClockReplacer is an alternative Replacer implementing the classic
// second-chance clock policy instead of strict LRU: a hand sweeps the
// frame array, skipping (and clearing the reference bit of) any frame
// used since its last sweep before evicting one that has not been. It
// satisfies the same Replacer contract as LRUReplacer, and either may be
// handed to an Instance. Adapted from an earlier atomic, lock-free
// ClockReplacer, simplified to rely on the owning Instance's latch
// rather than duplicating synchronization the Instance already provides.
type ClockReplacer struct {
	desc []clockDesc
	hand int
}

// NewClockReplacer returns a clock replacer sized for poolSize frames.
func NewClockReplacer(poolSize int) *ClockReplacer {
	if poolSize <= 0 {
		panic(util.ErrInvalidPoolSize)
	}
	return &ClockReplacer{desc: make([]clockDesc, poolSize)}
}

// Victim sweeps the clock hand for a frame that is present and whose
// reference bit is clear, clearing reference bits as it passes over them.
func (c *ClockReplacer) Victim() (util.FrameID, bool) {
	n := len(c.desc)
	for i := 0; i < 2*n; i++ {
		idx := c.hand
		c.hand = (c.hand + 1) % n

		d := &c.desc[idx]
		if !d.present {
			continue
		}
		if d.used {
			d.used = false
			continue
		}
		d.present = false
		return idx, true
	}
	return util.InvalidFrameID, false
}

// Pin removes frame from the eligible set.
func (c *ClockReplacer) Pin(frame util.FrameID) {
	c.desc[frame].present = false
	c.desc[frame].used = false
}

// Unpin marks frame present and gives it a second chance.
func (c *ClockReplacer) Unpin(frame util.FrameID) {
	c.desc[frame].present = true
	c.desc[frame].used = true
}

// Size returns the number of frames currently eligible for eviction.
func (c *ClockReplacer) Size() int {
	n := 0
	for _, d := range c.desc {
		if d.present {
			n++
		}
	}
	return n
}
