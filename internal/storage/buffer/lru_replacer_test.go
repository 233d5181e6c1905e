package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	util "github.com/finchdb/finchdb/internal/utils"
)

func TestLRUReplacerVictimOrder(t *testing.T) {
	r := NewLRUReplacer()

	r.Unpin(1)
	r.Unpin(2)
	r.Unpin(3)
	r.Pin(2)

	frame, ok := r.Victim()
	assert.True(t, ok)
	assert.Equal(t, 1, frame)

	frame, ok = r.Victim()
	assert.True(t, ok)
	assert.Equal(t, 3, frame)

	_, ok = r.Victim()
	assert.False(t, ok, "replacer should be empty")
}

func TestLRUReplacerUnpinDoesNotRefreshRecency(t *testing.T) {
	r := NewLRUReplacer()

	r.Unpin(1)
	r.Unpin(2)
	// Re-unpinning an already-eligible frame is a no-op: it must not
	// move to the front and delay its own eviction.
	r.Unpin(1)

	frame, ok := r.Victim()
	assert.True(t, ok)
	assert.Equal(t, 1, frame)
}

func TestLRUReplacerPinNonMemberIsNoOp(t *testing.T) {
	r := NewLRUReplacer()
	r.Pin(42)
	assert.Equal(t, 0, r.Size())
}

func TestLRUReplacerSize(t *testing.T) {
	r := NewLRUReplacer()
	assert.Equal(t, 0, r.Size())

	r.Unpin(0)
	r.Unpin(1)
	assert.Equal(t, 2, r.Size())

	r.Pin(0)
	assert.Equal(t, 1, r.Size())

	_, _ = r.Victim()
	assert.Equal(t, 0, r.Size())
}

func TestLRUReplacerVictimOnEmpty(t *testing.T) {
	r := NewLRUReplacer()
	frame, ok := r.Victim()
	assert.False(t, ok)
	assert.Equal(t, util.InvalidFrameID, frame)
}
