package page

import (
	"cmp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	util "github.com/finchdb/finchdb/internal/utils"
)

func intCmp(a, b int) int { return cmp.Compare(a, b) }

func newIntBucket(t *testing.T, capacity int) *BucketPage[int, int] {
	t.Helper()
	codec := IntCodec()
	buf := make([]byte, BufferSize(capacity, codec.Size+codec.Size))
	return NewBucketPage[int, int](buf, capacity, codec, codec)
}

func TestBucketCapacityFormula(t *testing.T) {
	// Two ceil(n/8)-byte bitmaps plus n*4-byte entries must fit in 4096.
	cap := BucketCapacity(4096, 4)
	require.Greater(t, cap, 0)
	bytesUsed := 2*ceilDiv(cap, 8) + cap*4
	assert.LessOrEqual(t, bytesUsed, 4096)

	// One more slot must not fit.
	over := 2*ceilDiv(cap+1, 8) + (cap+1)*4
	assert.Greater(t, over, 4096)
}

func TestBucketCapacityDegenerate(t *testing.T) {
	assert.Equal(t, 0, BucketCapacity(4096, 0))
	assert.Equal(t, 0, BucketCapacity(0, 4))
}

func TestNewBucketPagePanicsOnUndersizedBuffer(t *testing.T) {
	codec := IntCodec()
	buf := make([]byte, BufferSize(4, codec.Size+codec.Size)-1)
	assert.Panics(t, func() {
		NewBucketPage[int, int](buf, 4, codec, codec)
	})
}

// A bucket page is a view over a caller-owned buffer: formatting it and
// then reopening the same bytes with OpenBucketPage must see the same
// entries, the way fetching a page back out of the buffer pool would.
func TestOpenBucketPageSeesPriorContents(t *testing.T) {
	codec := IntCodec()
	buf := make([]byte, BufferSize(4, codec.Size+codec.Size))

	written := NewBucketPage[int, int](buf, 4, codec, codec)
	require.NoError(t, written.Insert(1, 100, intCmp))

	reopened := OpenBucketPage[int, int](buf, 4, codec, codec)
	assert.Equal(t, []int{100}, reopened.Get(1, intCmp))
}

// Scenario 5: capacity-4 bucket, insert (k1,v1),(k1,v2),(k2,v3); Get(k1)
// returns both values; Remove(k1,v1) succeeds once and is a tombstone
// thereafter — a second identical remove fails.
func TestBucketScenario_DuplicateKeysAndTombstoneRemoval(t *testing.T) {
	b := newIntBucket(t, 4)

	require.NoError(t, b.Insert(1, 100, intCmp))
	require.NoError(t, b.Insert(1, 200, intCmp))
	require.NoError(t, b.Insert(2, 300, intCmp))

	assert.ElementsMatch(t, []int{100, 200}, b.Get(1, intCmp))
	assert.Equal(t, []int{300}, b.Get(2, intCmp))

	assert.True(t, b.Remove(1, 100, intCmp))
	assert.Equal(t, []int{200}, b.Get(1, intCmp))

	assert.False(t, b.Remove(1, 100, intCmp))
}

func TestBucketInsertRejectsExactDuplicate(t *testing.T) {
	codec := FixedStringCodec(8)
	intCodec := IntCodec()
	buf := make([]byte, BufferSize(4, codec.Size+intCodec.Size))
	b := NewBucketPage[string, int](buf, 4, codec, intCodec)

	require.NoError(t, b.Insert("a", 1, stringCmp))
	assert.ErrorIs(t, b.Insert("a", 1, stringCmp), util.ErrDuplicateEntry)
	// Same key, different value is not a duplicate.
	require.NoError(t, b.Insert("a", 2, stringCmp))
}

func stringCmp(a, b string) int { return cmp.Compare(a, b) }

func TestBucketFullRejectsInsert(t *testing.T) {
	b := newIntBucket(t, 2)
	require.NoError(t, b.Insert(1, 1, intCmp))
	require.NoError(t, b.Insert(2, 2, intCmp))
	assert.ErrorIs(t, b.Insert(3, 3, intCmp), util.ErrBucketFull)
}

func TestBucketTombstoneSlotIsReusedByInsert(t *testing.T) {
	b := newIntBucket(t, 1)
	require.NoError(t, b.Insert(1, 1, intCmp))
	assert.ErrorIs(t, b.Insert(2, 2, intCmp), util.ErrBucketFull)

	require.True(t, b.Remove(1, 1, intCmp))
	// Slot is a tombstone now: occupied but not readable, so insert
	// should reuse it rather than reporting the bucket full.
	require.NoError(t, b.Insert(2, 2, intCmp))
	assert.Equal(t, []int{2}, b.Get(2, intCmp))
}

func TestBucketIsFullAndIsEmpty(t *testing.T) {
	b := newIntBucket(t, 2)
	assert.True(t, b.IsEmpty())
	assert.False(t, b.IsFull())

	require.NoError(t, b.Insert(1, 1, intCmp))
	assert.False(t, b.IsEmpty())
	assert.False(t, b.IsFull())

	require.NoError(t, b.Insert(2, 2, intCmp))
	assert.True(t, b.IsFull())

	assert.True(t, b.Remove(1, 1, intCmp))
	assert.False(t, b.IsFull())
	assert.False(t, b.IsEmpty())
}

func TestBucketNumReadable(t *testing.T) {
	b := newIntBucket(t, 4)
	assert.Equal(t, 0, b.NumReadable())
	require.NoError(t, b.Insert(1, 1, intCmp))
	require.NoError(t, b.Insert(2, 2, intCmp))
	assert.Equal(t, 2, b.NumReadable())
	assert.True(t, b.Remove(1, 1, intCmp))
	assert.Equal(t, 1, b.NumReadable())
}

func TestBucketKeyAtValueAtRespectBitmaps(t *testing.T) {
	b := newIntBucket(t, 2)
	require.NoError(t, b.Insert(7, 9, intCmp))

	key, ok := b.KeyAt(0)
	assert.True(t, ok)
	assert.Equal(t, 7, key)

	val, ok := b.ValueAt(0)
	assert.True(t, ok)
	assert.Equal(t, 9, val)

	_, ok = b.KeyAt(1)
	assert.False(t, ok, "never-occupied slot is not readable")

	require.True(t, b.Remove(7, 9, intCmp))
	_, ok = b.KeyAt(0)
	assert.False(t, ok, "tombstoned slot is not readable")
}

func TestBucketRemoveAt(t *testing.T) {
	b := newIntBucket(t, 2)
	require.NoError(t, b.Insert(1, 1, intCmp))
	b.RemoveAt(0)
	assert.Equal(t, []int(nil), b.Get(1, intCmp))
	assert.True(t, b.IsOccupied(0))
	assert.False(t, b.IsReadable(0))
}

func TestBucketStatsMatchesContiguousOccupiedPrefix(t *testing.T) {
	b := newIntBucket(t, 4)
	require.NoError(t, b.Insert(1, 1, intCmp))
	require.NoError(t, b.Insert(2, 2, intCmp))
	require.NoError(t, b.Insert(3, 3, intCmp))
	assert.True(t, b.Remove(2, 2, intCmp))

	stats := b.Stats()
	assert.Equal(t, 4, stats.Capacity)
	assert.Equal(t, 3, stats.Size)
	assert.Equal(t, 2, stats.Taken)
	assert.Equal(t, 1, stats.Free)
}

func TestBucketOutOfBoundsPanics(t *testing.T) {
	b := newIntBucket(t, 2)
	assert.Panics(t, func() { b.IsOccupied(2) })
	assert.Panics(t, func() { b.IsOccupied(-1) })
}

// A bucket page can be opened directly over a frame's data without going
// through a buffer pool at all — the frame is just another []byte owner.
func TestBucketPageOverTestFrame(t *testing.T) {
	codec := IntCodec()
	capacity := 4
	frame := CreateTestFrame(7, nil)

	written := NewBucketPage[int, int](frame.Data[:], capacity, codec, codec)
	require.NoError(t, written.Insert(1, 100, intCmp))

	reopened := OpenBucketPage[int, int](frame.Data[:], capacity, codec, codec)
	assert.Equal(t, []int{100}, reopened.Get(1, intCmp))
}

func TestFixedStringCodecRoundTrip(t *testing.T) {
	codec := FixedStringCodec(8)
	buf := make([]byte, codec.Size)
	codec.Encode("hi", buf)
	assert.Equal(t, "hi", codec.Decode(buf))

	// Longer than width is truncated on encode.
	codec.Encode("toolongforthis", buf)
	assert.Equal(t, "toolongf", codec.Decode(buf))
}

func TestUint64CodecRoundTrip(t *testing.T) {
	codec := Uint64Codec()
	buf := make([]byte, codec.Size)
	codec.Encode(1<<63, buf)
	assert.Equal(t, uint64(1<<63), codec.Decode(buf))
}
