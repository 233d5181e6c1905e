package page

import (
	"encoding/binary"

	util "github.com/finchdb/finchdb/internal/utils"
)

// Comparator orders two keys, returning <0, 0, or >0 the way cmp.Compare
// or bytes.Compare do. Bucket page operations take one explicitly rather
// than requiring K to implement any particular interface, matching the
// "polymorphic over key type, value type, and key comparator" contract.
type Comparator[K any] func(a, b K) int

// Codec packs a fixed-width value of type T to and from bytes, so a
// BucketPage can hold its (key, value) pairs directly inside a page's
// byte block instead of a separate in-memory slice. Size must be the
// exact number of bytes Encode always writes and Decode always reads.
type Codec[T any] struct {
	Size   int
	Encode func(v T, buf []byte)
	Decode func(buf []byte) T
}

// Uint64Codec encodes a uint64 as 8 big-endian bytes.
func Uint64Codec() Codec[uint64] {
	return Codec[uint64]{
		Size:   8,
		Encode: func(v uint64, buf []byte) { binary.BigEndian.PutUint64(buf, v) },
		Decode: func(buf []byte) uint64 { return binary.BigEndian.Uint64(buf) },
	}
}

// Int64Codec encodes an int64 the same way, via its bit pattern.
func Int64Codec() Codec[int64] {
	return Codec[int64]{
		Size:   8,
		Encode: func(v int64, buf []byte) { binary.BigEndian.PutUint64(buf, uint64(v)) },
		Decode: func(buf []byte) int64 { return int64(binary.BigEndian.Uint64(buf)) },
	}
}

// IntCodec encodes a Go int as 8 bytes via int64, for platforms where int
// is 64-bit; it is meant for tests and tooling rather than a wire format
// meant to be portable across architectures.
func IntCodec() Codec[int] {
	inner := Int64Codec()
	return Codec[int]{
		Size:   inner.Size,
		Encode: func(v int, buf []byte) { inner.Encode(int64(v), buf) },
		Decode: func(buf []byte) int { return int(inner.Decode(buf)) },
	}
}

// FixedStringCodec encodes a string into exactly width bytes, right-
// padded with zeros and truncated if longer than width. The caller picks
// a width that comfortably bounds every key or value it stores; a string
// containing a zero byte cannot round-trip exactly, matching the fixed-
// width C-string convention the encoding is modeled on.
func FixedStringCodec(width int) Codec[string] {
	return Codec[string]{
		Size: width,
		Encode: func(v string, buf []byte) {
			for i := range buf {
				buf[i] = 0
			}
			copy(buf, v)
		},
		Decode: func(buf []byte) string {
			end := len(buf)
			for i, c := range buf {
				if c == 0 {
					end = i
					break
				}
			}
			return string(buf[:end])
		},
	}
}

// BucketCapacity computes BUCKET_ARRAY_SIZE: the largest slot count n such
// that two ceil(n/8)-byte bitmaps plus n entries of entrySize bytes fit
// within pageSize bytes.
func BucketCapacity(pageSize, entrySize int) int {
	if entrySize <= 0 || pageSize <= 0 {
		return 0
	}
	lo, hi := 0, pageSize/entrySize+8
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if 2*ceilDiv(mid, 8)+mid*entrySize <= pageSize {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// BufferSize returns the number of bytes a bucket page of the given
// capacity and per-entry width (keyCodec.Size + valCodec.Size) occupies:
// two ceil(capacity/8)-byte bitmaps followed by capacity entries,
// back-to-back with no padding.
func BufferSize(capacity, entrySize int) int {
	return 2*ceilDiv(capacity, 8) + capacity*entrySize
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// BucketPage is a single hash-bucket page for a linear-probing hash
// index, laid out bit-exact inside a caller-supplied byte block: an
// occupied bitmap, a readable bitmap, then capacity fixed-width (key,
// value) entries, back-to-back with no padding. BucketPage does not own
// its bytes — it is a view over buf, typically a page.Frame's Data — so
// it is an ordinary client of the buffer pool: fetch a page, view it as
// a bucket, mutate it, and the pool's normal dirty/flush/eviction path
// makes the change durable. The original hash_table_bucket_page.cpp
// this is grounded on places its array the same way, directly inside
// the page's own memory region, rather than in a separate heap
// allocation.
type BucketPage[K any, V comparable] struct {
	occupied []byte
	readable []byte
	entries  []byte
	capacity int
	keySize  int
	valSize  int
	keyCodec Codec[K]
	valCodec Codec[V]
}

// NewBucketPage formats buf as a freshly empty bucket page with room for
// capacity entries of keyCodec/valCodec's widths, clearing both bitmaps.
// Panics if buf is smaller than BufferSize(capacity, keyCodec.Size+
// valCodec.Size). buf is retained, not copied: writes through the
// returned BucketPage mutate the caller's bytes directly.
func NewBucketPage[K any, V comparable](buf []byte, capacity int, keyCodec Codec[K], valCodec Codec[V]) *BucketPage[K, V] {
	b := layoutBucketPage(buf, capacity, keyCodec, valCodec)
	for i := range b.occupied {
		b.occupied[i] = 0
	}
	for i := range b.readable {
		b.readable[i] = 0
	}
	return b
}

// OpenBucketPage interprets the existing contents of buf — e.g. a page
// just fetched from disk — as a bucket page, without reinitializing its
// bitmaps.
func OpenBucketPage[K any, V comparable](buf []byte, capacity int, keyCodec Codec[K], valCodec Codec[V]) *BucketPage[K, V] {
	return layoutBucketPage(buf, capacity, keyCodec, valCodec)
}

func layoutBucketPage[K any, V comparable](buf []byte, capacity int, keyCodec Codec[K], valCodec Codec[V]) *BucketPage[K, V] {
	entrySize := keyCodec.Size + valCodec.Size
	bitmapBytes := ceilDiv(capacity, 8)
	need := BufferSize(capacity, entrySize)
	if len(buf) < need {
		panic(util.ErrInvalidBufferSize)
	}
	return &BucketPage[K, V]{
		occupied: buf[0:bitmapBytes],
		readable: buf[bitmapBytes : 2*bitmapBytes],
		entries:  buf[2*bitmapBytes : need],
		capacity: capacity,
		keySize:  keyCodec.Size,
		valSize:  valCodec.Size,
		keyCodec: keyCodec,
		valCodec: valCodec,
	}
}

// Capacity returns BUCKET_ARRAY_SIZE for this page.
func (b *BucketPage[K, V]) Capacity() int { return b.capacity }

func bitSet(bitmap []byte, i int) bool {
	return bitmap[i/8]&(1<<uint(i%8)) != 0
}

func bitClear(bitmap []byte, i int) {
	bitmap[i/8] &^= 1 << uint(i%8)
}

func (b *BucketPage[K, V]) checkBounds(i int) {
	if i < 0 || i >= b.capacity {
		panic(util.ErrOutOfFrameBounds)
	}
}

func (b *BucketPage[K, V]) slot(i int) []byte {
	entrySize := b.keySize + b.valSize
	return b.entries[i*entrySize : (i+1)*entrySize]
}

func (b *BucketPage[K, V]) keyAt(i int) K {
	return b.keyCodec.Decode(b.slot(i)[:b.keySize])
}

func (b *BucketPage[K, V]) valAt(i int) V {
	return b.valCodec.Decode(b.slot(i)[b.keySize:])
}

func (b *BucketPage[K, V]) setEntry(i int, key K, value V) {
	entry := b.slot(i)
	b.keyCodec.Encode(key, entry[:b.keySize])
	b.valCodec.Encode(value, entry[b.keySize:])
}

// IsOccupied reports whether slot i was ever used.
func (b *BucketPage[K, V]) IsOccupied(i int) bool {
	b.checkBounds(i)
	return bitSet(b.occupied, i)
}

// SetOccupied marks slot i as having been used. Occupied bits are never
// cleared during a page's life.
func (b *BucketPage[K, V]) SetOccupied(i int) {
	b.checkBounds(i)
	b.occupied[i/8] |= 1 << uint(i%8)
}

// IsReadable reports whether slot i currently holds a live entry.
func (b *BucketPage[K, V]) IsReadable(i int) bool {
	b.checkBounds(i)
	return bitSet(b.readable, i)
}

// SetReadable marks slot i as currently holding a live entry.
func (b *BucketPage[K, V]) SetReadable(i int) {
	b.checkBounds(i)
	b.readable[i/8] |= 1 << uint(i%8)
}

// Get returns every value stored under key, per a linear scan of readable
// slots.
func (b *BucketPage[K, V]) Get(key K, cmp Comparator[K]) []V {
	var out []V
	for i := 0; i < b.capacity; i++ {
		if bitSet(b.readable, i) && cmp(key, b.keyAt(i)) == 0 {
			out = append(out, b.valAt(i))
		}
	}
	return out
}

// Insert places (key, value) in the first slot whose readable bit is
// clear — which may be a never-used slot or a tombstone. Fails if the
// page is full or the exact (key, value) pair is already present.
func (b *BucketPage[K, V]) Insert(key K, value V, cmp Comparator[K]) error {
	slot := -1
	for i := 0; i < b.capacity; i++ {
		if bitSet(b.readable, i) {
			if cmp(key, b.keyAt(i)) == 0 && value == b.valAt(i) {
				return util.ErrDuplicateEntry
			}
			continue
		}
		if slot == -1 {
			slot = i
		}
	}
	if slot == -1 {
		return util.ErrBucketFull
	}
	b.SetOccupied(slot)
	b.SetReadable(slot)
	b.setEntry(slot, key, value)
	return nil
}

// Remove clears the readable bit of the first occupied, readable slot
// matching both key and value. The occupied bit is left set: this is the
// tombstone that keeps linear-probe scan termination correct.
func (b *BucketPage[K, V]) Remove(key K, value V, cmp Comparator[K]) bool {
	for i := 0; i < b.capacity; i++ {
		if bitSet(b.occupied, i) && bitSet(b.readable, i) && cmp(key, b.keyAt(i)) == 0 && value == b.valAt(i) {
			bitClear(b.readable, i)
			return true
		}
	}
	return false
}

// KeyAt returns the key at slot i and whether the slot is occupied and
// readable.
func (b *BucketPage[K, V]) KeyAt(i int) (K, bool) {
	b.checkBounds(i)
	if bitSet(b.occupied, i) && bitSet(b.readable, i) {
		return b.keyAt(i), true
	}
	var zero K
	return zero, false
}

// ValueAt returns the value at slot i and whether the slot is occupied
// and readable.
func (b *BucketPage[K, V]) ValueAt(i int) (V, bool) {
	b.checkBounds(i)
	if bitSet(b.occupied, i) && bitSet(b.readable, i) {
		return b.valAt(i), true
	}
	var zero V
	return zero, false
}

// RemoveAt clears the readable bit of slot i if it is currently set.
func (b *BucketPage[K, V]) RemoveAt(i int) {
	b.checkBounds(i)
	if bitSet(b.readable, i) {
		bitClear(b.readable, i)
	}
}

// NumReadable returns the count of slots currently holding a live entry.
func (b *BucketPage[K, V]) NumReadable() int {
	n := 0
	for i := 0; i < b.capacity; i++ {
		if bitSet(b.readable, i) {
			n++
		}
	}
	return n
}

// IsFull reports whether every slot currently holds a live entry.
func (b *BucketPage[K, V]) IsFull() bool {
	return b.NumReadable() == b.capacity
}

// IsEmpty reports whether no slot currently holds a live entry.
func (b *BucketPage[K, V]) IsEmpty() bool {
	return b.NumReadable() == 0
}

// Stats reports occupancy diagnostics: Size is the length of the
// contiguous ever-occupied prefix, Taken the live entries within it, Free
// the tombstones within it. Ported from the original implementation's
// PrintBucket, which scanned the same prefix to report the same counts.
type Stats struct {
	Capacity int
	Size     int
	Taken    int
	Free     int
}

func (b *BucketPage[K, V]) Stats() Stats {
	s := Stats{Capacity: b.capacity}
	for i := 0; i < b.capacity; i++ {
		if !bitSet(b.occupied, i) {
			break
		}
		s.Size++
		if bitSet(b.readable, i) {
			s.Taken++
		} else {
			s.Free++
		}
	}
	return s
}
