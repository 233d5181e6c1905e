package util

import "errors"

// Sentinel errors returned by the storage packages. Higher layers compare
// against these with errors.Is; wrapped causes (disk I/O, mmap failures)
// are attached with github.com/pkg/errors so the sentinel identity survives
// the wrap.
var (
	ErrInvalidPoolSize    = errors.New("invalid pool size")
	ErrInvalidInitialSize = errors.New("initial size must be positive")
	ErrMaxMapSizeExceeded = errors.New("mapping size exceeds maximum")
	ErrPageOutOfBounds    = errors.New("page offset out of bounds")
	ErrOutOfFrameBounds   = errors.New("frame index out of bounds")
	ErrInvalidBufferSize  = errors.New("buffer size does not match page size")

	// ErrPoolExhausted: every frame in the instance is pinned.
	ErrPoolExhausted = errors.New("buffer pool exhausted: all frames pinned")
	// ErrPageNotResident: flush/unpin targeted a page not in the page table.
	ErrPageNotResident = errors.New("page is not resident")
	// ErrUnderPin: unpin called with pin count already at zero.
	ErrUnderPin = errors.New("page is not pinned")
	// ErrPagePinned: delete called while pin count is non-zero.
	ErrPagePinned = errors.New("page is pinned")

	// ErrBucketFull: bucket page insert with no free slot.
	ErrBucketFull = errors.New("bucket page is full")
	// ErrDuplicateEntry: bucket page insert of an existing (key, value) pair.
	ErrDuplicateEntry = errors.New("duplicate key/value entry")
)
