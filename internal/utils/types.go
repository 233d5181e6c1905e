package util

import (
	"github.com/sirupsen/logrus"
)

// PageID identifies a page, whether resident in a frame or purely on disk.
// Signed so InvalidPageID can be a negative sentinel distinct from every
// allocatable id.
type PageID int64

// InvalidPageID is the reserved sentinel distinct from any allocatable id.
const InvalidPageID PageID = -1

// PageSize is the standard page size (4KB).
const PageSize = 4096

// FrameID identifies a buffer pool frame slot, dense in [0, poolSize).
type FrameID = int

// InvalidFrameID marks "no frame" in free-list and replacer sentinels.
const InvalidFrameID FrameID = -1

// Options represents buffer pool / storage configuration options.
type Options struct {
	Path           string
	PageSize       int
	BufferPoolSize int
	NumInstances   int
	SyncWrites     bool
	ReadOnly       bool
	Logger         *logrus.Logger
}

// DefaultOptions returns default storage options.
func DefaultOptions() Options {
	return Options{
		PageSize:       PageSize,
		BufferPoolSize: 1000,
		NumInstances:   1,
		SyncWrites:     false,
		ReadOnly:       false,
		Logger:         logrus.StandardLogger(),
	}
}
