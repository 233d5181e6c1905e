// Package file implements the on-disk page store the buffer pool reads
// through and writes back to: a single memory-mapped file addressed as a
// dense array of PAGE_SIZE blocks.
package file

import (
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	util "github.com/finchdb/finchdb/internal/utils"
)

// MaxMapSize bounds how large a single mapping is allowed to grow. It is
// generous (1TB) and exists only to keep a runaway growth loop from
// trying to map an unreasonable amount of address space.
const MaxMapSize = 1 << 40

// FileManager is a Filer backed by a memory-mapped page file. A prior
// hand-rolled syscall-based mmap only built on Windows and had no Unix
// counterpart; the portable mmap-go library replaces it, used the same
// way spy16/kiwi's on-disk pager uses it.
type FileManager struct {
	mu   sync.Mutex
	file *os.File
	data mmap.MMap
	size int64
	log  *logrus.Entry

	// nextAlloc is an advisory disk-side counter surfaced through
	// AllocatePage; the buffer pool's own striped allocator, not this
	// counter, is authoritative for page ids.
	nextAlloc int64
}

// NewFileManager opens (creating if necessary) a page file sized to hold
// at least initialPages pages, and maps it into memory. An existing file
// larger than that keeps its size and contents.
func NewFileManager(path string, initialPages int) (*FileManager, error) {
	if initialPages <= 0 {
		return nil, util.ErrInvalidInitialSize
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, errors.Wrap(err, "open page file")
	}

	fm := &FileManager{
		file: f,
		log:  logrus.WithField("component", "file"),
	}

	initialSize := int64(initialPages) * int64(util.PageSize)
	if st, err := f.Stat(); err == nil && st.Size() > initialSize {
		initialSize = st.Size()
	}
	if err := fm.remap(initialSize); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "map page file")
	}

	return fm, nil
}

// remap sets the backing file to size bytes and remaps it. Caller must
// hold fm.mu.
func (fm *FileManager) remap(size int64) error {
	if size > MaxMapSize {
		return util.ErrMaxMapSizeExceeded
	}

	if fm.data != nil {
		if err := fm.data.Unmap(); err != nil {
			return errors.Wrap(err, "unmap page file")
		}
		fm.data = nil
	}

	if err := fm.file.Truncate(size); err != nil {
		return errors.Wrapf(err, "truncate page file to %d bytes", size)
	}

	m, err := mmap.Map(fm.file, mmap.RDWR, 0)
	if err != nil {
		return errors.Wrap(err, "mmap page file")
	}

	fm.data = m
	fm.size = size
	return nil
}

// ReadPage loads PAGE_SIZE bytes for pageID into buf. A page beyond the
// current mapping has never been written and reads as zeros — it does
// not grow the mapping.
func (fm *FileManager) ReadPage(pageID util.PageID, buf []byte) error {
	if len(buf) != util.PageSize {
		return util.ErrInvalidBufferSize
	}

	fm.mu.Lock()
	defer fm.mu.Unlock()

	offset := int64(pageID) * int64(util.PageSize)
	if pageID < 0 || offset+int64(util.PageSize) > fm.size {
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}

	copy(buf, fm.data[offset:offset+int64(util.PageSize)])
	return nil
}

// WritePage durably persists buf as pageID's PAGE_SIZE block, doubling
// the mapping if the page falls beyond the current file size.
func (fm *FileManager) WritePage(pageID util.PageID, buf []byte) error {
	if len(buf) != util.PageSize {
		return util.ErrInvalidBufferSize
	}
	if pageID < 0 {
		return util.ErrPageOutOfBounds
	}

	fm.mu.Lock()
	defer fm.mu.Unlock()

	offset := int64(pageID) * int64(util.PageSize)
	if offset+int64(util.PageSize) > fm.size {
		newSize := fm.size * 2
		if want := offset + int64(util.PageSize); newSize < want {
			newSize = want
		}
		fm.log.WithFields(logrus.Fields{"page_id": pageID, "new_size": newSize}).Debug("growing page file")
		if err := fm.remap(newSize); err != nil {
			return errors.Wrap(err, "grow page file")
		}
	}

	copy(fm.data[offset:offset+int64(util.PageSize)], buf)
	if err := fm.data.Flush(); err != nil {
		return errors.Wrap(err, "flush mapped page file")
	}
	return nil
}

// AllocatePage bumps the disk manager's advisory allocation counter.
// It is not the source of truth for page ids — the buffer pool's striped
// allocator computes those directly — but a real disk manager tracks
// gross allocation volume for space accounting, so this mirrors that.
func (fm *FileManager) AllocatePage() util.PageID {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	fm.nextAlloc++
	return util.PageID(fm.nextAlloc - 1)
}

// DeallocatePage is advisory: a real disk manager might reclaim the
// slot for reuse; this implementation only logs the announcement.
func (fm *FileManager) DeallocatePage(pageID util.PageID) {
	fm.log.WithField("page_id", pageID).Debug("page deallocated")
}

// Close flushes and unmaps the page file.
func (fm *FileManager) Close() error {
	if fm == nil {
		return nil
	}
	fm.mu.Lock()
	defer fm.mu.Unlock()

	var err error
	if fm.data != nil {
		if e := fm.data.Flush(); e != nil {
			err = errors.Wrap(e, "flush page file")
		}
		if e := fm.data.Unmap(); e != nil {
			err = errors.Wrap(e, "unmap page file")
		}
		fm.data = nil
	}
	if fm.file != nil {
		if e := fm.file.Close(); e != nil && err == nil {
			err = errors.Wrap(e, "close page file")
		}
		fm.file = nil
	}
	return err
}
