package page

import (
	util "github.com/finchdb/finchdb/internal/utils"
)

// CreateTestFrame builds a resident, unpinned frame preloaded with data,
// for use in unit tests that need a frame without going through a pool.
func CreateTestFrame(pageID util.PageID, data []byte) *Frame {
	f := NewFrame()
	f.PageID = pageID
	if len(data) > len(f.Data) {
		data = data[:len(f.Data)]
	}
	copy(f.Data[:], data)
	return f
}
