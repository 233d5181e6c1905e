package file

import (
	util "github.com/finchdb/finchdb/internal/utils"
)

// Filer is the disk manager contract consumed by the buffer pool. Page
// ids are computed by the pool's own striped allocator;
// AllocatePage/DeallocatePage here are the disk manager's advisory side
// of that contract, not a source of truth for id assignment.
type Filer interface {
	ReadPage(pageID util.PageID, buf []byte) error
	WritePage(pageID util.PageID, buf []byte) error
	AllocatePage() util.PageID
	DeallocatePage(pageID util.PageID)
}
