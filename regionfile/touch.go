package regionfile

import "sync/atomic"

// touchPages reads one little-endian word at every page-aligned offset
// of b, faulting each page of the mapping into physical memory. It
// returns the accumulated words and the number of pages visited. The
// sum carries no meaning, it only gives the reads a data dependency so
// they cannot be optimized away. A short final page contributes
// however many of its 4 bytes exist.
func touchPages(b []byte, pageSize int) (sum int32, pages int) {
	for off := 0; off < len(b); off += pageSize {
		end := off + 4
		if end > len(b) {
			end = len(b)
		}
		var word uint32
		for i, c := range b[off:end] {
			word |= uint32(c) << (uint(i) * 8)
		}
		sum += int32(word)
		pages++
	}
	return
}

// Load touches every page of the region, forcing the whole mapping to
// be resident. It returns the number of pages visited.
func (rf *RegionFile) Load() (int, error) {
	rf.RLock()
	defer rf.RUnlock()

	if rf.buf == nil {
		return 0, ErrNotMapped
	}
	sum, pages := touchPages(rf.buf, rf.pageSize)
	atomic.StoreInt32(&rf.loadSum, sum)
	return pages, nil
}

// LoadRange touches every page of a sub-range. The offset must be
// aligned to the region page size so pages are visited exactly once.
func (rf *RegionFile) LoadRange(off, length int64) (int, error) {
	rf.RLock()
	defer rf.RUnlock()

	if err := rf.checkRange(off, length, rf.pageSize); err != nil {
		return 0, err
	}
	sum, pages := touchPages(rf.buf[off:off+length], rf.pageSize)
	atomic.StoreInt32(&rf.loadSum, sum)
	return pages, nil
}
