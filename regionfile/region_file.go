package regionfile

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"pagekeeper/mmap"
	"pagekeeper/util"
)

var (
	// ErrOutOfRange offset/length outside the mapped region.
	ErrOutOfRange = errors.New("regionfile: offset or length out of range")
	// ErrUnaligned range offset is not aligned to the page size.
	ErrUnaligned = errors.New("regionfile: offset is not page aligned")
	// ErrNotMapped region has been closed or deleted.
	ErrNotMapped = errors.New("regionfile: region is not mapped")
	// ErrInvalidPageSize page size is zero or negative.
	ErrInvalidPageSize = errors.New("regionfile: invalid page size")
	// ErrInvalidRegionName region name is empty, too long or has odd characters.
	ErrInvalidRegionName = errors.New("regionfile: invalid region name")
	// ErrInvalidRegionSize region size is zero or negative.
	ErrInvalidRegionSize = errors.New("regionfile: invalid region size")
)

// FilePrefix prefix of region files inside a store directory.
const FilePrefix = "region."

// FilePerm permission of created region files.
const FilePerm = 0644

var nameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// RegionFile is a named, file-backed memory-mapped region.
// All operations are bounds checked against the mapping, there is no
// raw pointer arithmetic anywhere below this type.
type RegionFile struct {
	sync.RWMutex
	name     string
	fd       *os.File
	buf      []byte
	size     int64
	pageSize int

	// loadSum keeps the touch accumulator alive so the per-page reads
	// carry a data dependency. The value itself means nothing.
	loadSum int32
}

// ValidName reports whether name is acceptable as a region name.
func ValidName(name string) bool {
	return nameRegexp.MatchString(name)
}

// FileName returns the backing file path of a region inside path.
func FileName(path, name string) string {
	return filepath.Join(path, FilePrefix+name)
}

// Open creates or opens the backing file `region.<name>` inside path,
// grows it to size and maps it writable. pageSize is the touch stride,
// pass os.Getpagesize() unless you know better.
func Open(path, name string, size int64, pageSize int) (*RegionFile, error) {
	if !ValidName(name) {
		return nil, ErrInvalidRegionName
	}
	if size <= 0 {
		return nil, ErrInvalidRegionSize
	}
	if pageSize <= 0 {
		return nil, ErrInvalidPageSize
	}

	fd, err := os.OpenFile(FileName(path, name), os.O_CREATE|os.O_RDWR, FilePerm)
	if err != nil {
		return nil, err
	}
	buf, err := mmap.Mmap(fd, true, size)
	if err != nil {
		_ = fd.Close()
		return nil, err
	}

	return &RegionFile{
		name:     name,
		fd:       fd,
		buf:      buf,
		size:     int64(len(buf)),
		pageSize: pageSize,
	}, nil
}

// Name returns the region name.
func (rf *RegionFile) Name() string {
	return rf.name
}

// Size returns the mapped length in bytes.
func (rf *RegionFile) Size() int64 {
	return rf.size
}

// PageSize returns the touch stride in bytes.
func (rf *RegionFile) PageSize() int {
	return rf.pageSize
}

// Pages returns the number of pages the region spans, the final page
// may be partial.
func (rf *RegionFile) Pages() int {
	return int((rf.size + int64(rf.pageSize) - 1) / int64(rf.pageSize))
}

// checkRange validates a sub-range of the region, alignment is checked
// against align when it is positive. Callers must hold the lock.
func (rf *RegionFile) checkRange(off, length int64, align int) error {
	if rf.buf == nil {
		return ErrNotMapped
	}
	if off < 0 || length < 0 || off+length > rf.size {
		return ErrOutOfRange
	}
	if align > 0 && off%int64(align) != 0 {
		return ErrUnaligned
	}
	return nil
}

// ReadAt copies region bytes at offset into b.
func (rf *RegionFile) ReadAt(b []byte, off int64) (int, error) {
	rf.RLock()
	defer rf.RUnlock()

	if err := rf.checkRange(off, int64(len(b)), 0); err != nil {
		return 0, err
	}
	return copy(b, rf.buf[off:]), nil
}

// WriteAt copies b into the region at offset.
func (rf *RegionFile) WriteAt(b []byte, off int64) (int, error) {
	rf.Lock()
	defer rf.Unlock()

	if err := rf.checkRange(off, int64(len(b)), 0); err != nil {
		return 0, err
	}
	return copy(rf.buf[off:], b), nil
}

// Force flushes every dirty page of the region to the backing file.
func (rf *RegionFile) Force() error {
	rf.RLock()
	defer rf.RUnlock()

	if rf.buf == nil {
		return ErrNotMapped
	}
	return mmap.Msync(rf.buf)
}

// ForceRange flushes the dirty pages of a sub-range to the backing
// file. The offset must be aligned to the OS page size, msync refuses
// anything else.
func (rf *RegionFile) ForceRange(off, length int64) error {
	rf.RLock()
	defer rf.RUnlock()

	if err := rf.checkRange(off, length, os.Getpagesize()); err != nil {
		return err
	}
	if length == 0 {
		return nil
	}
	return mmap.Msync(rf.buf[off : off+length])
}

// Advise hints the kernel about the expected access pattern.
func (rf *RegionFile) Advise(readahead bool) error {
	rf.RLock()
	defer rf.RUnlock()

	if rf.buf == nil {
		return ErrNotMapped
	}
	return mmap.Madvise(rf.buf, readahead)
}

// Mlock pins the region into physical memory.
func (rf *RegionFile) Mlock() error {
	rf.RLock()
	defer rf.RUnlock()

	if rf.buf == nil {
		return ErrNotMapped
	}
	return mmap.Mlock(rf.buf)
}

// Munlock releases pages pinned by Mlock.
func (rf *RegionFile) Munlock() error {
	rf.RLock()
	defer rf.RUnlock()

	if rf.buf == nil {
		return ErrNotMapped
	}
	return mmap.Munlock(rf.buf)
}

// Checksum returns the murmur3 hash of the whole region contents.
func (rf *RegionFile) Checksum() (uint64, error) {
	rf.RLock()
	defer rf.RUnlock()

	if rf.buf == nil {
		return 0, ErrNotMapped
	}
	return util.Sum64(rf.buf), nil
}

// Sync is an alias of Force kept for the ioselector idiom.
func (rf *RegionFile) Sync() error {
	return rf.Force()
}

// Close flushes and unmaps the region, then closes the backing file.
func (rf *RegionFile) Close() error {
	rf.Lock()
	defer rf.Unlock()

	if rf.buf == nil {
		return ErrNotMapped
	}
	if err := mmap.Msync(rf.buf); err != nil {
		return err
	}
	if err := mmap.Munmap(rf.buf); err != nil {
		return err
	}
	rf.buf = nil
	return rf.fd.Close()
}

// Delete unmaps the region and removes the backing file.
func (rf *RegionFile) Delete() error {
	rf.Lock()
	defer rf.Unlock()

	if rf.buf == nil {
		return ErrNotMapped
	}
	if err := mmap.Munmap(rf.buf); err != nil {
		return err
	}
	rf.buf = nil
	if err := rf.fd.Truncate(0); err != nil {
		return err
	}
	if err := rf.fd.Close(); err != nil {
		return err
	}
	return os.Remove(rf.fd.Name())
}
