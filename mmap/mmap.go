package mmap

import (
	"errors"
	"os"
)

// ErrUnsupported is returned for operations the platform has no
// equivalent for, such as mincore on windows.
var ErrUnsupported = errors.New("mmap: operation not supported on this platform")

// Mmap maps the file into memory and returns the mapped byte slice.
// The file is grown to size first if it is smaller.
func Mmap(fd *os.File, writable bool, size int64) ([]byte, error) {
	return mmap(fd, writable, size)
}

// Munmap unmaps a slice previously returned by Mmap.
func Munmap(b []byte) error {
	return munmap(b)
}

// Madvise hints the kernel about the expected access pattern,
// sequential readahead or random.
func Madvise(b []byte, readahead bool) error {
	return madvise(b, readahead)
}

// Msync flushes modified pages of the mapping to the backing file.
func Msync(b []byte) error {
	return msync(b)
}

// Mincore returns one byte per page of the mapping, bit 0 of each byte
// set if the page is resident in physical memory.
func Mincore(b []byte) ([]byte, error) {
	return mincore(b)
}

// Mlock pins the pages of the mapping into physical memory.
func Mlock(b []byte) error {
	return mlock(b)
}

// Munlock releases pages pinned by Mlock.
func Munlock(b []byte) error {
	return munlock(b)
}
