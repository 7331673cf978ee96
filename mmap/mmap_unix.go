//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package mmap

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

func mmap(fd *os.File, writable bool, size int64) ([]byte, error) {
	fi, err := fd.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() < size {
		if err := fd.Truncate(size); err != nil {
			return nil, err
		}
	}

	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	return unix.Mmap(int(fd.Fd()), 0, int(size), prot, unix.MAP_SHARED)
}

func munmap(b []byte) error {
	return unix.Munmap(b)
}

func madvise(b []byte, readahead bool) error {
	advice := unix.MADV_SEQUENTIAL
	if !readahead {
		advice = unix.MADV_RANDOM
	}
	return unix.Madvise(b, advice)
}

func msync(b []byte) error {
	return unix.Msync(b, unix.MS_SYNC)
}

func mincore(b []byte) ([]byte, error) {
	pageSize := int64(os.Getpagesize())
	vec := make([]byte, (int64(len(b))+pageSize-1)/pageSize)
	if len(b) == 0 {
		return vec, nil
	}

	if ret, _, err := unix.Syscall(
		unix.SYS_MINCORE,
		uintptr(unsafe.Pointer(&b[0])),
		uintptr(len(b)),
		uintptr(unsafe.Pointer(&vec[0]))); ret != 0 {
		return nil, err
	}
	return vec, nil
}

func mlock(b []byte) error {
	return unix.Mlock(b)
}

func munlock(b []byte) error {
	return unix.Munlock(b)
}
