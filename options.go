package pagekeeper

import "time"

// IOType io type of the manifest file.
type IOType int8

const (
	// FileIO standard file io.
	FileIO IOType = iota
	// MMap memory map.
	MMap
)

type Options struct {
	// DirPath directory holding the region files and the manifest.
	DirPath string

	// DefaultPageSize touch stride for newly mapped regions, in bytes.
	// Zero means the OS page size.
	DefaultPageSize int

	// IoType io type of the manifest file backing.
	IoType IOType

	// Sync forces a region to storage after every store-level write.
	Sync bool

	// SyncInterval period of the background flush of all mapped
	// regions. Zero disables it.
	SyncInterval time.Duration

	// PreTouch loads every region when it is mapped or reopened, so
	// the whole store is resident up front.
	PreTouch bool

	// LockMemory pins mapped regions with mlock. Pinning failures are
	// logged and ignored, RLIMIT_MEMLOCK is usually tight.
	LockMemory bool
}

// DefaultOptions default options for opening a store.
func DefaultOptions(path string) Options {
	return Options{
		DirPath:         path,
		DefaultPageSize: 0,
		IoType:          MMap,
		Sync:            false,
		SyncInterval:    time.Minute * 5,
		PreTouch:        false,
		LockMemory:      false,
	}
}
