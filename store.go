package pagekeeper

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pagekeeper/ds/art"
	"pagekeeper/flock"
	"pagekeeper/logger"
	"pagekeeper/mmap"
	"pagekeeper/regionfile"
)

var (
	// ErrRegionNotFound no mapped region with that name.
	ErrRegionNotFound = errors.New("region not found")
	// ErrStoreClosed operation on a closed store.
	ErrStoreClosed = errors.New("store is closed")
)

const lockFileName = "FLOCK"

// Store manages the named memory-mapped regions inside one directory.
// Region files are named `region.<name>`, their page sizes live in the
// manifest, and the directory is guarded by a file lock so two stores
// never fight over the same mappings.
type Store struct {
	mu       sync.RWMutex
	index    *art.AdaptiveRadixTree // region name -> *regionfile.RegionFile
	opts     Options
	manifest *manifest
	fileLock *flock.FileLockGuard
	closed   uint32
	quit     chan struct{}
}

// RegionStat a point-in-time view of one region.
type RegionStat struct {
	Name     string
	Size     int64
	PageSize int
	Pages    int
	Resident int // -1 when residency is unsupported
}

// Open opens a store, reopening every region file already present in
// the directory.
func Open(opts Options) (*Store, error) {
	if err := os.MkdirAll(opts.DirPath, os.ModePerm); err != nil {
		return nil, err
	}

	// acquire the directory lock.
	lockPath := filepath.Join(opts.DirPath, lockFileName)
	lockGuard, err := flock.AcquireFileLock(lockPath, false)
	if err != nil {
		return nil, err
	}

	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = os.Getpagesize()
	}

	m, err := openManifest(opts.DirPath, opts.IoType)
	if err != nil {
		_ = lockGuard.Release()
		return nil, err
	}

	store := &Store{
		index:    art.NewArt(),
		opts:     opts,
		manifest: m,
		fileLock: lockGuard,
		quit:     make(chan struct{}),
	}

	if err := store.loadRegions(); err != nil {
		// unwind whatever got mapped, the lock must not outlive a
		// failed open.
		for _, name := range store.index.PrefixScan(nil, store.index.Size()) {
			if v := store.index.Get(name); v != nil {
				_ = v.(*regionfile.RegionFile).Close()
			}
		}
		_ = m.close()
		_ = lockGuard.Release()
		return nil, err
	}

	if opts.SyncInterval > 0 {
		go store.handleSyncLoop()
	}
	return store, nil
}

// loadRegions rescans the directory and maps every region file it
// finds, restoring each region's page size from the manifest.
func (s *Store) loadRegions() error {
	entries, err := os.ReadDir(s.opts.DirPath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), regionfile.FilePrefix) {
			continue
		}
		name := strings.TrimPrefix(entry.Name(), regionfile.FilePrefix)
		if !regionfile.ValidName(name) {
			logger.Warnf("skip region file with invalid name: %s", entry.Name())
			continue
		}

		size, pageSize := int64(0), s.opts.DefaultPageSize
		if rec, ok := s.manifest.get(name); ok {
			size, pageSize = rec.size, int(rec.pageSize)
		}
		if size <= 0 {
			info, err := entry.Info()
			if err != nil {
				return err
			}
			size = info.Size()
		}

		rf, err := regionfile.Open(s.opts.DirPath, name, size, pageSize)
		if err != nil {
			return err
		}
		s.afterMap(rf)
		s.index.Put([]byte(name), rf)
	}
	return nil
}

// afterMap applies the store-wide mapping options to a fresh region.
func (s *Store) afterMap(rf *regionfile.RegionFile) {
	if s.opts.LockMemory {
		if err := rf.Mlock(); err != nil {
			logger.Warnf("mlock region %s err: %v", rf.Name(), err)
		}
	}
	if s.opts.PreTouch {
		if pages, err := rf.Load(); err != nil {
			logger.Errorf("pre-touch region %s err: %v", rf.Name(), err)
		} else {
			logger.Debugf("pre-touched region %s, %d pages", rf.Name(), pages)
		}
	}
}

// Map creates or opens a region of the given size. pageSize zero means
// the store default. Mapping an already mapped name returns the
// existing region untouched.
func (s *Store) Map(name string, size int64, pageSize int) (*regionfile.RegionFile, error) {
	if atomic.LoadUint32(&s.closed) == 1 {
		return nil, ErrStoreClosed
	}
	if pageSize <= 0 {
		pageSize = s.opts.DefaultPageSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v := s.index.Get([]byte(name)); v != nil {
		return v.(*regionfile.RegionFile), nil
	}

	rf, err := regionfile.Open(s.opts.DirPath, name, size, pageSize)
	if err != nil {
		return nil, err
	}
	rec := manifestRecord{name: name, size: rf.Size(), pageSize: uint32(pageSize)}
	if err := s.manifest.put(rec); err != nil {
		_ = rf.Close()
		return nil, err
	}
	if err := flock.SyncDir(s.opts.DirPath); err != nil {
		logger.Warnf("sync dir err: %v", err)
	}

	s.afterMap(rf)
	s.index.Put([]byte(name), rf)
	return rf, nil
}

// Get returns a mapped region by name.
func (s *Store) Get(name string) (*regionfile.RegionFile, error) {
	if atomic.LoadUint32(&s.closed) == 1 {
		return nil, ErrStoreClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.index.Get([]byte(name))
	if v == nil {
		return nil, ErrRegionNotFound
	}
	return v.(*regionfile.RegionFile), nil
}

// Unmap flushes and unmaps a region, the backing file stays on disk
// and is remapped on the next Open or Map.
func (s *Store) Unmap(name string) error {
	if atomic.LoadUint32(&s.closed) == 1 {
		return ErrStoreClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, _ := s.index.Delete([]byte(name))
	if v == nil {
		return ErrRegionNotFound
	}
	return v.(*regionfile.RegionFile).Close()
}

// Remove unmaps a region and deletes its backing file and manifest
// record.
func (s *Store) Remove(name string) error {
	if atomic.LoadUint32(&s.closed) == 1 {
		return ErrStoreClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, _ := s.index.Delete([]byte(name))
	if v == nil {
		return ErrRegionNotFound
	}
	if err := v.(*regionfile.RegionFile).Delete(); err != nil {
		return err
	}
	return s.manifest.remove(name)
}

// Names returns at most count region names with the given prefix, all
// of them when count is negative.
func (s *Store) Names(prefix string, count int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if count < 0 {
		count = s.index.Size()
	}
	keys := s.index.PrefixScan([]byte(prefix), count)
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, string(k))
	}
	return names
}

// Stat returns a snapshot of one region.
func (s *Store) Stat(name string) (RegionStat, error) {
	rf, err := s.Get(name)
	if err != nil {
		return RegionStat{}, err
	}

	stat := RegionStat{
		Name:     rf.Name(),
		Size:     rf.Size(),
		PageSize: rf.PageSize(),
		Pages:    rf.Pages(),
		Resident: -1,
	}
	res, err := rf.Residency()
	if err == nil {
		stat.Resident = res.Resident
	} else if err != mmap.ErrUnsupported {
		return RegionStat{}, err
	}
	return stat, nil
}

// StoreInfo store-wide counters for the INFO command.
type StoreInfo struct {
	DirPath     string
	Regions     int
	MappedBytes int64
}

// Info returns store-wide counters.
func (s *Store) Info() StoreInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := StoreInfo{DirPath: s.opts.DirPath, Regions: s.index.Size()}
	for _, name := range s.index.PrefixScan(nil, s.index.Size()) {
		if v := s.index.Get(name); v != nil {
			info.MappedBytes += v.(*regionfile.RegionFile).Size()
		}
	}
	return info
}

// Write copies b into the named region at offset, forcing the range to
// storage when the Sync option is set.
func (s *Store) Write(name string, b []byte, off int64) (int, error) {
	rf, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	n, err := rf.WriteAt(b, off)
	if err != nil {
		return n, err
	}
	if s.opts.Sync {
		if err := rf.Force(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Read copies bytes of the named region at offset into b.
func (s *Store) Read(name string, b []byte, off int64) (int, error) {
	rf, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	return rf.ReadAt(b, off)
}

// Sync forces every mapped region and the manifest to storage.
func (s *Store) Sync() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// closed is set before Close takes the lock, so a late ticker
	// cannot flush a closed manifest.
	if atomic.LoadUint32(&s.closed) == 1 {
		return ErrStoreClosed
	}

	for _, name := range s.index.PrefixScan(nil, s.index.Size()) {
		if v := s.index.Get(name); v != nil {
			if err := v.(*regionfile.RegionFile).Force(); err != nil {
				return err
			}
		}
	}
	return s.manifest.sync()
}

// handleSyncLoop periodically flushes all regions in the background.
func (s *Store) handleSyncLoop() {
	ticker := time.NewTicker(s.opts.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Sync(); err != nil {
				logger.Errorf("background sync err: %v", err)
			}
		case <-s.quit:
			return
		}
	}
}

// Close unmaps every region, closes the manifest and releases the
// directory lock.
func (s *Store) Close() error {
	if !atomic.CompareAndSwapUint32(&s.closed, 0, 1) {
		return ErrStoreClosed
	}
	close(s.quit)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range s.index.PrefixScan(nil, s.index.Size()) {
		if v := s.index.Get(name); v != nil {
			if err := v.(*regionfile.RegionFile).Close(); err != nil {
				logger.Errorf("close region %s err: %v", string(name), err)
			}
		}
	}
	if err := s.manifest.close(); err != nil {
		logger.Errorf("close manifest err: %v", err)
	}
	if s.fileLock != nil {
		if err := s.fileLock.Release(); err != nil {
			return err
		}
	}
	return nil
}
