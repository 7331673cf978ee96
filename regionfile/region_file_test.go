package regionfile

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestRegion(t *testing.T, name string, size int64, pageSize int) (*RegionFile, string) {
	path, err := filepath.Abs(filepath.Join("/tmp", "regionfile-test"))
	assert.Nil(t, err)
	err = os.MkdirAll(path, os.ModePerm)
	assert.Nil(t, err)

	rf, err := Open(path, name, size, pageSize)
	assert.Nil(t, err)
	assert.NotNil(t, rf)
	return rf, path
}

func destroyRegion(rf *RegionFile, path string) {
	if rf != nil {
		_ = rf.Delete()
	}
	_ = os.RemoveAll(path)
}

func TestOpen(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		rf, path := newTestRegion(t, "warm-cache", 4*4096, os.Getpagesize())
		defer destroyRegion(rf, path)
		assert.Equal(t, int64(4*4096), rf.Size())
		assert.Equal(t, "warm-cache", rf.Name())
	})

	t.Run("invalid-name", func(t *testing.T) {
		_, err := Open("/tmp", "no/slashes", 4096, 4096)
		assert.Equal(t, ErrInvalidRegionName, err)
		_, err = Open("/tmp", "", 4096, 4096)
		assert.Equal(t, ErrInvalidRegionName, err)
	})

	t.Run("invalid-size", func(t *testing.T) {
		_, err := Open("/tmp", "r1", 0, 4096)
		assert.Equal(t, ErrInvalidRegionSize, err)
	})

	t.Run("invalid-page-size", func(t *testing.T) {
		_, err := Open("/tmp", "r1", 4096, 0)
		assert.Equal(t, ErrInvalidPageSize, err)
		_, err = Open("/tmp", "r1", 4096, -1)
		assert.Equal(t, ErrInvalidPageSize, err)
	})
}

func TestRegionFile_Pages(t *testing.T) {
	rf, path := newTestRegion(t, "pages", 9000, 4096)
	defer destroyRegion(rf, path)
	assert.Equal(t, 3, rf.Pages())
}

func TestRegionFile_ReadWriteAt(t *testing.T) {
	rf, path := newTestRegion(t, "rw", 4096, 4096)
	defer destroyRegion(rf, path)

	n, err := rf.WriteAt([]byte("touch me"), 100)
	assert.Nil(t, err)
	assert.Equal(t, 8, n)

	buf := make([]byte, 8)
	n, err = rf.ReadAt(buf, 100)
	assert.Nil(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte("touch me"), buf)

	_, err = rf.ReadAt(buf, 4090)
	assert.Equal(t, ErrOutOfRange, err)
	_, err = rf.WriteAt(buf, -1)
	assert.Equal(t, ErrOutOfRange, err)
}

func TestRegionFile_Load(t *testing.T) {
	rf, path := newTestRegion(t, "load", 9000, 4096)
	defer destroyRegion(rf, path)

	_, err := rf.WriteAt([]byte("payload"), 0)
	assert.Nil(t, err)
	before, err := rf.Checksum()
	assert.Nil(t, err)

	pages, err := rf.Load()
	assert.Nil(t, err)
	assert.Equal(t, 3, pages)

	// loading must not modify the region.
	after, err := rf.Checksum()
	assert.Nil(t, err)
	assert.Equal(t, before, after)
}

func TestRegionFile_LoadRange(t *testing.T) {
	rf, path := newTestRegion(t, "loadrange", 4*4096, 4096)
	defer destroyRegion(rf, path)

	pages, err := rf.LoadRange(4096, 2*4096)
	assert.Nil(t, err)
	assert.Equal(t, 2, pages)

	pages, err = rf.LoadRange(0, 0)
	assert.Nil(t, err)
	assert.Equal(t, 0, pages)

	_, err = rf.LoadRange(100, 4096)
	assert.Equal(t, ErrUnaligned, err)
	_, err = rf.LoadRange(0, 5*4096)
	assert.Equal(t, ErrOutOfRange, err)
}

func TestRegionFile_Residency(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mincore is not supported on windows")
	}

	rf, path := newTestRegion(t, "residency", 16*int64(os.Getpagesize()), os.Getpagesize())
	defer destroyRegion(rf, path)

	_, err := rf.Load()
	assert.Nil(t, err)

	res, err := rf.Residency()
	assert.Nil(t, err)
	assert.Equal(t, 16, res.Pages)
	assert.Equal(t, res.Pages, res.Resident)
	assert.Equal(t, float64(1), res.Ratio())

	loaded, err := rf.IsLoaded()
	assert.Nil(t, err)
	assert.True(t, loaded)

	_, err = rf.ResidencyRange(100, 4096)
	assert.Equal(t, ErrUnaligned, err)
}

func TestRegionFile_Force(t *testing.T) {
	pageSize := os.Getpagesize()
	rf, path := newTestRegion(t, "force", 4*int64(pageSize), pageSize)
	defer destroyRegion(rf, path)

	_, err := rf.WriteAt([]byte("dirty"), int64(pageSize))
	assert.Nil(t, err)
	assert.Nil(t, rf.Force())
	assert.Nil(t, rf.ForceRange(int64(pageSize), int64(pageSize)))
	assert.Equal(t, ErrUnaligned, rf.ForceRange(3, 100))

	// the flushed bytes must be visible through plain file io.
	buf := make([]byte, 5)
	fd, err := os.Open(FileName(path, "force"))
	assert.Nil(t, err)
	defer fd.Close()
	_, err = fd.ReadAt(buf, int64(pageSize))
	assert.Nil(t, err)
	assert.Equal(t, []byte("dirty"), buf)
}

func TestRegionFile_Close(t *testing.T) {
	rf, path := newTestRegion(t, "close", 4096, 4096)
	defer os.RemoveAll(path)

	assert.Nil(t, rf.Close())
	_, err := rf.Load()
	assert.Equal(t, ErrNotMapped, err)
	_, err = rf.ReadAt(make([]byte, 1), 0)
	assert.Equal(t, ErrNotMapped, err)
	assert.Equal(t, ErrNotMapped, rf.Force())
	assert.Equal(t, ErrNotMapped, rf.Close())
}
