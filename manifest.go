package pagekeeper

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"path/filepath"
	"sync"

	"pagekeeper/ioselector"
	"pagekeeper/logger"
	"pagekeeper/util"
)

const (
	// manifest record: id(4) + size(8) + pageSize(4) + name(64)
	manifestRecordSize = 80
	manifestNameSize   = 64
	// 8kb, 102 records.
	manifestFileSize int64 = 2 << 12
	manifestFileName       = "MANIFEST"
)

var (
	// ErrManifestNoSpace no free record slot left in the manifest file.
	ErrManifestNoSpace = errors.New("not enough space can be allocated for the manifest file")
	// ErrManifestBadName region name does not fit a manifest record.
	ErrManifestBadName = errors.New("region name does not fit a manifest record")
)

// manifest persists per-region metadata the backing file alone cannot
// carry, the page size above all. Fixed-size records, a free list of
// zeroed slots and a name->offset map are rebuilt by scanning the file
// on open. Records are keyed by the full region name, the murmur3 id
// is only a self check against torn or corrupted slots.
//
// manifest record:
// +--------+--------------+-------------+----------------+
// |   id   |  region size |  page size  |  region name   |
// +--------+--------------+-------------+----------------+
// 0--------4-------------12------------16----------------80
type manifest struct {
	sync.Mutex
	file     ioselector.IOSelector
	freeList []int64          // offsets of unallocated records
	location map[string]int64 // region name -> record offset
}

type manifestRecord struct {
	name     string
	size     int64
	pageSize uint32
}

func encodeManifestRecord(rec manifestRecord) []byte {
	buf := make([]byte, manifestRecordSize)
	binary.LittleEndian.PutUint32(buf[:4], util.Hash32([]byte(rec.name)))
	binary.LittleEndian.PutUint64(buf[4:12], uint64(rec.size))
	binary.LittleEndian.PutUint32(buf[12:16], rec.pageSize)
	copy(buf[16:], rec.name)
	return buf
}

func decodeManifestRecord(buf []byte) (manifestRecord, bool) {
	name := string(bytes.TrimRight(buf[16:], "\x00"))
	rec := manifestRecord{
		name:     name,
		size:     int64(binary.LittleEndian.Uint64(buf[4:12])),
		pageSize: binary.LittleEndian.Uint32(buf[12:16]),
	}
	ok := util.Hash32([]byte(name)) == binary.LittleEndian.Uint32(buf[:4])
	return rec, ok
}

func openManifest(path string, ioType IOType) (*manifest, error) {
	fname := filepath.Join(path, manifestFileName)
	var file ioselector.IOSelector
	var err error
	switch ioType {
	case FileIO:
		file, err = ioselector.NewFileIOSelector(fname, manifestFileSize)
	default:
		file, err = ioselector.NewMMapSelector(fname, manifestFileSize)
	}
	if err != nil {
		return nil, err
	}

	var freeList []int64
	var offset int64
	location := make(map[string]int64)
	for {
		buf := make([]byte, manifestRecordSize)
		if _, err := file.Read(buf, offset); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		rec, ok := decodeManifestRecord(buf)
		switch {
		case rec.name == "" && rec.size == 0:
			freeList = append(freeList, offset)
		case rec.name == "" || !ok:
			logger.Warnf("reclaim corrupted manifest record at offset %d", offset)
			freeList = append(freeList, offset)
		default:
			location[rec.name] = offset
		}
		offset += manifestRecordSize
	}

	return &manifest{
		file:     file,
		freeList: freeList,
		location: location,
	}, nil
}

// put records or updates a region's metadata.
func (m *manifest) put(rec manifestRecord) error {
	if rec.name == "" || len(rec.name) > manifestNameSize {
		return ErrManifestBadName
	}

	m.Lock()
	defer m.Unlock()

	offset, err := m.alloc(rec.name)
	if err != nil {
		return err
	}
	_, err = m.file.Write(encodeManifestRecord(rec), offset)
	return err
}

// get looks a region's metadata up by name.
func (m *manifest) get(name string) (manifestRecord, bool) {
	m.Lock()
	defer m.Unlock()

	offset, ok := m.location[name]
	if !ok {
		return manifestRecord{}, false
	}
	buf := make([]byte, manifestRecordSize)
	if _, err := m.file.Read(buf, offset); err != nil {
		return manifestRecord{}, false
	}
	rec, ok := decodeManifestRecord(buf)
	if !ok || rec.name != name {
		return manifestRecord{}, false
	}
	return rec, true
}

// remove zeroes a region's record and returns its slot to the free list.
func (m *manifest) remove(name string) error {
	m.Lock()
	defer m.Unlock()

	offset, ok := m.location[name]
	if !ok {
		return nil
	}
	buf := make([]byte, manifestRecordSize)
	if _, err := m.file.Write(buf, offset); err != nil {
		return err
	}
	m.freeList = append(m.freeList, offset)
	delete(m.location, name)
	return nil
}

// alloc must be called with the lock held.
func (m *manifest) alloc(name string) (int64, error) {
	if offset, ok := m.location[name]; ok {
		return offset, nil
	}
	if len(m.freeList) == 0 {
		return 0, ErrManifestNoSpace
	}

	offset := m.freeList[len(m.freeList)-1]
	m.freeList = m.freeList[:len(m.freeList)-1]
	m.location[name] = offset
	return offset, nil
}

func (m *manifest) sync() error {
	return m.file.Sync()
}

func (m *manifest) close() error {
	return m.file.Close()
}
