package ioselector

import (
	"errors"
	"os"
)

// ErrInvalidFsize invalid file size.
var ErrInvalidFsize = errors.New("fsize can`t be zero or negative")

// FilePerm default permission of the created files.
const FilePerm = 0644

// IOSelector io selector for fileio and mmap, used by the manifest file.
type IOSelector interface {
	// Write a slice to file at offset.
	// It returns the number of bytes written and an error, if any.
	Write(b []byte, offset int64) (int, error)

	// Read a slice from offset.
	// It returns the number of bytes read and an error, if any.
	Read(b []byte, offset int64) (int, error)

	// Sync commits the current contents of the file to stable storage.
	Sync() error

	// Close closes the file.
	Close() error

	// Delete deletes the file.
	Delete() error
}

// open the file and truncate it if necessary.
func openFile(fName string, fsize int64) (*os.File, error) {
	fd, err := os.OpenFile(fName, os.O_CREATE|os.O_RDWR, FilePerm)
	if err != nil {
		return nil, err
	}

	stat, err := fd.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() < fsize {
		if err := fd.Truncate(fsize); err != nil {
			return nil, err
		}
	}
	return fd, nil
}
