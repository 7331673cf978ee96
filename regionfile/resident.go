package regionfile

import (
	"os"

	"github.com/bits-and-blooms/bitset"

	"pagekeeper/mmap"
)

// Residency describes which pages of a range currently occupy physical
// memory. Granularity is the OS page size, mincore knows nothing about
// the region's touch stride.
type Residency struct {
	Pages    int // pages in the inspected range
	Resident int // pages currently in physical memory
	Vec      *bitset.BitSet
}

// Ratio returns the resident fraction, 0 for an empty range.
func (r Residency) Ratio() float64 {
	if r.Pages == 0 {
		return 0
	}
	return float64(r.Resident) / float64(r.Pages)
}

func residencyOf(b []byte) (Residency, error) {
	vec, err := mmap.Mincore(b)
	if err != nil {
		return Residency{}, err
	}

	res := Residency{
		Pages: len(vec),
		Vec:   bitset.New(uint(len(vec))),
	}
	for i, v := range vec {
		if v&1 == 1 {
			res.Resident++
			res.Vec.Set(uint(i))
		}
	}
	return res, nil
}

// Residency inspects the whole region.
func (rf *RegionFile) Residency() (Residency, error) {
	rf.RLock()
	defer rf.RUnlock()

	if rf.buf == nil {
		return Residency{}, ErrNotMapped
	}
	return residencyOf(rf.buf)
}

// ResidencyRange inspects a sub-range, the offset must be aligned to
// the OS page size.
func (rf *RegionFile) ResidencyRange(off, length int64) (Residency, error) {
	rf.RLock()
	defer rf.RUnlock()

	if err := rf.checkRange(off, length, os.Getpagesize()); err != nil {
		return Residency{}, err
	}
	return residencyOf(rf.buf[off : off+length])
}

// IsLoaded reports whether every page of the region is resident.
func (rf *RegionFile) IsLoaded() (bool, error) {
	res, err := rf.Residency()
	if err != nil {
		return false, err
	}
	return res.Resident == res.Pages, nil
}
