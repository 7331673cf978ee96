package util

import "github.com/spaolacci/murmur3"

// Hash32 returns the murmur3 32-bit hash of buf, used as the manifest
// record self check.
func Hash32(buf []byte) uint32 {
	return murmur3.Sum32(buf)
}

// Sum64 returns the murmur3 64-bit hash of buf, used as a region
// content checksum.
func Sum64(buf []byte) uint64 {
	return murmur3.Sum64(buf)
}
