package regionfile

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"pagekeeper/util"
)

func TestTouchPages_PageCount(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		pageSize int
		pages    int
	}{
		{"empty", 0, 4096, 0},
		{"one-exact-page", 4096, 4096, 1},
		{"exact-multiple", 8192, 4096, 2},
		{"partial-tail", 9000, 4096, 3},
		{"single-byte", 1, 4096, 1},
		{"page-plus-one", 4097, 4096, 2},
		{"small-stride", 100, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, tt.length)
			_, pages := touchPages(buf, tt.pageSize)
			assert.Equal(t, tt.pages, pages)
		})
	}
}

func TestTouchPages_NeutralSum(t *testing.T) {
	sum, pages := touchPages(nil, 4096)
	assert.Equal(t, int32(0), sum)
	assert.Equal(t, 0, pages)
}

func TestTouchPages_VisitsEachPageOnce(t *testing.T) {
	// one marker byte at every page start, zeroes elsewhere: the sum
	// equals the page count only if each page start is read exactly once.
	const pageSize = 512
	buf := make([]byte, 16*pageSize+100)
	for off := 0; off < len(buf); off += pageSize {
		buf[off] = 1
	}

	sum, pages := touchPages(buf, pageSize)
	assert.Equal(t, 17, pages)
	assert.Equal(t, int32(17), sum)
}

func TestTouchPages_ReadOnly(t *testing.T) {
	buf := make([]byte, 9000)
	rand.Read(buf)

	before := util.Sum64(buf)
	_, pages := touchPages(buf, 4096)
	assert.Equal(t, 3, pages)
	assert.Equal(t, before, util.Sum64(buf))
}

func TestTouchPages_ShortFinalPage(t *testing.T) {
	// final page holds fewer than 4 bytes, the word is folded from
	// whatever remains.
	buf := make([]byte, 4098)
	buf[4096] = 0xff
	buf[4097] = 0x01

	sum, pages := touchPages(buf[4096:], 4096)
	assert.Equal(t, 1, pages)
	assert.Equal(t, int32(0x01ff), sum)
}
