package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"pagekeeper"
)

func newTestClient(t *testing.T) (*Client, func()) {
	path := filepath.Join("/tmp", "pagekeeper-cli")
	opts := pagekeeper.DefaultOptions(path)
	store, err := pagekeeper.Open(opts)
	assert.Nil(t, err)
	destroy := func() {
		_ = store.Close()
		_ = os.RemoveAll(path)
	}
	return &Client{store: store}, destroy
}

func TestReadCommand(t *testing.T) {
	cli, destroy := newTestClient(t)
	defer destroy()

	_, err := cli.store.Map("r", 4096, 0)
	assert.Nil(t, err)
	_, err = cli.store.Write("r", []byte("abc"), 0)
	assert.Nil(t, err)

	res, err := read(cli, [][]byte{[]byte("r"), []byte("0"), []byte("3")})
	assert.Nil(t, err)
	assert.Equal(t, []byte("abc"), res)
}

func TestReadCommand_LengthValidation(t *testing.T) {
	cli, destroy := newTestClient(t)
	defer destroy()

	_, err := cli.store.Map("r", 4096, 0)
	assert.Nil(t, err)

	// a malformed length must come back as an error, never a panic,
	// the handler runs on the connection goroutine.
	assert.NotPanics(t, func() {
		_, err := read(cli, [][]byte{[]byte("r"), []byte("0"), []byte("-1")})
		assert.NotNil(t, err)
	})

	_, err = read(cli, [][]byte{[]byte("r"), []byte("0"), []byte("0")})
	assert.NotNil(t, err)

	// larger than the region, reject before allocating.
	_, err = read(cli, [][]byte{[]byte("r"), []byte("0"), []byte("1099511627776")})
	assert.NotNil(t, err)

	_, err = read(cli, [][]byte{[]byte("r"), []byte("zero"), []byte("3")})
	assert.NotNil(t, err)
}
