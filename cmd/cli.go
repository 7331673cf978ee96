package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/redcon"

	"pagekeeper"
	"pagekeeper/regionfile"
	"pagekeeper/util"
)

type cmdHandler func(cli *Client, args [][]byte) (interface{}, error)

var supportedCommands = map[string]cmdHandler{
	// region lifecycle commands
	"map":    mapRegion,
	"unmap":  unmapRegion,
	"remove": removeRegion,

	// page commands
	"load":       load,
	"loadrange":  loadRange,
	"isloaded":   isLoaded,
	"residency":  residency,
	"force":      force,
	"forcerange": forceRange,
	"mlock":      mlockRegion,
	"munlock":    munlockRegion,
	"advise":     advise,

	// data commands
	"read":     read,
	"write":    write,
	"checksum": checksum,

	// server management commands
	"regions": regions,
	"stat":    stat,
	"sync":    syncStore,
	"info":    info,
	"ping":    ping,
	"quit":    nil,
}

type Client struct {
	svr   *Server
	store *pagekeeper.Store
}

func execClientCommand(conn redcon.Conn, cmd redcon.Command) {
	command := strings.ToLower(string(cmd.Args[0]))
	cmdFunc, ok := supportedCommands[command]
	if !ok {
		conn.WriteError("ERR unsupported command '" + string(cmd.Args[0]) + "'")
		return
	}

	cli, _ := conn.Context().(*Client)
	if cli == nil {
		conn.WriteError(errClientIsNil.Error())
		return
	}
	switch command {
	case "quit":
		_ = conn.Close()
	default:
		if res, err := cmdFunc(cli, cmd.Args[1:]); err != nil {
			if err == pagekeeper.ErrRegionNotFound {
				conn.WriteNull()
			} else {
				conn.WriteError(err.Error())
			}
		} else {
			conn.WriteAny(res)
		}
	}
}

func newWrongNumOfArgsError(cmd string) error {
	return fmt.Errorf("ERR wrong number of arguments for '%s' command", cmd)
}

// +-------------------+
// | region lifecycle  |
// +-------------------+

func mapRegion(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, newWrongNumOfArgsError("map")
	}
	size, err := util.StrToInt64(string(args[1]))
	if err != nil {
		return nil, err
	}
	var pageSize int
	if len(args) == 3 {
		if pageSize, err = util.StrToInt(string(args[2])); err != nil {
			return nil, err
		}
	}
	if _, err := cli.store.Map(string(args[0]), size, pageSize); err != nil {
		return nil, err
	}
	return redcon.SimpleString("OK"), nil
}

func unmapRegion(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 1 {
		return nil, newWrongNumOfArgsError("unmap")
	}
	if err := cli.store.Unmap(string(args[0])); err != nil {
		return nil, err
	}
	return redcon.SimpleString("OK"), nil
}

func removeRegion(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 1 {
		return nil, newWrongNumOfArgsError("remove")
	}
	if err := cli.store.Remove(string(args[0])); err != nil {
		return nil, err
	}
	return redcon.SimpleString("OK"), nil
}

// +-------------------+
// |   page commands   |
// +-------------------+

func load(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 1 {
		return nil, newWrongNumOfArgsError("load")
	}
	rf, err := cli.store.Get(string(args[0]))
	if err != nil {
		return nil, err
	}
	return rf.Load()
}

func loadRange(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 3 {
		return nil, newWrongNumOfArgsError("loadrange")
	}
	rf, err := cli.store.Get(string(args[0]))
	if err != nil {
		return nil, err
	}
	off, err := util.StrToInt64(string(args[1]))
	if err != nil {
		return nil, err
	}
	length, err := util.StrToInt64(string(args[2]))
	if err != nil {
		return nil, err
	}
	return rf.LoadRange(off, length)
}

func isLoaded(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 1 {
		return nil, newWrongNumOfArgsError("isloaded")
	}
	rf, err := cli.store.Get(string(args[0]))
	if err != nil {
		return nil, err
	}
	loaded, err := rf.IsLoaded()
	if err != nil {
		return nil, err
	}
	if loaded {
		return redcon.SimpleInt(1), nil
	}
	return redcon.SimpleInt(0), nil
}

func residency(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 1 && len(args) != 3 {
		return nil, newWrongNumOfArgsError("residency")
	}
	rf, err := cli.store.Get(string(args[0]))
	if err != nil {
		return nil, err
	}

	var res regionfile.Residency
	if len(args) == 3 {
		off, err := util.StrToInt64(string(args[1]))
		if err != nil {
			return nil, err
		}
		length, err := util.StrToInt64(string(args[2]))
		if err != nil {
			return nil, err
		}
		res, err = rf.ResidencyRange(off, length)
		if err != nil {
			return nil, err
		}
	} else {
		res, err = rf.Residency()
		if err != nil {
			return nil, err
		}
	}
	return fmt.Sprintf("pages=%d resident=%d ratio=%.2f",
		res.Pages, res.Resident, res.Ratio()), nil
}

func force(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 1 {
		return nil, newWrongNumOfArgsError("force")
	}
	rf, err := cli.store.Get(string(args[0]))
	if err != nil {
		return nil, err
	}
	if err := rf.Force(); err != nil {
		return nil, err
	}
	return redcon.SimpleString("OK"), nil
}

func forceRange(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 3 {
		return nil, newWrongNumOfArgsError("forcerange")
	}
	rf, err := cli.store.Get(string(args[0]))
	if err != nil {
		return nil, err
	}
	off, err := util.StrToInt64(string(args[1]))
	if err != nil {
		return nil, err
	}
	length, err := util.StrToInt64(string(args[2]))
	if err != nil {
		return nil, err
	}
	if err := rf.ForceRange(off, length); err != nil {
		return nil, err
	}
	return redcon.SimpleString("OK"), nil
}

func mlockRegion(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 1 {
		return nil, newWrongNumOfArgsError("mlock")
	}
	rf, err := cli.store.Get(string(args[0]))
	if err != nil {
		return nil, err
	}
	if err := rf.Mlock(); err != nil {
		return nil, err
	}
	return redcon.SimpleString("OK"), nil
}

func munlockRegion(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 1 {
		return nil, newWrongNumOfArgsError("munlock")
	}
	rf, err := cli.store.Get(string(args[0]))
	if err != nil {
		return nil, err
	}
	if err := rf.Munlock(); err != nil {
		return nil, err
	}
	return redcon.SimpleString("OK"), nil
}

func advise(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 2 {
		return nil, newWrongNumOfArgsError("advise")
	}
	rf, err := cli.store.Get(string(args[0]))
	if err != nil {
		return nil, err
	}
	var readahead bool
	switch strings.ToLower(string(args[1])) {
	case "sequential":
		readahead = true
	case "random":
		readahead = false
	default:
		return nil, errors.New("ERR advise mode must be sequential or random")
	}
	if err := rf.Advise(readahead); err != nil {
		return nil, err
	}
	return redcon.SimpleString("OK"), nil
}

// +-------------------+
// |   data commands   |
// +-------------------+

func read(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 3 {
		return nil, newWrongNumOfArgsError("read")
	}
	rf, err := cli.store.Get(string(args[0]))
	if err != nil {
		return nil, err
	}
	off, err := util.StrToInt64(string(args[1]))
	if err != nil {
		return nil, err
	}
	length, err := util.StrToInt64(string(args[2]))
	if err != nil {
		return nil, err
	}
	// the length comes off the wire, check it before allocating.
	if length <= 0 || length > rf.Size() {
		return nil, errors.New("ERR length out of range")
	}
	buf := make([]byte, length)
	if _, err := rf.ReadAt(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}

func write(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 3 {
		return nil, newWrongNumOfArgsError("write")
	}
	off, err := util.StrToInt64(string(args[1]))
	if err != nil {
		return nil, err
	}
	return cli.store.Write(string(args[0]), args[2], off)
}

func checksum(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 1 {
		return nil, newWrongNumOfArgsError("checksum")
	}
	rf, err := cli.store.Get(string(args[0]))
	if err != nil {
		return nil, err
	}
	sum, err := rf.Checksum()
	if err != nil {
		return nil, err
	}
	return strconv.FormatUint(sum, 16), nil
}

// +-------------------+
// | server management |
// +-------------------+

func regions(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) > 2 {
		return nil, newWrongNumOfArgsError("regions")
	}
	var prefix string
	count := -1
	if len(args) > 0 {
		prefix = string(args[0])
	}
	if len(args) == 2 {
		c, err := util.StrToInt(string(args[1]))
		if err != nil {
			return nil, err
		}
		count = c
	}
	return cli.store.Names(prefix, count), nil
}

func stat(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 1 {
		return nil, newWrongNumOfArgsError("stat")
	}
	st, err := cli.store.Stat(string(args[0]))
	if err != nil {
		return nil, err
	}
	return []string{
		fmt.Sprintf("name=%s", st.Name),
		fmt.Sprintf("size=%d", st.Size),
		fmt.Sprintf("page_size=%d", st.PageSize),
		fmt.Sprintf("pages=%d", st.Pages),
		fmt.Sprintf("resident=%d", st.Resident),
	}, nil
}

func syncStore(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 0 {
		return nil, newWrongNumOfArgsError("sync")
	}
	if err := cli.store.Sync(); err != nil {
		return nil, err
	}
	return redcon.SimpleString("OK"), nil
}

func info(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 0 {
		return nil, newWrongNumOfArgsError("info")
	}
	in := cli.store.Info()
	return fmt.Sprintf("dir=%s regions=%d mapped_bytes=%d",
		in.DirPath, in.Regions, in.MappedBytes), nil
}

func ping(cli *Client, args [][]byte) (interface{}, error) {
	if len(args) != 0 {
		return nil, newWrongNumOfArgsError("ping")
	}
	return redcon.SimpleString("PONG"), nil
}
