package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/tidwall/redcon"

	"pagekeeper"
	"pagekeeper/logger"
)

var (
	errClientIsNil = errors.New("ERR client conn is nil")
)

var (
	defaultDirPath = filepath.Join("tmp", "pagekeeper")
	defaultHost    = "127.0.0.1"
	defaultPort    = "5300"
)

type Server struct {
	store  *pagekeeper.Store
	ser    *redcon.Server
	signal chan os.Signal
	opts   ServerOptions
	mu     *sync.RWMutex
}

type ServerOptions struct {
	dirPath  string
	host     string
	port     string
	preTouch bool
	lockMem  bool
}

func main() {
	// init server options
	serverOpts := new(ServerOptions)
	flag.StringVar(&serverOpts.dirPath, "dirpath", defaultDirPath, "store path")
	flag.StringVar(&serverOpts.host, "host", defaultHost, "server host")
	flag.StringVar(&serverOpts.port, "port", defaultPort, "server port")
	flag.BoolVar(&serverOpts.preTouch, "pretouch", false, "touch every region at startup")
	flag.BoolVar(&serverOpts.lockMem, "lockmem", false, "pin mapped regions with mlock")
	flag.Parse()

	opts := pagekeeper.DefaultOptions(serverOpts.dirPath)
	opts.PreTouch = serverOpts.preTouch
	opts.LockMemory = serverOpts.lockMem
	now := time.Now()
	store, err := pagekeeper.Open(opts)
	if err != nil {
		logger.Errorf("open store err, fail to start server. %v", err)
		return
	}
	logger.Infof("open store from [%s] successfully, time cost: %v", serverOpts.dirPath, time.Since(now))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// init and start server
	svr := &Server{store: store, signal: sig, opts: *serverOpts, mu: new(sync.RWMutex)}
	addr := svr.opts.host + ":" + svr.opts.port
	redServer := redcon.NewServerNetwork("tcp", addr, execClientCommand, svr.redconAccept,
		func(conn redcon.Conn, err error) {
		})
	svr.ser = redServer
	go svr.listen()
	<-svr.signal
	svr.stop()
}

func (svr *Server) listen() {
	logger.Infof("pagekeeper server is running, ready to accept connections")
	if err := svr.ser.ListenAndServe(); err != nil {
		logger.Fatalf("listen and serve err, fail to start. %v", err)
		return
	}
}

func (svr *Server) stop() {
	if err := svr.store.Close(); err != nil {
		logger.Errorf("close store err: %v", err)
	}
	if err := svr.ser.Close(); err != nil {
		logger.Errorf("close server err: %v", err)
	}
	logger.Infof("pagekeeper is ready to exit, bye bye...")
}

func (svr *Server) redconAccept(conn redcon.Conn) bool {
	cli := new(Client)
	cli.svr = svr
	cli.store = svr.store
	conn.SetContext(cli)
	return true
}
