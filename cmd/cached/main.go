package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	"hitcounter/config"
	"hitcounter/info"
	"hitcounter/protocol"
	"hitcounter/storage"
)

func main() {
	var opts config.Opts

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	if err := opts.Validate(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	logger := log.New(os.Stdout, "cached: ", log.LstdFlags)

	cache := storage.NewCache()
	loadSnapshot(&opts, cache, logger)

	server, err := info.NewServer(opts.Port)
	if err != nil {
		logger.Fatalf("server info setup failed: %v", err)
	}

	if opts.SaveInterval > 0 {
		go saveLoop(&opts, cache, logger)
	}

	runServer(&opts, cache, server, logger)
}

func loadSnapshot(opts *config.Opts, cache *storage.Cache, logger *log.Logger) {
	path := opts.SnapshotPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return
	}

	if err := storage.LoadSnapshot(path, cache); err != nil {
		logger.Printf("snapshot load failed, starting empty: %v", err)
		cache.Reset()
		return
	}

	logger.Printf("loaded %d keys from %s", cache.Len(), path)
}

// saveLoop snapshots the keyspace on a fixed interval.
func saveLoop(opts *config.Opts, cache *storage.Cache, logger *log.Logger) {
	ticker := time.NewTicker(time.Duration(opts.SaveInterval) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if err := storage.SaveSnapshot(opts.SnapshotPath(), cache); err != nil {
			logger.Printf("background snapshot failed: %v", err)
		}
	}
}

func runServer(opts *config.Opts, cache *storage.Cache, server info.Server, logger *log.Logger) {
	l, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%v", opts.Port))
	if err != nil {
		logger.Fatalf("Failed to bind to port %v: %v", opts.Port, err)
	}

	logger.Printf("Listening on %s", l.Addr())

	for {
		c, err := l.Accept()
		if err != nil {
			logger.Fatalf("Error accepting connection: %v", err)
		}

		handler := protocol.NewHandler(
			opts,
			protocol.NewConnection(c),
			cache,
			server,
			logger,
		)

		go handler.Handle()
	}
}
