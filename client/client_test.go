package client

import (
	"context"
	"io"
	"log"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hitcounter/config"
	"hitcounter/info"
	"hitcounter/protocol"
	"hitcounter/storage"
)

// startServer runs a real cache server on a loopback port.
func startServer(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	serveOn(t, l)
	return l.Addr().String()
}

func serveOn(t *testing.T, l net.Listener) {
	t.Helper()

	port := l.Addr().(*net.TCPAddr).Port
	opts := &config.Opts{Port: port, Dir: t.TempDir(), DBFilename: "dump.rdb"}
	cache := storage.NewCache()
	server := info.Server{RunID: "test-run-id", Port: port, StartedAt: time.Now()}
	logger := log.New(io.Discard, "", 0)

	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			go protocol.NewHandler(opts, protocol.NewConnection(c), cache, server, logger).Handle()
		}
	}()
}

func TestClient_Operations(t *testing.T) {
	addr := startServer(t)
	ctx := context.Background()

	c := New(addr, 1, 0)
	defer c.Close()

	require.NoError(t, c.Ping(ctx))

	require.NoError(t, c.Set(ctx, "greeting", "hi", 0))

	got, err := c.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	n, err := c.Incr(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Incr(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestClient_GetMiss(t *testing.T) {
	addr := startServer(t)

	c := New(addr, 1, 0)
	defer c.Close()

	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNil)

	// the connection survives a nil reply
	assert.NoError(t, c.Ping(context.Background()))
}

func TestClient_ServerErrorNotRetried(t *testing.T) {
	addr := startServer(t)
	ctx := context.Background()

	c := New(addr, 5, 200*time.Millisecond)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "name", "joe", 0))

	start := time.Now()
	_, err := c.IncrWithRetry(ctx, "name")

	var srvErr *ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.Contains(t, srvErr.Msg, "not an integer")
	// a server error must fail fast, not burn the retry budget
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestClient_RetryExhausted(t *testing.T) {
	// grab a port nothing listens on
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	c := New(addr, 3, 20*time.Millisecond)
	defer c.Close()

	start := time.Now()
	_, err = c.IncrWithRetry(context.Background(), "hits")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 4 attempts")
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestClient_RetryBudget(t *testing.T) {
	// a listener that hangs up on every connection forces a fresh dial
	// per attempt, so accepted connections count the attempts
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	var accepted atomic.Int64
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			accepted.Add(1)
			c.Close()
		}
	}()

	c := New(l.Addr().String(), 2, 10*time.Millisecond)
	defer c.Close()

	_, err = c.IncrWithRetry(context.Background(), "hits")
	require.Error(t, err)

	// the initial attempt plus two retries
	assert.Equal(t, int64(3), accepted.Load())
}

func TestClient_RetryRecovers(t *testing.T) {
	// grab a port, then bring the server up only after the client has
	// started knocking
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	go func() {
		time.Sleep(80 * time.Millisecond)
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return
		}
		serveOn(t, l)
	}()

	c := New(addr, 10, 50*time.Millisecond)
	defer c.Close()

	n, err := c.IncrWithRetry(context.Background(), "hits")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestClient_RetryHonorsContext(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	c := New(addr, 100, 50*time.Millisecond)
	defer c.Close()

	_, err = c.IncrWithRetry(ctx, "hits")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
