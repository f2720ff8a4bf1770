// Package client is a minimal client for the cache server. It speaks
// the same wire format the protocol package serves and implements the
// web tier's retry policy around the hit counter increment.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"hitcounter/protocol"
)

// ErrNil is returned by Get when the key is absent or expired.
var ErrNil = errors.New("cache: nil reply")

// ServerError is an error the cache server itself replied with. It is
// never retried: the connection is healthy, the request is wrong.
type ServerError struct {
	Msg string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("cache server: %s", e.Msg)
}

type Client struct {
	addr       string
	retries    int
	retryDelay time.Duration

	mu   sync.Mutex
	conn *protocol.Connection
}

// New returns a client for the cache server at addr. The connection is
// dialed lazily on the first operation. retries and retryDelay only
// apply to IncrWithRetry: retries is the number of extra attempts made
// after the first one fails.
func New(addr string, retries int, retryDelay time.Duration) *Client {
	return &Client{
		addr:       addr,
		retries:    retries,
		retryDelay: retryDelay,
	}
}

// Close drops the connection if one is open.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Ping checks the server is reachable and answering.
func (c *Client) Ping(ctx context.Context) error {
	reply, err := c.do(ctx, "PING")
	if err != nil {
		return err
	}
	if reply != "PONG" {
		return fmt.Errorf("unexpected PING reply: %q", reply)
	}
	return nil
}

// Get fetches the value at key. A miss yields ErrNil.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.do(ctx, "GET", key)
}

// Set stores value at key. A zero ttl means no expiry.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	args := []string{"SET", key, value}
	if ttl > 0 {
		args = append(args, "PX", strconv.FormatInt(ttl.Milliseconds(), 10))
	}

	reply, err := c.do(ctx, args...)
	if err != nil {
		return err
	}
	if reply != "OK" {
		return fmt.Errorf("unexpected SET reply: %q", reply)
	}
	return nil
}

// Incr atomically increments the integer at key and returns the new value.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	reply, err := c.do(ctx, "INCR", key)
	if err != nil {
		return 0, err
	}

	n, err := strconv.ParseInt(reply, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected INCR reply %q: %w", reply, err)
	}
	return n, nil
}

// IncrWithRetry increments the integer at key. A connection failure is
// retried with a fixed delay up to the configured retry budget, so the
// initial attempt plus retries attempts happen in total. Errors the
// server replied with are propagated immediately; after the budget is
// spent the last error is propagated.
func (c *Client) IncrWithRetry(ctx context.Context, key string) (int64, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		n, err := c.Incr(ctx, key)
		if err == nil {
			return n, nil
		}

		var srvErr *ServerError
		if errors.As(err, &srvErr) {
			return 0, err
		}
		lastErr = err
	}

	return 0, fmt.Errorf("failed after %d attempts: %w", c.retries+1, lastErr)
}

// do sends one command and reads one reply. Any transport failure
// drops the connection so the next call redials.
func (c *Client) do(ctx context.Context, args ...string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		var d net.Dialer
		raw, err := d.DialContext(ctx, "tcp", c.addr)
		if err != nil {
			return "", fmt.Errorf("dial %s: %w", c.addr, err)
		}
		c.conn = protocol.NewConnection(raw)
	}

	reply, err := c.roundTrip(args)
	if err != nil {
		// A server error or a nil reply leaves the stream clean; only
		// transport failures force a redial.
		var srvErr *ServerError
		if !errors.As(err, &srvErr) && !errors.Is(err, ErrNil) {
			c.conn.Close()
			c.conn = nil
		}
		return "", err
	}
	return reply, nil
}

func (c *Client) roundTrip(args []string) (string, error) {
	if err := c.conn.Write(protocol.NewArray(args).Encode()); err != nil {
		return "", fmt.Errorf("write request: %w", err)
	}

	token, err := c.conn.Read()
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	if len(token) == 0 {
		return "", fmt.Errorf("empty reply token")
	}

	switch token[0] {
	case '+', ':':
		return token[1:], nil

	case '-':
		return "", &ServerError{Msg: token[1:]}

	case '$':
		l, err := protocol.ValidateBulkString(token)
		if err != nil {
			return "", fmt.Errorf("bad bulk header: %w", err)
		}
		if l < 0 {
			return "", ErrNil
		}

		body, err := c.conn.Read()
		if err != nil {
			return "", fmt.Errorf("read bulk body: %w", err)
		}
		if len(body) != l {
			return "", fmt.Errorf("bulk string length mismatch: %v != %v", l, len(body))
		}
		return body, nil
	}

	return "", fmt.Errorf("unexpected reply token %q", token)
}
