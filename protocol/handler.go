package protocol

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"hitcounter/config"
	"hitcounter/info"
	"hitcounter/storage"
)

type Handler struct {
	opts   *config.Opts
	conn   *Connection
	cache  *storage.Cache
	server info.Server
	logger *log.Logger
}

func NewHandler(opts *config.Opts, conn *Connection, cache *storage.Cache, server info.Server, logger *log.Logger) *Handler {
	return &Handler{
		opts:   opts,
		conn:   conn,
		cache:  cache,
		server: server,
		logger: logger,
	}
}

// Handle serves one connection: read, validate, and process until the
// peer goes away.
func (h *Handler) Handle() {
	defer h.conn.Close()

	for {
		request, err := h.read()
		if err != nil {
			// EOF here is just the client hanging up.
			if !errors.Is(err, io.EOF) {
				h.logger.Printf("read failed: %v", err)
			}
			return
		}

		if err := h.processRequest(request); err != nil {
			h.logger.Printf("processRequest failed: %v", err)
			return
		}
	}
}

// read consumes one full request array from the connection.
func (h *Handler) read() ([]string, error) {
	token, err := h.conn.Read()
	if err != nil {
		return nil, fmt.Errorf("conn.Read(): %w", err)
	}

	// requests are always arrays of bulk strings
	num, err := ValidateArray(token)
	if err != nil {
		return nil, fmt.Errorf("ValidateArray(): %w", err)
	}

	requestArray := make([]string, 0, num)
	for i := 0; i < num; i++ {
		token, err := h.conn.Read()
		if err != nil {
			return nil, fmt.Errorf("h.conn.Read(): %w", err)
		}

		l, err := ValidateBulkString(token)
		if err != nil {
			return nil, fmt.Errorf("ValidateBulkString(): %w", err)
		}

		str, err := h.conn.Read()
		if err != nil {
			return nil, fmt.Errorf("h.conn.Read(): %w", err)
		}
		if l != len(str) {
			return nil, fmt.Errorf("bulk string length mismatch: %v != %v", l, len(str))
		}

		requestArray = append(requestArray, str)
	}

	return requestArray, nil
}

func (h *Handler) processRequest(requestArray []string) error {
	if len(requestArray) == 0 {
		return h.reply(NewError("empty request"))
	}

	cmd := strings.ToUpper(requestArray[0])

	switch cmd {

	case "PING":
		return h.reply(NewSimple("PONG"))

	case "ECHO":
		if len(requestArray) != 2 {
			return h.replyArity(cmd)
		}
		return h.reply(NewBulk(requestArray[1]))

	case "GET":
		if len(requestArray) != 2 {
			return h.replyArity(cmd)
		}
		return h.handleGet(requestArray[1])

	case "SET":
		if len(requestArray) < 3 {
			return h.replyArity(cmd)
		}
		return h.handleSet(requestArray[1], requestArray[2], requestArray[3:])

	case "INCR":
		if len(requestArray) != 2 {
			return h.replyArity(cmd)
		}
		return h.handleIncr(requestArray[1])

	case "DEL":
		if len(requestArray) < 2 {
			return h.replyArity(cmd)
		}
		return h.reply(NewInt(int64(h.cache.Del(requestArray[1:]...))))

	case "INFO":
		return h.handleInfo()

	case "SAVE":
		return h.handleSave()
	}

	return h.reply(NewError("unknown command '%s'", requestArray[0]))
}

func (h *Handler) handleGet(key string) error {
	if value := h.cache.Get(key); value != nil {
		return h.reply(NewBulk(*value))
	}
	return h.reply(NewNilBulk())
}

func (h *Handler) handleSet(key, value string, rest []string) error {
	options, err := BuildOptions(rest, OptionConfig{"PX": 1, "EX": 1})
	if err != nil {
		return h.reply(NewError("syntax error"))
	}

	var expireAfter int64

	if px, ok := options["PX"]; ok {
		// an expiry option without its value is malformed
		if len(px) != 1 {
			return h.reply(NewError("syntax error"))
		}
		millis, err := strconv.ParseInt(px[0], 10, 64)
		if err != nil {
			return h.reply(NewError("value is not an integer or out of range"))
		}
		expireAfter = millis
	}

	if ex, ok := options["EX"]; ok {
		if len(ex) != 1 {
			return h.reply(NewError("syntax error"))
		}
		secs, err := strconv.ParseInt(ex[0], 10, 64)
		if err != nil {
			return h.reply(NewError("value is not an integer or out of range"))
		}
		expireAfter = secs * 1000
	}

	h.cache.Set(key, value, expireAfter)
	return h.reply(NewSimple("OK"))
}

func (h *Handler) handleIncr(key string) error {
	n, err := h.cache.Incr(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotInteger) {
			return h.reply(NewError("value is not an integer or out of range"))
		}
		return fmt.Errorf("cache.Incr: %w", err)
	}
	return h.reply(NewInt(n))
}

func (h *Handler) handleInfo() error {
	i := info.Info{
		Server:   h.server,
		Keyspace: info.Keyspace{Keys: h.cache.Len()},
	}
	return h.reply(NewBulk(i.Render()))
}

func (h *Handler) handleSave() error {
	if err := storage.SaveSnapshot(h.opts.SnapshotPath(), h.cache); err != nil {
		h.logger.Printf("snapshot save failed: %v", err)
		return h.reply(NewError("snapshot save failed"))
	}
	return h.reply(NewSimple("OK"))
}

func (h *Handler) reply(m *Message) error {
	if err := h.conn.Write(m.Encode()); err != nil {
		return fmt.Errorf("write response failed: %w", err)
	}
	return nil
}

func (h *Handler) replyArity(cmd string) error {
	return h.reply(NewError("wrong number of arguments for '%s' command", strings.ToLower(cmd)))
}
