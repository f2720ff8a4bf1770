package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

type MessageType int

const (
	None MessageType = iota
	Array
	Simple
	Bulk
	NilBulk
	Int
	Error
)

type Message struct {
	tokens []string
	typ    MessageType
	// cached wire form
	wire string
}

// NewArray returns a message which is an array of bulk strings. Requests
// are always sent in this form.
func NewArray(tokens []string) *Message {
	return &Message{
		tokens: tokens,
		typ:    Array,
	}
}

// NewSimple returns a simple string message such as +OK or +PONG.
func NewSimple(str string) *Message {
	return &Message{
		tokens: []string{str},
		typ:    Simple,
	}
}

// NewBulk returns a single bulk string message.
func NewBulk(str string) *Message {
	return &Message{
		tokens: []string{str},
		typ:    Bulk,
	}
}

// NewNilBulk returns the null bulk string message, the miss reply.
func NewNilBulk() *Message {
	return &Message{typ: NilBulk}
}

func NewInt(val int64) *Message {
	return &Message{
		tokens: []string{strconv.FormatInt(val, 10)},
		typ:    Int,
	}
}

// NewError returns an error message. The ERR prefix is added on encode.
func NewError(format string, args ...any) *Message {
	return &Message{
		tokens: []string{fmt.Sprintf(format, args...)},
		typ:    Error,
	}
}

// Encode renders the message in its wire format.
func (m *Message) Encode() string {
	if len(m.wire) > 0 {
		return m.wire
	}

	switch m.typ {
	case Array:
		bulks := make([]string, 0, len(m.tokens))
		for _, blk := range m.tokens {
			bulks = append(bulks, fmt.Sprintf("$%d\r\n%s", len(blk), blk))
		}
		m.wire = fmt.Sprintf("*%d\r\n%s\r\n", len(m.tokens), strings.Join(bulks, "\r\n"))
	case Simple:
		m.wire = fmt.Sprintf("+%s\r\n", m.tokens[0])
	case Bulk:
		m.wire = fmt.Sprintf("$%d\r\n%s\r\n", len(m.tokens[0]), m.tokens[0])
	case NilBulk:
		m.wire = "$-1\r\n"
	case Int:
		m.wire = fmt.Sprintf(":%s\r\n", m.tokens[0])
	case Error:
		m.wire = fmt.Sprintf("-ERR %s\r\n", m.tokens[0])
	}

	return m.wire
}
