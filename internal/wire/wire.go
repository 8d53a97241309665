// Package wire frames newline-delimited JSON messages over a byte stream,
// typically the stdin/stdout pipes of a model runner process.
//
// Wire format:
//
//	<json>\n
package wire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"

	"go.klb.dev/cliplingo/internal/message"
)

// MaxMessageSize is the largest message we will read (4 MiB).
const MaxMessageSize = 4 * 1024 * 1024

// Conn reads and writes framed messages. Reads and writes may run on
// different goroutines; concurrent writers are serialized.
type Conn struct {
	r *bufio.Reader
	w io.Writer
	c io.Closer

	writeMu sync.Mutex
}

// New wraps r and w. If w also implements io.Closer, Close closes it.
func New(r io.Reader, w io.Writer) *Conn {
	c := &Conn{
		r: bufio.NewReaderSize(r, 64*1024),
		w: w,
	}
	if wc, ok := w.(io.Closer); ok {
		c.c = wc
	}
	return c
}

// Close closes the write side, signalling EOF to the peer.
func (c *Conn) Close() error {
	if c.c == nil {
		return nil
	}
	return c.c.Close()
}

// WriteMsg serialises msg to JSON and writes it followed by a newline.
func (c *Conn) WriteMsg(msg *message.Message) error {
	raw, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	line := append(raw, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.w.Write(line)
	return err
}

// ReadMsg reads one newline-terminated line and deserialises it. Blank
// lines are skipped. A line that does not decode returns an error wrapping
// message.ErrMalformed; the next call reads the following line.
func (c *Conn) ReadMsg() (*message.Message, error) {
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		return message.Decode(line)
	}
}

func (c *Conn) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, isPrefix, err := c.r.ReadLine()
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				return line, nil
			}
			return nil, err
		}
		line = append(line, chunk...)
		if len(line) > MaxMessageSize {
			return nil, fmt.Errorf("message too large (>%d bytes)", MaxMessageSize)
		}
		if !isPrefix {
			return line, nil
		}
	}
}
