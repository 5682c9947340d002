// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package payload // import "github.com/go-lpc/gbt/payload"

import (
	"io"
)

// Cont is an append-only growable byte container with a read cursor.
type Cont struct {
	buf []byte
	pos int
}

// NewCont creates a container with the provided initial capacity.
func NewCont(n int) *Cont {
	return &Cont{buf: make([]byte, 0, n)}
}

// Add appends p to the container.
func (c *Cont) Add(p []byte) {
	c.buf = append(c.buf, p...)
}

// Bytes returns the unread part of the container.
// The returned slice is only valid until the next call to Add or Clear.
func (c *Cont) Bytes() []byte { return c.buf[c.pos:] }

// Len returns the number of unread bytes.
func (c *Cont) Len() int { return len(c.buf) - c.pos }

// Size returns the total number of bytes stored since the last Clear.
func (c *Cont) Size() int { return len(c.buf) }

// IsEmpty returns whether all the bytes were consumed.
func (c *Cont) IsEmpty() bool { return c.pos >= len(c.buf) }

// Clear empties the container, keeping its capacity.
func (c *Cont) Clear() {
	c.buf = c.buf[:0]
	c.pos = 0
}

// Rewind moves the read cursor back to the first byte.
func (c *Cont) Rewind() { c.pos = 0 }

// Detach returns a copy of all the stored bytes and clears the container.
func (c *Cont) Detach() []byte {
	if len(c.buf) == 0 {
		c.Clear()
		return nil
	}
	out := make([]byte, len(c.buf))
	copy(out, c.buf)
	c.Clear()
	return out
}

// ReadByte implements io.ByteReader.
func (c *Cont) ReadByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

// Read implements io.Reader.
func (c *Cont) Read(p []byte) (int, error) {
	if c.pos >= len(c.buf) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, c.buf[c.pos:])
	c.pos += n
	return n, nil
}

var (
	_ io.Reader     = (*Cont)(nil)
	_ io.ByteReader = (*Cont)(nil)
)
