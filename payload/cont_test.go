// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package payload

import (
	"bytes"
	"io"
	"testing"
)

func TestCont(t *testing.T) {
	c := NewCont(4)
	if !c.IsEmpty() {
		t.Fatalf("new container is not empty")
	}

	c.Add([]byte{1, 2, 3})
	c.Add([]byte{4, 5})

	if got, want := c.Bytes(), []byte{1, 2, 3, 4, 5}; !bytes.Equal(got, want) {
		t.Fatalf("invalid content: got=%v, want=%v", got, want)
	}

	v, err := c.ReadByte()
	if err != nil {
		t.Fatalf("could not read byte: %+v", err)
	}
	if v != 1 {
		t.Fatalf("invalid byte: got=%d, want=1", v)
	}
	if got, want := c.Len(), 4; got != want {
		t.Fatalf("invalid unread len: got=%d, want=%d", got, want)
	}
	if got, want := c.Size(), 5; got != want {
		t.Fatalf("invalid size: got=%d, want=%d", got, want)
	}

	buf := make([]byte, 3)
	n, err := c.Read(buf)
	if err != nil || n != 3 {
		t.Fatalf("could not read: n=%d, err=%+v", n, err)
	}
	if got, want := buf, []byte{2, 3, 4}; !bytes.Equal(got, want) {
		t.Fatalf("invalid read: got=%v, want=%v", got, want)
	}

	rest, err := io.ReadAll(c)
	if err != nil {
		t.Fatalf("could not read all: %+v", err)
	}
	if got, want := rest, []byte{5}; !bytes.Equal(got, want) {
		t.Fatalf("invalid rest: got=%v, want=%v", got, want)
	}
	if _, err := c.ReadByte(); err != io.EOF {
		t.Fatalf("invalid error: got=%v, want=%v", err, io.EOF)
	}

	c.Rewind()
	if got, want := c.Len(), 5; got != want {
		t.Fatalf("invalid len after rewind: got=%d, want=%d", got, want)
	}

	raw := c.Detach()
	if got, want := raw, []byte{1, 2, 3, 4, 5}; !bytes.Equal(got, want) {
		t.Fatalf("invalid detached data: got=%v, want=%v", got, want)
	}
	if !c.IsEmpty() || c.Size() != 0 {
		t.Fatalf("container not cleared after detach")
	}
	if raw := c.Detach(); raw != nil {
		t.Fatalf("invalid detach of empty container: %v", raw)
	}
}
