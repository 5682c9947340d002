// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmap

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestHandle(t *testing.T) {
	t.Run("nil-handle", func(t *testing.T) {
		var h *Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		err = h.Close()
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid close error: %+v", err)
		}
	})
	t.Run("nil-data", func(t *testing.T) {
		var h Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		err = h.Close()
		if err != nil {
			t.Fatalf("error closing nil-data handle: %+v", err)
		}
	})
}

func TestHandleFrom(t *testing.T) {
	h := HandleFrom([]byte{0, 1, 2, 3})

	if got, want := h.Len(), 4; got != want {
		t.Fatalf("invalid len: got=%d, want=%d", got, want)
	}

	if got, want := h.At(1), byte(1); got != want {
		t.Fatalf("invalid value: got=%d, want=%d", got, want)
	}

	_, err := h.ReadAt(nil, -1)
	if got, want := err.Error(), "mmap: invalid ReadAt offset -1"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}

	buf := make([]byte, 3)
	n, err := h.ReadAt(buf, 2)
	if !errors.Is(err, io.EOF) || n != 2 {
		t.Fatalf("invalid short read: n=%d, err=%+v", n, err)
	}

	err = h.Close()
	if err != nil {
		t.Fatalf("could not close in-memory handle: %+v", err)
	}
}

func TestOpen(t *testing.T) {
	tmp := t.TempDir()

	want := []byte("0123456789abcdef")
	fname := filepath.Join(tmp, "data.raw")
	err := os.WriteFile(fname, want, 0644)
	if err != nil {
		t.Fatalf("could not create file: %+v", err)
	}

	h, err := Open(fname)
	if err != nil {
		t.Fatalf("could not mmap file: %+v", err)
	}
	defer h.Close()

	if !bytes.Equal(h.Bytes(), want) {
		t.Fatalf("invalid content: got=%q, want=%q", h.Bytes(), want)
	}

	buf := make([]byte, 4)
	_, err = h.ReadAt(buf, 10)
	if err != nil {
		t.Fatalf("could not read-at: %+v", err)
	}
	if got, want := string(buf), "abcd"; got != want {
		t.Fatalf("invalid read-at: got=%q, want=%q", got, want)
	}

	err = h.Close()
	if err != nil {
		t.Fatalf("could not close handle: %+v", err)
	}

	empty := filepath.Join(tmp, "empty.raw")
	err = os.WriteFile(empty, nil, 0644)
	if err != nil {
		t.Fatalf("could not create file: %+v", err)
	}
	h, err = Open(empty)
	if err != nil {
		t.Fatalf("could not open empty file: %+v", err)
	}
	if h.Len() != 0 {
		t.Fatalf("invalid empty file length: %d", h.Len())
	}

	_, err = Open(filepath.Join(tmp, "missing.raw"))
	if err == nil {
		t.Fatalf("expected an error opening a missing file")
	}
}
