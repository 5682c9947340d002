// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawio // import "github.com/go-lpc/gbt/rawio"

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-lpc/gbt/internal/mmap"
	"github.com/go-lpc/gbt/rdh"
)

// Reader reads CRU pages from an underlying raw stream.
type Reader struct {
	r   io.Reader
	err error
	buf []byte
}

// NewReader returns a reader of the CRU pages of r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, buf: make([]byte, rdh.Size)}
}

// Next returns the next page of the stream, or io.EOF.
// The returned page is never modified by subsequent calls.
func (r *Reader) Next() ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	_, r.err = io.ReadFull(r.r, r.buf)
	if r.err != nil {
		if errors.Is(r.err, io.ErrUnexpectedEOF) {
			r.err = fmt.Errorf("rawio: could not read raw data header: %w", r.err)
		}
		return nil, r.err
	}
	hdr, _ := rdh.Decode(r.buf) // buf is large enough.
	size, err := pageSize(&hdr)
	if err != nil {
		r.err = err
		return nil, r.err
	}

	page := make([]byte, size)
	copy(page, r.buf)
	_, r.err = io.ReadFull(r.r, page[rdh.Size:])
	if r.err != nil {
		if errors.Is(r.err, io.EOF) {
			r.err = io.ErrUnexpectedEOF
		}
		r.err = fmt.Errorf("rawio: could not read page payload (size=%d): %w", size, r.err)
		return nil, r.err
	}
	return page, nil
}

func pageSize(hdr *rdh.Header) (int, error) {
	if !hdr.IsValid() {
		return 0, fmt.Errorf("rawio: invalid raw data header (version=%d, size=%d)", hdr.Version, hdr.HeaderSize)
	}
	size := int(hdr.OffsetToNext)
	if size < rdh.Size || size < int(hdr.MemorySize) {
		return 0, fmt.Errorf("rawio: invalid offset to next page %d (memory size=%d)", size, hdr.MemorySize)
	}
	return size, nil
}

// SplitPages splits the raw buffer into its CRU pages.
// Pages alias the raw buffer.
func SplitPages(raw []byte) ([][]byte, error) {
	var pages [][]byte
	for off := 0; off < len(raw); {
		hdr, err := rdh.Decode(raw[off:])
		if err != nil {
			return pages, fmt.Errorf("rawio: could not decode page header at offset %d: %w", off, err)
		}
		size, err := pageSize(&hdr)
		if err != nil {
			return pages, fmt.Errorf("rawio: page at offset %d: %w", off, err)
		}
		if off+size > len(raw) {
			return pages, fmt.Errorf(
				"rawio: page at offset %d exceeds buffer (size=%d, len=%d): %w",
				off, size, len(raw), io.ErrUnexpectedEOF,
			)
		}
		pages = append(pages, raw[off:off+size:off+size])
		off += size
	}
	return pages, nil
}

// File is a memory-mapped raw data file.
type File struct {
	h     *mmap.Handle
	Pages [][]byte // CRU pages of the file, aliasing the mapped memory
}

// Open memory-maps the named raw data file and splits it into pages.
func Open(fname string) (*File, error) {
	h, err := mmap.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("rawio: could not open raw file %q: %w", fname, err)
	}
	pages, err := SplitPages(h.Bytes())
	if err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("rawio: could not split raw file %q: %w", fname, err)
	}
	return &File{h: h, Pages: pages}, nil
}

// Close unmaps the file. Pages must not be used afterwards.
func (f *File) Close() error {
	f.Pages = nil
	return f.h.Close()
}
