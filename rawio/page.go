// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rawio reads and writes streams of CRU pages.
package rawio // import "github.com/go-lpc/gbt/rawio"

import (
	"github.com/go-lpc/gbt/rdh"
	"github.com/go-lpc/gbt/word"
)

// DefaultPageSize is the default maximal size of a CRU page.
const DefaultPageSize = 8192

// Page is a CRU page under construction.
type Page struct {
	Header rdh.Header
	Padded bool // whether GBT words are padded to 16 bytes
	Size   int  // total size of the page, 0 to use the memory size

	words []byte
}

// NewPage creates a page with the provided header.
// The header version and size are filled in when missing.
func NewPage(hdr rdh.Header, padded bool) *Page {
	if hdr.Version == 0 {
		hdr.Version = 6
	}
	if hdr.HeaderSize == 0 {
		hdr.HeaderSize = rdh.Size
	}
	return &Page{Header: hdr, Padded: padded}
}

// WordLen returns the length of a word in the page.
func (p *Page) WordLen() int {
	if p.Padded {
		return word.PaddedLength
	}
	return word.Length
}

// Add appends GBT words to the page.
func (p *Page) Add(words ...[]byte) *Page {
	for _, w := range words {
		p.words = append(p.words, w...)
		if p.Padded {
			p.words = append(p.words, make([]byte, word.PaddedLength-len(w))...)
		}
	}
	return p
}

// Raw appends raw bytes to the page.
func (p *Page) Raw(raw []byte) *Page {
	p.words = append(p.words, raw...)
	return p
}

// Len returns the memory size of the page, with its header and its
// alignment padding.
func (p *Page) Len() int {
	n := rdh.Size + len(p.words)
	if !p.Padded && len(p.words) > 0 {
		if r := n % 16; r != 0 {
			n += 16 - r
		}
	}
	return n
}

// Bytes returns the encoded page.
// The memory size and offset to next fields of the header are computed
// from the words of the page. Unpadded pages are aligned on 16 bytes with
// the 0xff fill byte.
func (p *Page) Bytes() []byte {
	mem := p.Len()
	size := mem
	if p.Size > size {
		size = p.Size
	}
	out := make([]byte, size)
	copy(out[rdh.Size:], p.words)
	for i := rdh.Size + len(p.words); i < mem; i++ {
		out[i] = word.Padding
	}

	hdr := p.Header
	hdr.MemorySize = uint16(mem)
	hdr.OffsetToNext = uint16(size)
	_ = hdr.Encode(out) // out is large enough.
	return out
}
