// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package payload holds the buffers used by the GBT link decoder:
// the scatter-gather store of raw CRU pages and the per-cable payload
// containers.
package payload // import "github.com/go-lpc/gbt/payload"

// Piece is one CRU page cached in a scatter-gather buffer.
type Piece struct {
	Data      []byte // raw page, starting with its header
	RawOffset int    // offset of the page within the whole cached raw data
}

// Size returns the number of bytes of the piece.
func (p *Piece) Size() int { return len(p.Data) }

// SG is a scatter-gather store of raw pages.
// Pages are consumed strictly in the order they were added.
type SG struct {
	pieces []Piece
	cur    int
	size   int
	done   bool
}

// AddPage appends a page to the store.
// The page is not copied and must not be modified afterwards.
func (sg *SG) AddPage(p []byte) {
	sg.pieces = append(sg.pieces, Piece{Data: p, RawOffset: sg.size})
	sg.size += len(p)
}

// CurrentPiece returns the piece under the read cursor,
// or nil if the store is exhausted or was marked as done.
func (sg *SG) CurrentPiece() *Piece {
	if sg.done || sg.cur >= len(sg.pieces) {
		return nil
	}
	return &sg.pieces[sg.cur]
}

// NextPiece advances the read cursor and returns the piece under it,
// or nil if the store is exhausted or was marked as done.
func (sg *SG) NextPiece() *Piece {
	if sg.done {
		return nil
	}
	if sg.cur < len(sg.pieces) {
		sg.cur++
	}
	return sg.CurrentPiece()
}

// CurrentPieceID returns the index of the piece under the read cursor.
func (sg *SG) CurrentPieceID() int { return sg.cur }

// SetDone marks the store as terminated: no further piece is returned,
// even if some pages were not consumed yet.
func (sg *SG) SetDone() { sg.done = true }

// IsDone returns whether the store was marked as terminated.
func (sg *SG) IsDone() bool { return sg.done }

// Rewind moves the read cursor back to the first piece.
func (sg *SG) Rewind() {
	sg.cur = 0
	sg.done = false
}

// Clear removes all pages from the store.
func (sg *SG) Clear() {
	sg.pieces = sg.pieces[:0]
	sg.cur = 0
	sg.size = 0
	sg.done = false
}

// Len returns the number of pages in the store.
func (sg *SG) Len() int { return len(sg.pieces) }

// Size returns the total number of bytes in the store.
func (sg *SG) Size() int { return sg.size }

// Piece returns the i-th page of the store, regardless of the read cursor.
func (sg *SG) Piece(i int) *Piece {
	if i < 0 || i >= len(sg.pieces) {
		return nil
	}
	return &sg.pieces[i]
}
