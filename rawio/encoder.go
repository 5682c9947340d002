// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawio // import "github.com/go-lpc/gbt/rawio"

import (
	"fmt"
	"io"

	"github.com/go-lpc/gbt/rdh"
	"github.com/go-lpc/gbt/word"
)

// Chunk is one data word of a cable.
type Chunk struct {
	ID      uint8  // data word identifier
	Payload []byte // up to 9 bytes
}

// ROF describes the content of one readout frame of a link.
type ROF struct {
	IR      rdh.IR
	Trigger uint16   // trigger type
	NoData  bool     // ROF without payload
	Self    bool     // internally generated trigger
	Lanes   uint32   // lanes declared active
	Extra   [][]byte // words inserted after the trigger (calibration, ...)
	Data    []Chunk
}

// Encoder writes the CRU pages of one link to an output stream.
// ROFs are split across pages when they do not fit into a single one.
type Encoder struct {
	w   io.Writer
	err error

	hdr    rdh.Header // template of the page headers
	padded bool
	size   int // maximal page size

	page    *Page
	npages  int
	pktCnt  uint8
	pageCnt uint16
	lanes   uint32
	hbf     bool
}

// NewEncoder returns an encoder that writes to w the pages of the link
// described by hdr (FEE id, CRU id, link id, endpoint).
func NewEncoder(w io.Writer, hdr rdh.Header, padded bool, pageSize int) *Encoder {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Encoder{
		w:      w,
		hdr:    hdr,
		padded: padded,
		size:   pageSize,
	}
}

// NPages returns the number of pages written so far.
func (enc *Encoder) NPages() int { return enc.npages }

// StartHBF starts a new heart beat frame at ir.
func (enc *Encoder) StartHBF(ir rdh.IR) error {
	if enc.hbf {
		if err := enc.EndHBF(); err != nil {
			return err
		}
	}
	enc.hdr.BC = ir.BC
	enc.hdr.Orbit = ir.Orbit
	enc.pageCnt = 0
	enc.hbf = true
	return enc.err
}

// EndHBF flushes the current page and writes the stop page of the
// heart beat frame, holding a diagnostic word.
func (enc *Encoder) EndHBF() error {
	if !enc.hbf {
		return nil
	}
	enc.flush()
	stop := enc.newPage()
	stop.Header.Stop = 1
	stop.Add(word.MakeDiagnostic(0))
	enc.write(stop)
	enc.hbf = false
	if enc.err != nil {
		return fmt.Errorf("rawio: could not write stop page: %w", enc.err)
	}
	return nil
}

// Close ends the current heart beat frame.
func (enc *Encoder) Close() error {
	return enc.EndHBF()
}

// EncodeROF writes the words of a readout frame.
func (enc *Encoder) EncodeROF(rof ROF) error {
	if !enc.hbf {
		if err := enc.StartHBF(rof.IR); err != nil {
			return err
		}
	}
	enc.lanes = rof.Lanes

	trg := word.TriggerFields{
		Type:     rof.Trigger,
		NoData:   rof.NoData,
		Internal: rof.Self,
		BC:       rof.IR.BC,
		Orbit:    rof.IR.Orbit,
	}

	// trigger, extra words and at least one data word or the trailer.
	enc.reserve(len(rof.Extra) + 2)
	enc.page.Add(word.MakeTrigger(trg))
	enc.page.Add(rof.Extra...)
	if rof.NoData {
		return enc.err
	}

	trg.Continuation = true
	for _, c := range rof.Data {
		if !enc.room(2) {
			// close the packet of this page, continue on the next one.
			enc.page.Add(word.MakeTrailer(word.TrailerFields{}))
			enc.flush()
			enc.reserve(3)
			enc.page.Add(word.MakeTrigger(trg))
		}
		enc.page.Add(word.MakeData(c.ID, c.Payload))
	}
	enc.page.Add(word.MakeTrailer(word.TrailerFields{
		LanesStops: rof.Lanes,
		PacketDone: true,
	}))
	if enc.err != nil {
		return fmt.Errorf("rawio: could not encode ROF %v: %w", rof.IR, enc.err)
	}
	return nil
}

func (enc *Encoder) newPage() *Page {
	hdr := enc.hdr
	hdr.PageCount = enc.pageCnt
	hdr.PacketCounter = enc.pktCnt
	return NewPage(hdr, enc.padded)
}

// room returns whether n more words fit into the current page.
func (enc *Encoder) room(n int) bool {
	if enc.page == nil {
		return false
	}
	return enc.page.Len()+n*enc.page.WordLen()+16 <= enc.size
}

// reserve makes sure n words fit into the current page, starting a new
// page with its payload header when needed.
func (enc *Encoder) reserve(n int) {
	if enc.room(n) {
		return
	}
	enc.flush()
	enc.page = enc.newPage()
	enc.page.Add(word.MakeHeader(enc.lanes))
}

func (enc *Encoder) flush() {
	if enc.page == nil {
		return
	}
	enc.write(enc.page)
	enc.page = nil
}

func (enc *Encoder) write(p *Page) {
	if enc.err != nil {
		return
	}
	_, enc.err = enc.w.Write(p.Bytes())
	enc.npages++
	enc.pktCnt++
	enc.pageCnt++
}
