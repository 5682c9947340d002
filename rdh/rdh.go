// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rdh decodes and encodes the raw data header (RDH) prefixing
// each CRU page.
//
// Versions 6 and 7 of the header are supported. Both are 64 bytes long,
// little-endian, with the following layout:
//
//	word0: version(8) size(8) feeID(16) priority(8) sourceID(8) zero(16)
//	       offsetToNext(16) memorySize(16) linkID(8) packetCounter(8)
//	       cruID(12) endpoint(4)
//	word1: bc(12) reserved(20) orbit(32) reserved(64)
//	word2: triggerType(32) pageCount(16) stop(8) reserved(72)
//	word3: detectorField(32) par(16) reserved(80)
package rdh // import "github.com/go-lpc/gbt/rdh"

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	Size = 64 // size of a raw data header in bytes

	SourceITS = 32 // source identifier of ITS
	SourceMFT = 33 // source identifier of MFT
)

// IR is an interaction record: a bunch crossing within an orbit.
type IR struct {
	BC    uint16
	Orbit uint32
}

const dummyOrbit = 0xffffffff

// Dummy is the invalid interaction record.
var Dummy = IR{BC: 0xffff, Orbit: dummyOrbit}

// IsDummy returns whether ir is the invalid interaction record.
func (ir IR) IsDummy() bool { return ir.Orbit == dummyOrbit && ir.BC == 0xffff }

// Less returns whether ir happened before o.
func (ir IR) Less(o IR) bool {
	if ir.Orbit != o.Orbit {
		return ir.Orbit < o.Orbit
	}
	return ir.BC < o.BC
}

func (ir IR) String() string {
	if ir.IsDummy() {
		return "bc:----/orb:--------"
	}
	return fmt.Sprintf("bc:%04d/orb:%08d", ir.BC, ir.Orbit)
}

// Header is a decoded raw data header.
type Header struct {
	Version       uint8
	HeaderSize    uint8
	FEEID         uint16
	Priority      uint8
	SourceID      uint8
	OffsetToNext  uint16
	MemorySize    uint16
	LinkID        uint8
	PacketCounter uint8
	CRUID         uint16 // 12 bits
	Endpoint      uint8  // 4 bits, a.k.a data wrapper id
	BC            uint16 // 12 bits
	Orbit         uint32
	TriggerType   uint32
	PageCount     uint16
	Stop          uint8
	DetectorField uint32
	Par           uint16
}

// HeartBeatIR returns the interaction record of the heart beat frame.
func (h *Header) HeartBeatIR() IR { return IR{BC: h.BC, Orbit: h.Orbit} }

// SubSpec returns the link sub-specification of the header.
func (h *Header) SubSpec() uint32 { return SubSpec(h.CRUID, h.LinkID, h.Endpoint) }

// SubSpec returns the sub-specification identifying a CRU link.
func SubSpec(cru uint16, link, endpoint uint8) uint32 {
	return uint32(link) | uint32(endpoint)<<8 | uint32(cru)<<16
}

// IsValid returns whether the version and the declared size of the
// header are supported.
func (h *Header) IsValid() bool {
	return (h.Version == 6 || h.Version == 7) && h.HeaderSize == Size
}

// Decode decodes the header at the beginning of p.
func Decode(p []byte) (Header, error) {
	var h Header
	if len(p) < Size {
		return h, fmt.Errorf("rdh: buffer too small (%d bytes) for raw data header: %w", len(p), io.ErrUnexpectedEOF)
	}
	h.Version = p[0]
	h.HeaderSize = p[1]
	h.FEEID = binary.LittleEndian.Uint16(p[2:])
	h.Priority = p[4]
	h.SourceID = p[5]
	h.OffsetToNext = binary.LittleEndian.Uint16(p[8:])
	h.MemorySize = binary.LittleEndian.Uint16(p[10:])
	h.LinkID = p[12]
	h.PacketCounter = p[13]
	cru := binary.LittleEndian.Uint16(p[14:])
	h.CRUID = cru & 0xfff
	h.Endpoint = uint8(cru >> 12)
	h.BC = uint16(binary.LittleEndian.Uint32(p[16:]) & 0xfff)
	h.Orbit = binary.LittleEndian.Uint32(p[20:])
	h.TriggerType = binary.LittleEndian.Uint32(p[32:])
	h.PageCount = binary.LittleEndian.Uint16(p[36:])
	h.Stop = p[38]
	h.DetectorField = binary.LittleEndian.Uint32(p[48:])
	h.Par = binary.LittleEndian.Uint16(p[52:])
	return h, nil
}

// Encode encodes the header into the first Size bytes of p.
func (h *Header) Encode(p []byte) error {
	if len(p) < Size {
		return fmt.Errorf("rdh: buffer too small (%d bytes) for raw data header: %w", len(p), io.ErrShortBuffer)
	}
	for i := range p[:Size] {
		p[i] = 0
	}
	p[0] = h.Version
	p[1] = h.HeaderSize
	binary.LittleEndian.PutUint16(p[2:], h.FEEID)
	p[4] = h.Priority
	p[5] = h.SourceID
	binary.LittleEndian.PutUint16(p[8:], h.OffsetToNext)
	binary.LittleEndian.PutUint16(p[10:], h.MemorySize)
	p[12] = h.LinkID
	p[13] = h.PacketCounter
	binary.LittleEndian.PutUint16(p[14:], h.CRUID&0xfff|uint16(h.Endpoint&0xf)<<12)
	binary.LittleEndian.PutUint32(p[16:], uint32(h.BC&0xfff))
	binary.LittleEndian.PutUint32(p[20:], h.Orbit)
	binary.LittleEndian.PutUint32(p[32:], h.TriggerType)
	binary.LittleEndian.PutUint16(p[36:], h.PageCount)
	p[38] = h.Stop
	binary.LittleEndian.PutUint32(p[48:], h.DetectorField)
	binary.LittleEndian.PutUint16(p[52:], h.Par)
	return nil
}

// Print displays the header in a human readable form.
func (h *Header) Print(w io.Writer) {
	fmt.Fprintf(w,
		"RDH| Ver:%2d Hsz:%2d Blgt:%4d FEEId:0x%04x PBit:%d SrcID:%d\n",
		h.Version, h.HeaderSize, h.MemorySize, h.FEEID, h.Priority, h.SourceID,
	)
	fmt.Fprintf(w,
		"RDH| Offs:%5d LnkId:%2d PktC:%3d CRUId:0x%03x EP:%d\n",
		h.OffsetToNext, h.LinkID, h.PacketCounter, h.CRUID, h.Endpoint,
	)
	fmt.Fprintf(w,
		"RDH| HBOrb:%9d HBBC:%4d Trg:0x%08x Page:%5d Stop:%d\n",
		h.Orbit, h.BC, h.TriggerType, h.PageCount, h.Stop,
	)
	fmt.Fprintf(w,
		"RDH| DetField:0x%08x Par:0x%04x\n",
		h.DetectorField, h.Par,
	)
}
