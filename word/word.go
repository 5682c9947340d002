// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package word provides typed views over the GBT protocol words.
//
// A GBT word is 80 bits long (10 bytes), optionally padded to 128 bits
// (16 bytes) by the CRU. The last significant byte (bits 72 to 79) holds
// the word identifier, the first 9 bytes hold its fields or payload.
// All fields are little-endian.
//
// Views are zero-copy: they reinterpret the underlying bytes and perform
// no validation besides the identifier test.
package word // import "github.com/go-lpc/gbt/word"

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	Length        = 10 // length of a GBT word w/o padding
	PaddedLength  = 16 // length of a GBT word padded by the CRU
	PayloadLength = 9  // length of the payload carried by a data word

	Padding = 0xff // fill byte of the CRU page alignment padding
)

// Word identifiers.
const (
	IDHeader      = 0xe0
	IDTrigger     = 0xe8
	IDDiagnostic  = 0xe4
	IDTrailer     = 0xf0
	IDCalibration = 0xf8

	IDDataIB      = 0x20 // 001xxxxx
	IDDataOB      = 0x40 // 010xxxxx
	IDCableStatus = 0x80 // 100xxxxx
	IDCableDiagIB = 0xa0 // 101xxxxx
	IDCableDiagOB = 0xc0 // 110xxxxx

	flavorMask = 0xe0
	cableMask  = 0x1f
)

// Kind describes the type of a GBT word.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindHeader
	KindTrigger
	KindCalibration
	KindData
	KindTrailer
	KindDiagnostic
	KindCableDiagnostic
	KindCableStatus
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "data header"
	case KindTrigger:
		return "trigger word"
	case KindCalibration:
		return "calib word"
	case KindData:
		return "data word"
	case KindTrailer:
		return "data trailer"
	case KindDiagnostic:
		return "diag word"
	case KindCableDiagnostic:
		return "cable diag word"
	case KindCableStatus:
		return "status word"
	}
	return "unknown word"
}

// Word is a view over one GBT word.
// A Word must be at least Length bytes long.
type Word []byte

// At returns a view of the GBT word at offset off of p.
func At(p []byte, off int) Word {
	return Word(p[off : off+Length])
}

// ID returns the word identifier.
func (w Word) ID() uint8 { return w[Length-1] }

func (w Word) IsHeader() bool { return w.ID() == IDHeader }
func (w Word) IsTrigger() bool { return w.ID() == IDTrigger }
func (w Word) IsDiagnostic() bool { return w.ID() == IDDiagnostic }
func (w Word) IsTrailer() bool { return w.ID() == IDTrailer }
func (w Word) IsCalibration() bool { return w.ID() == IDCalibration }

// IsData returns whether the word carries cable payload, IB or OB flavor.
func (w Word) IsData() bool { return w.IsDataIB() || w.IsDataOB() }

func (w Word) IsDataIB() bool { return w.ID()&flavorMask == IDDataIB }
func (w Word) IsDataOB() bool { return w.ID()&flavorMask == IDDataOB }

// IsCableDiagnostic returns whether the word is an IB or OB cable diagnostic.
func (w Word) IsCableDiagnostic() bool {
	f := w.ID() & flavorMask
	return f == IDCableDiagIB || f == IDCableDiagOB
}

func (w Word) IsCableStatus() bool { return w.ID()&flavorMask == IDCableStatus }

// Kind classifies the word by its identifier.
func (w Word) Kind() Kind {
	switch {
	case w.IsData():
		return KindData
	case w.IsHeader():
		return KindHeader
	case w.IsTrailer():
		return KindTrailer
	case w.IsTrigger():
		return KindTrigger
	case w.IsDiagnostic():
		return KindDiagnostic
	case w.IsCalibration():
		return KindCalibration
	case w.IsCableDiagnostic():
		return KindCableDiagnostic
	case w.IsCableStatus():
		return KindCableStatus
	}
	return KindUnknown
}

// CableID returns the hardware cable id of a data, cable diagnostic or
// cable status word.
func (w Word) CableID() uint8 { return w.ID() & cableMask }

// Payload returns the 72 bits carried by the word.
func (w Word) Payload() []byte { return w[:PayloadLength] }

func (w Word) u64() uint64 { return binary.LittleEndian.Uint64(w[:8]) }

// Format returns the hexadecimal representation of the word, most
// significant byte first, followed by an optional comment.
// Padded words also display their 6 padding bytes.
func (w Word) Format(padded bool, com string) string {
	n := Length
	if padded && len(w) >= PaddedLength {
		n = PaddedLength
	}
	var o strings.Builder
	o.WriteString("0x:")
	for i := n - 1; i >= 0; i-- {
		fmt.Fprintf(&o, " %02x", w[i])
	}
	if com != "" {
		o.WriteString(" ")
		o.WriteString(com)
	}
	return o.String()
}

// Header is the view of a payload header word.
type Header struct{ Word }

// AsHeader returns the header view of w, if w is a payload header.
func (w Word) AsHeader() (Header, bool) { return Header{w}, w.IsHeader() }

// ActiveLanes returns the bit mask of lanes declared active.
func (h Header) ActiveLanes() uint32 { return uint32(h.u64() & 0xfffffff) }

// Trigger is the view of a trigger word.
type Trigger struct{ Word }

// AsTrigger returns the trigger view of w, if w is a trigger word.
func (w Word) AsTrigger() (Trigger, bool) { return Trigger{w}, w.IsTrigger() }

func (t Trigger) TriggerType() uint16 { return uint16(t.u64() & 0xfff) }
func (t Trigger) Internal() bool { return t.u64()>>12&1 == 1 }
func (t Trigger) NoData() bool { return t.u64()>>13&1 == 1 }
func (t Trigger) Continuation() bool { return t.u64()>>14&1 == 1 }
func (t Trigger) BC() uint16 { return uint16(t.u64() >> 16 & 0xfff) }
func (t Trigger) Orbit() uint32 { return uint32(t.u64() >> 32) }

// Trailer is the view of a payload trailer word.
type Trailer struct{ Word }

// AsTrailer returns the trailer view of w, if w is a payload trailer.
func (w Word) AsTrailer() (Trailer, bool) { return Trailer{w}, w.IsTrailer() }

func (t Trailer) LanesStops() uint32 { return uint32(t.u64() & 0xfffffff) }
func (t Trailer) LanesTimeout() uint32 { return uint32(t.u64() >> 28 & 0xfffffff) }
func (t Trailer) PacketDone() bool { return t.u64()>>56&1 == 1 }
func (t Trailer) TransmissionTimeout() bool { return t.u64()>>57&1 == 1 }
func (t Trailer) PacketOverflow() bool { return t.u64()>>58&1 == 1 }
func (t Trailer) LaneStartsViolation() bool { return t.u64()>>59&1 == 1 }
func (t Trailer) LaneTimeouts() bool { return t.u64()>>60&1 == 1 }

// PacketState returns the 5 bits of the packet state.
func (t Trailer) PacketState() uint8 { return uint8(t.u64() >> 56 & 0x1f) }

// Calibration is the view of a calibration word.
type Calibration struct{ Word }

// AsCalibration returns the calibration view of w, if w is a calibration word.
func (w Word) AsCalibration() (Calibration, bool) { return Calibration{w}, w.IsCalibration() }

// UserField returns the 48 bits of user data.
func (c Calibration) UserField() uint64 { return c.u64() & 0xffffffffffff }

// Counter returns the 24 bits calibration counter.
func (c Calibration) Counter() uint32 {
	return uint32(c.Word[6]) | uint32(c.Word[7])<<8 | uint32(c.Word[8])<<16
}

// Diagnostic is the view of a diagnostic word.
type Diagnostic struct{ Word }

// AsDiagnostic returns the diagnostic view of w, if w is a diagnostic word.
func (w Word) AsDiagnostic() (Diagnostic, bool) { return Diagnostic{w}, w.IsDiagnostic() }

// Data returns the lowest 64 bits of diagnostic data.
func (d Diagnostic) Data() uint64 { return d.u64() }

// CableDiagnostic is the view of a cable diagnostic word.
type CableDiagnostic struct{ Word }

// AsCableDiagnostic returns the cable diagnostic view of w, if w is one.
func (w Word) AsCableDiagnostic() (CableDiagnostic, bool) {
	return CableDiagnostic{w}, w.IsCableDiagnostic()
}

func (d CableDiagnostic) LaneErrorID() uint8 { return d.Word[8] }
func (d CableDiagnostic) Data() uint64 { return d.u64() }

// CableStatus is the view of a cable status word.
type CableStatus struct{ Word }

// AsCableStatus returns the cable status view of w, if w is one.
func (w Word) AsCableStatus() (CableStatus, bool) { return CableStatus{w}, w.IsCableStatus() }

func (s CableStatus) Data() uint64 { return s.u64() }
