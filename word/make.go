// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package word // import "github.com/go-lpc/gbt/word"

import (
	"encoding/binary"
)

func make64(v uint64, id uint8) []byte {
	w := make([]byte, Length)
	binary.LittleEndian.PutUint64(w[:8], v)
	w[Length-1] = id
	return w
}

func bit(v bool, n uint) uint64 {
	if v {
		return 1 << n
	}
	return 0
}

// MakeHeader returns a payload header word declaring lanes as active.
func MakeHeader(lanes uint32) []byte {
	return make64(uint64(lanes&0xfffffff), IDHeader)
}

// TriggerFields describes the content of a trigger word.
type TriggerFields struct {
	Type         uint16 // trigger type (12 bits)
	Internal     bool
	NoData       bool
	Continuation bool
	BC           uint16 // bunch crossing (12 bits)
	Orbit        uint32
}

// MakeTrigger returns a trigger word.
func MakeTrigger(f TriggerFields) []byte {
	v := uint64(f.Type&0xfff) |
		bit(f.Internal, 12) |
		bit(f.NoData, 13) |
		bit(f.Continuation, 14) |
		uint64(f.BC&0xfff)<<16 |
		uint64(f.Orbit)<<32
	return make64(v, IDTrigger)
}

// TrailerFields describes the content of a payload trailer word.
type TrailerFields struct {
	LanesStops          uint32
	LanesTimeout        uint32
	PacketDone          bool
	TransmissionTimeout bool
	PacketOverflow      bool
	LaneStartsViolation bool
	LaneTimeouts        bool
}

// MakeTrailer returns a payload trailer word.
func MakeTrailer(f TrailerFields) []byte {
	v := uint64(f.LanesStops&0xfffffff) |
		uint64(f.LanesTimeout&0xfffffff)<<28 |
		bit(f.PacketDone, 56) |
		bit(f.TransmissionTimeout, 57) |
		bit(f.PacketOverflow, 58) |
		bit(f.LaneStartsViolation, 59) |
		bit(f.LaneTimeouts, 60)
	return make64(v, IDTrailer)
}

// MakeCalibration returns a calibration word.
func MakeCalibration(counter uint32, user uint64) []byte {
	w := make64(user&0xffffffffffff, IDCalibration)
	w[6] = uint8(counter)
	w[7] = uint8(counter >> 8)
	w[8] = uint8(counter >> 16)
	return w
}

// MakeDiagnostic returns a diagnostic word.
func MakeDiagnostic(data uint64) []byte {
	return make64(data, IDDiagnostic)
}

// MakeData returns a data word with identifier id carrying payload.
// Payload is truncated or zero-padded to PayloadLength bytes.
func MakeData(id uint8, payload []byte) []byte {
	w := make([]byte, Length)
	copy(w[:PayloadLength], payload)
	w[Length-1] = id
	return w
}

// MakeCableDiagnostic returns a cable diagnostic word.
func MakeCableDiagnostic(id uint8, laneErr uint8, data uint64) []byte {
	w := make64(data, id)
	w[8] = laneErr
	return w
}

// MakeCableStatus returns a cable status word for cable.
func MakeCableStatus(cable uint8, data uint64) []byte {
	return make64(data, IDCableStatus|cable&cableMask)
}

// DataID returns the identifier of an IB data word for lane.
func DataID(lane uint8) uint8 { return IDDataIB | lane&cableMask }

// DataIDOB returns the identifier of an OB data word for the lane of
// the provided connector.
func DataIDOB(conn, lane uint8) uint8 { return IDDataOB | (conn<<3|lane)&cableMask }
