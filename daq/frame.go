// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"encoding/binary"
	"fmt"

	"github.com/go-lpc/gbt/decoder"
	"github.com/go-lpc/gbt/link"
	"github.com/go-lpc/gbt/mapping"
	"github.com/go-lpc/gbt/rdh"
)

// Frame layout, little-endian:
//
//	frame: orbit(u32) bc(u16) trigger(u16) nrus(u16) ru...
//	ru:    swid(u16) type(u8) ncables(u8) calib-counter(u32) calib-user(u64) cable...
//	cable: sw(u8) hw(u8) fee(u16) size(u32) data...
const (
	frameHdrLen = 10
	ruHdrLen    = 16
	cableHdrLen = 8
)

// MarshalROF encodes the decoded frame rof into a data frame body.
func MarshalROF(rof decoder.ROF) []byte {
	n := frameHdrLen
	for _, ru := range rof.RUs {
		n += ruHdrLen
		for _, c := range ru.Cables {
			n += cableHdrLen + len(c.Data)
		}
	}

	var (
		p   = make([]byte, n)
		bin = binary.LittleEndian
	)
	bin.PutUint32(p[0:], rof.IR.Orbit)
	bin.PutUint16(p[4:], rof.IR.BC)
	bin.PutUint16(p[6:], rof.Trigger)
	bin.PutUint16(p[8:], uint16(len(rof.RUs)))
	i := frameHdrLen
	for _, ru := range rof.RUs {
		bin.PutUint16(p[i:], ru.SWID)
		p[i+2] = uint8(ru.Type)
		p[i+3] = uint8(len(ru.Cables))
		bin.PutUint32(p[i+4:], ru.Calib.Counter)
		bin.PutUint64(p[i+8:], ru.Calib.UserField)
		i += ruHdrLen
		for _, c := range ru.Cables {
			var fee uint16
			if c.Link != nil {
				fee = c.Link.FEE
			}
			p[i] = c.SW
			p[i+1] = c.HW
			bin.PutUint16(p[i+2:], fee)
			bin.PutUint32(p[i+4:], uint32(len(c.Data)))
			i += cableHdrLen
			i += copy(p[i:], c.Data)
		}
	}
	return p
}

// UnmarshalROF decodes a data frame body into a frame.
// The cables of the returned frame do not reference any link, and their
// FEE ids are returned in the order of the cables.
func UnmarshalROF(p []byte) (decoder.ROF, []uint16, error) {
	var (
		rof  decoder.ROF
		fees []uint16
		bin  = binary.LittleEndian
	)
	if len(p) < frameHdrLen {
		return rof, nil, fmt.Errorf("daq: short frame (%d bytes)", len(p))
	}
	rof.IR = rdh.IR{Orbit: bin.Uint32(p[0:]), BC: bin.Uint16(p[4:])}
	rof.Trigger = bin.Uint16(p[6:])
	nrus := int(bin.Uint16(p[8:]))
	p = p[frameHdrLen:]

	rof.RUs = make([]decoder.RUData, nrus)
	for i := range rof.RUs {
		if len(p) < ruHdrLen {
			return rof, nil, fmt.Errorf("daq: short RU header #%d", i)
		}
		ru := &rof.RUs[i]
		ru.SWID = bin.Uint16(p[0:])
		ru.Type = mapping.RUType(p[2])
		ru.Cables = make([]link.CableData, p[3])
		ru.Calib = link.Calib{
			Counter:   bin.Uint32(p[4:]),
			UserField: bin.Uint64(p[8:]),
		}
		p = p[ruHdrLen:]
		for j := range ru.Cables {
			if len(p) < cableHdrLen {
				return rof, nil, fmt.Errorf("daq: short cable header #%d of RU %d", j, ru.SWID)
			}
			n := int(bin.Uint32(p[4:]))
			if len(p) < cableHdrLen+n {
				return rof, nil, fmt.Errorf("daq: short cable payload #%d of RU %d", j, ru.SWID)
			}
			ru.Cables[j] = link.CableData{
				SW:   p[0],
				HW:   p[1],
				Data: append([]byte(nil), p[cableHdrLen:cableHdrLen+n]...),
			}
			fees = append(fees, bin.Uint16(p[2:]))
			p = p[cableHdrLen+n:]
		}
	}
	if len(p) != 0 {
		return rof, nil, fmt.Errorf("daq: %d trailing bytes", len(p))
	}
	return rof, fees, nil
}
