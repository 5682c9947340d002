// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mapping describes the readout unit hardware types and the
// mapping of their hardware cable identifiers to dense software indices.
package mapping // import "github.com/go-lpc/gbt/mapping"

import (
	"fmt"
	"strings"
)

// RUType is the hardware type of a readout unit.
type RUType uint8

const (
	IB RUType = iota // inner barrel
	ML               // outer barrel, middle layers
	OL               // outer barrel, outer layers

	NRUTypes
)

// Invalid is the software index returned for an illegal cable.
const Invalid = 0xff

// MaxCables is the maximum number of cables served by a readout unit.
const MaxCables = 28

func (t RUType) String() string {
	switch t {
	case IB:
		return "IB"
	case ML:
		return "ML"
	case OL:
		return "OL"
	}
	return fmt.Sprintf("RUType(%d)", uint8(t))
}

// ParseRUType parses the name of a readout unit type.
func ParseRUType(s string) (RUType, error) {
	switch strings.ToUpper(s) {
	case "IB":
		return IB, nil
	case "ML":
		return ML, nil
	case "OL":
		return OL, nil
	}
	return NRUTypes, fmt.Errorf("mapping: invalid RU type %q", s)
}

// IsOB returns whether the type is an outer barrel readout unit.
func (t RUType) IsOB() bool { return t == ML || t == OL }

type layout struct {
	conns int // connectors
	lanes int // lanes per connector
}

var layouts = [NRUTypes]layout{
	IB: {conns: 1, lanes: 9},
	ML: {conns: 4, lanes: 4},
	OL: {conns: 4, lanes: 7},
}

// Mapping holds the hardware to software cable tables of all RU types.
type Mapping struct {
	hw2sw [NRUTypes][32]uint8
	sw2hw [NRUTypes][]uint8
}

// New returns the cable mapping of the ITS/MFT readout units.
//
// Inner barrel cables are identified by their lane (0 to 8).
// Outer barrel cables are identified by connector<<3 | lane.
// Software indices run over connector*lanesPerConnector + lane.
func New() *Mapping {
	var m Mapping
	for t, lay := range layouts {
		for i := range m.hw2sw[t] {
			m.hw2sw[t][i] = Invalid
		}
		m.sw2hw[t] = make([]uint8, lay.conns*lay.lanes)
		for conn := 0; conn < lay.conns; conn++ {
			for lane := 0; lane < lay.lanes; lane++ {
				hw := lane
				if RUType(t).IsOB() {
					hw = conn<<3 | lane
				}
				sw := conn*lay.lanes + lane
				m.hw2sw[t][hw] = uint8(sw)
				m.sw2hw[t][sw] = uint8(hw)
			}
		}
	}
	return &m
}

// CablesOnRUType returns the number of cables served by a readout unit
// of type t.
func (m *Mapping) CablesOnRUType(t RUType) int {
	if t >= NRUTypes {
		return 0
	}
	return len(m.sw2hw[t])
}

// CablesMask returns the bit mask of the software cable indices served
// by a readout unit of type t.
func (m *Mapping) CablesMask(t RUType) uint32 {
	return uint32(1)<<m.CablesOnRUType(t) - 1
}

// CableHW2SW returns the software index of the hardware cable hw for
// a readout unit of type t, or Invalid.
func (m *Mapping) CableHW2SW(t RUType, hw uint8) uint8 {
	if t >= NRUTypes || int(hw) >= len(m.hw2sw[t]) {
		return Invalid
	}
	return m.hw2sw[t][hw]
}

// CableSW2HW returns the hardware cable id of the software index sw for
// a readout unit of type t, or Invalid.
func (m *Mapping) CableSW2HW(t RUType, sw uint8) uint8 {
	if t >= NRUTypes || int(sw) >= len(m.sw2hw[t]) {
		return Invalid
	}
	return m.sw2hw[t][sw]
}
