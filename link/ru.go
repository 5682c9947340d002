// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link // import "github.com/go-lpc/gbt/link"

import (
	"sync"

	"github.com/go-lpc/gbt/mapping"
	"github.com/go-lpc/gbt/payload"
)

// Calib holds the calibration metadata carried by a calibration word.
type Calib struct {
	Counter   uint32
	UserField uint64
}

// CableData is the payload of one cable collected for one ROF.
type CableData struct {
	SW   uint8  // software cable index
	HW   uint8  // hardware cable id
	Link *Link  // link which delivered the data
	Data []byte // concatenated 9 bytes payload chunks
}

// RU holds the decoding data of a readout unit: its per-cable buffers
// and the metadata handed over by the links feeding it.
//
// Each cable buffer is written by a single link in a given ROF.
type RU struct {
	SWID uint16         // software id of the unit
	Type mapping.RUType // hardware type

	links []*Link

	cables    [mapping.MaxCables]payload.Cont
	cableHWID [mapping.MaxCables]uint8
	cableLink [mapping.MaxCables]*Link

	mu      sync.Mutex
	calib   Calib
	hbfDump map[uint64]uint32 // (subSpec<<32)+hbfEntry -> HBF orbit
}

// NewRU creates the decoding data of a readout unit.
func NewRU(swid uint16, typ mapping.RUType) *RU {
	return &RU{
		SWID:    swid,
		Type:    typ,
		hbfDump: make(map[uint64]uint32),
	}
}

// Links returns the links feeding the unit.
func (ru *RU) Links() []*Link { return ru.links }

func (ru *RU) attach(l *Link) {
	ru.links = append(ru.links, l)
}

func (ru *RU) addCableData(sw, hw uint8, l *Link, p []byte) {
	ru.cables[sw].Add(p)
	ru.cableHWID[sw] = hw
	ru.cableLink[sw] = l
}

// Cable returns the buffer of the software cable index sw.
func (ru *RU) Cable(sw int) *payload.Cont { return &ru.cables[sw] }

// CableLink returns the link which wrote into the software cable sw
// during the current ROF, or nil.
func (ru *RU) CableLink(sw int) *Link { return ru.cableLink[sw] }

// CableData returns the non-empty cables, ordered by software index.
// The returned data slices alias the cable buffers.
func (ru *RU) CableData() []CableData {
	var out []CableData
	for i := range ru.cables {
		c := &ru.cables[i]
		if c.Size() == 0 {
			continue
		}
		out = append(out, CableData{
			SW:   uint8(i),
			HW:   ru.cableHWID[i],
			Link: ru.cableLink[i],
			Data: c.Bytes(),
		})
	}
	return out
}

// ClearCables empties all the cable buffers.
func (ru *RU) ClearCables() {
	for i := range ru.cables {
		ru.cables[i].Clear()
		ru.cableLink[i] = nil
	}
}

// Detach removes from the cable buffers the data written by l and
// returns a copy of it.
func (ru *RU) Detach(l *Link) []CableData {
	var out []CableData
	for i := range ru.cables {
		if ru.cableLink[i] != l {
			continue
		}
		out = append(out, CableData{
			SW:   uint8(i),
			HW:   ru.cableHWID[i],
			Link: l,
			Data: ru.cables[i].Detach(),
		})
		ru.cableLink[i] = nil
	}
	return out
}

// Attach appends previously detached cable data to the cable buffers.
func (ru *RU) Attach(data []CableData) {
	for _, cd := range data {
		ru.addCableData(cd.SW, cd.HW, cd.Link, cd.Data)
	}
}

// SetCalib updates the calibration metadata of the unit.
func (ru *RU) SetCalib(c Calib) {
	ru.mu.Lock()
	ru.calib = c
	ru.mu.Unlock()
}

// Calib returns the last calibration metadata seen by the unit.
func (ru *RU) Calib() Calib {
	ru.mu.Lock()
	defer ru.mu.Unlock()
	return ru.calib
}

func (ru *RU) markHBF(key uint64, orbit uint32) {
	ru.mu.Lock()
	if _, dup := ru.hbfDump[key]; !dup {
		ru.hbfDump[key] = orbit
	}
	ru.mu.Unlock()
}

// HBFToDump returns the faulty heart beat frames recorded by the links
// of the unit, keyed by (subSpec<<32)+hbfEntry.
func (ru *RU) HBFToDump() map[uint64]uint32 {
	ru.mu.Lock()
	defer ru.mu.Unlock()
	o := make(map[uint64]uint32, len(ru.hbfDump))
	for k, v := range ru.hbfDump {
		o[k] = v
	}
	return o
}

// ClearHBFToDump forgets the recorded faulty heart beat frames.
func (ru *RU) ClearHBFToDump() {
	ru.mu.Lock()
	ru.hbfDump = make(map[uint64]uint32)
	ru.mu.Unlock()
}
