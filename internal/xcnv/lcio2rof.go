// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"
	"io"

	"github.com/go-lpc/gbt/decoder"
	"github.com/go-lpc/gbt/link"
	"github.com/go-lpc/gbt/mapping"
	"github.com/go-lpc/gbt/rdh"
	"go-hep.org/x/hep/lcio"
)

// LCIO2ROF reads back the readout frames stored in r and calls f for
// each of them.
// Cable data of the provided frames do not reference any link: the FEE
// ids are provided through fees, indexed like the frame cables.
func LCIO2ROF(r *lcio.Reader, f func(rof decoder.ROF, fees []int32) error) error {
	for r.Next() {
		evt := r.Event()
		rof, fees, err := rofFrom(&evt)
		if err != nil {
			return fmt.Errorf("could not convert event %d: %w", evt.EventNumber, err)
		}
		err = f(rof, fees)
		if err != nil {
			return err
		}
	}

	err := r.Err()
	if err != nil && err != io.EOF {
		return fmt.Errorf("could not read LCIO file: %w", err)
	}
	return nil
}

func rofFrom(evt *lcio.Event) (decoder.ROF, []int32, error) {
	var (
		rof  decoder.ROF
		fees []int32
	)

	bc := evt.Params.Ints["BC"]
	orbit := evt.Params.Ints["Orbit"]
	trigger := evt.Params.Ints["Trigger"]
	if len(bc) != 1 || len(orbit) != 1 || len(trigger) != 1 {
		return rof, nil, fmt.Errorf("xcnv: missing interaction record")
	}
	rof.IR = rdh.IR{BC: uint16(bc[0]), Orbit: uint32(orbit[0])}
	rof.Trigger = uint16(trigger[0])

	if !evt.Has(Collection) {
		return rof, nil, fmt.Errorf("xcnv: missing %q collection", Collection)
	}
	cables, ok := evt.Get(Collection).(*lcio.GenericObject)
	if !ok {
		return rof, nil, fmt.Errorf("xcnv: invalid %q collection type %T", Collection, evt.Get(Collection))
	}

	for i, data := range cables.Data {
		raw := data.I32s
		if len(raw) < hdrLen {
			return rof, nil, fmt.Errorf("xcnv: cable %d: short header (%d words)", i, len(raw))
		}
		p, err := unpack(raw[hdrLen:], int(raw[iSize]))
		if err != nil {
			return rof, nil, fmt.Errorf("xcnv: cable %d: %w", i, err)
		}

		swid := uint16(raw[iRU])
		n := len(rof.RUs)
		if n == 0 || rof.RUs[n-1].SWID != swid {
			rof.RUs = append(rof.RUs, decoder.RUData{
				SWID: swid,
				Type: mapping.RUType(raw[iRUType]),
				Calib: link.Calib{
					Counter:   uint32(raw[iCalibCounter]),
					UserField: uint64(uint32(raw[iCalibUserLo])) | uint64(uint32(raw[iCalibUserHi]))<<32,
				},
			})
			n++
		}
		ru := &rof.RUs[n-1]
		ru.Cables = append(ru.Cables, link.CableData{
			SW:   uint8(raw[iSW]),
			HW:   uint8(raw[iHW]),
			Data: p,
		})
		fees = append(fees, raw[iFEE])
	}
	return rof, fees, nil
}
