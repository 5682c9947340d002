// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/go-lpc/gbt/decoder"
	"go-hep.org/x/hep/lcio"
)

// ROF2LCIO decodes all the readout frames of dec and writes them as LCIO
// events of run run.
// ROF2LCIO returns the number of events written.
func ROF2LCIO(ctx context.Context, w *lcio.Writer, dec *decoder.Decoder, run int32, msg *log.Logger) (int, error) {
	rus := make([]int32, 0, len(dec.RUs()))
	for _, ru := range dec.RUs() {
		rus = append(rus, int32(ru.SWID))
	}

	err := w.WriteRunHeader(&lcio.RunHeader{
		RunNumber: run,
		Detector:  Detector,
		Descr:     "GBT links raw data",
		Params: lcio.Params{
			Ints: map[string][]int32{
				"RUs":   rus,
				"Links": {int32(len(dec.Links()))},
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("could not write run header: %w", err)
	}

	i := 0
	for {
		rof, err := dec.DecodeROF(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return i, nil
			}
			return i, fmt.Errorf("could not decode ROF %d: %w", i, err)
		}
		if i%100 == 0 {
			msg.Printf("processing ROF %d (%v)...", i, rof.IR)
		}

		evt := lcio.Event{
			RunNumber:   run,
			EventNumber: int32(i),
			TimeStamp:   int64(rof.IR.Orbit)*BCPerOrbit + int64(rof.IR.BC),
			Detector:    Detector,
			Params: lcio.Params{
				Ints: map[string][]int32{
					"Orbit":   {int32(rof.IR.Orbit)},
					"BC":      {int32(rof.IR.BC)},
					"Trigger": {int32(rof.Trigger)},
				},
			},
		}

		var cables lcio.GenericObject
		cables.Data = make([]lcio.GenericObjectData, 0, rof.NCables())
		for _, ru := range rof.RUs {
			for _, cd := range ru.Cables {
				var fee int32 = -1
				if cd.Link != nil {
					fee = int32(cd.Link.FEE)
				}
				i32s := make([]int32, hdrLen, hdrLen+(len(cd.Data)+3)/4)
				i32s[iRU] = int32(ru.SWID)
				i32s[iRUType] = int32(ru.Type)
				i32s[iSW] = int32(cd.SW)
				i32s[iHW] = int32(cd.HW)
				i32s[iFEE] = fee
				i32s[iSize] = int32(len(cd.Data))
				i32s[iCalibCounter] = int32(ru.Calib.Counter)
				i32s[iCalibUserLo] = int32(uint32(ru.Calib.UserField))
				i32s[iCalibUserHi] = int32(uint32(ru.Calib.UserField >> 32))
				cables.Data = append(cables.Data, lcio.GenericObjectData{
					I32s: pack(i32s, cd.Data),
				})
			}
		}
		evt.Add(Collection, &cables)

		err = w.WriteEvent(&evt)
		if err != nil {
			return i, fmt.Errorf("could not write ROF %d: %w", i, err)
		}
		i++
	}
}

// pack appends the little-endian int32 words of p to dst.
// The last word is zero padded.
func pack(dst []int32, p []byte) []int32 {
	for len(p) >= 4 {
		dst = append(dst, int32(binary.LittleEndian.Uint32(p)))
		p = p[4:]
	}
	if len(p) > 0 {
		var w [4]byte
		copy(w[:], p)
		dst = append(dst, int32(binary.LittleEndian.Uint32(w[:])))
	}
	return dst
}

// unpack returns the n first bytes of the little-endian int32 words src.
func unpack(src []int32, n int) ([]byte, error) {
	if n < 0 || n > 4*len(src) {
		return nil, fmt.Errorf("xcnv: invalid payload size %d for %d words", n, len(src))
	}
	p := make([]byte, 4*len(src))
	for i, v := range src {
		binary.LittleEndian.PutUint32(p[4*i:], uint32(v))
	}
	return p[:n], nil
}
