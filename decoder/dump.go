// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decoder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-lpc/gbt/link"
	"github.com/go-lpc/gbt/rdh"
)

// DumpRawData writes into dir the raw data of the heart beat frames
// which produced printed errors, or the whole time frame of the faulty
// links in DumpTF mode. DumpRawData returns the names of the created files.
//
// Files are named rawdump_<cru>_<link>_<endpoint>_<orbit>.raw.
func (dec *Decoder) DumpRawData(dir string) ([]string, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("decoder: could not create dump directory: %w", err)
	}

	var (
		fnames []string
		specs  = make(map[uint32]*link.Link, len(dec.links))
	)
	for _, l := range dec.links {
		specs[l.SubSpec] = l
	}

	for _, ru := range dec.rus {
		hbfs := ru.HBFToDump()
		keys := make([]uint64, 0, len(hbfs))
		for k := range hbfs {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

		done := make(map[*link.Link]bool)
		for _, key := range keys {
			l, ok := specs[uint32(key>>32)]
			if !ok || done[l] {
				continue
			}
			var (
				entry = uint32(key)
				orbit = hbfs[key]
				full  = dec.cfg.Dump == link.DumpTF || entry == link.NoHBFEntry
			)
			if full {
				done[l] = true
				orbit = l.HBFIR().Orbit
				if p := l.RawData().Piece(0); p != nil {
					if o, ok := firstOrbit(p.Data); ok {
						orbit = o
					}
				}
			}

			fname := filepath.Join(dir, fmt.Sprintf(
				"rawdump_%d_%d_%d_%d.raw", l.CRU, l.InCRU, l.Endpoint, orbit,
			))
			err := dec.dump(fname, l, entry, full)
			if err != nil {
				return fnames, err
			}
			fnames = append(fnames, fname)
		}
	}
	return fnames, nil
}

func (dec *Decoder) dump(fname string, l *link.Link, entry uint32, full bool) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("decoder: could not create raw dump file: %w", err)
	}
	defer f.Close()

	var n int
	switch {
	case full:
		n, err = l.DumpTF(f)
	default:
		n, err = l.DumpHBF(f, entry)
	}
	if err != nil {
		return fmt.Errorf("decoder: could not dump raw data of %s: %w", l.Describe(), err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("decoder: could not close raw dump file: %w", err)
	}
	dec.msg.Infof("dumped %d bytes of %s to %s", n, l.Describe(), fname)
	return nil
}

func firstOrbit(p []byte) (uint32, bool) {
	hdr, err := rdh.Decode(p)
	if err != nil {
		return 0, false
	}
	return hdr.Orbit, true
}
