// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// lcio-dump decodes and displays GBT readout frames embedded in LCIO files.
//
// Usage: lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> lcio-dump ./testdata/gbt_063.lcio
//	=== ROF bc:0001/orb:00000010 ===
//	Trigger:    0x0010
//	RUs:             2
//	  RU=   1 (IB) calib=0/0x000000000000
//	    cable= 0 hw=0x00 fee=0x0100 bytes=   9 010101010101010101
//	  RU=   2 (ML) calib=0/0x000000000000
//	    cable= 5 hw=0x09 fee=0x0200 bytes=   9 020202020202020202
//	[...]
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/gbt/decoder"
	"github.com/go-lpc/gbt/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

const usage = `lcio-dump decodes and displays GBT readout frames embedded in LCIO files.

Usage: lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> lcio-dump ./testdata/gbt_063.lcio
 === ROF bc:0001/orb:00000010 ===
 Trigger:    0x0010
 RUs:             2
   RU=   1 (IB) calib=0/0x000000000000
     cable= 0 hw=0x00 fee=0x0100 bytes=   9 010101010101010101
 [...]

`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("lcio-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("lcio", flag.ExitOnError)

		data = fset.Bool("data", true, "display cables payload")
	)

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input LCIO file")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *data)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, data bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	err = xcnv.LCIO2ROF(r, func(rof decoder.ROF, fees []int32) error {
		fmt.Fprintf(wbuf, "=== ROF %v ===\n", rof.IR)
		fmt.Fprintf(wbuf, "Trigger:    0x%04x\n", rof.Trigger)
		fmt.Fprintf(wbuf, "RUs:        % 6d\n", len(rof.RUs))

		i := 0
		for _, ru := range rof.RUs {
			fmt.Fprintf(wbuf, "  RU=% 4d (%v) calib=%d/0x%012x\n",
				ru.SWID, ru.Type, ru.Calib.Counter, ru.Calib.UserField,
			)
			for _, c := range ru.Cables {
				fmt.Fprintf(wbuf, "    cable=%2d hw=0x%02x fee=0x%04x bytes=% 4d",
					c.SW, c.HW, fees[i], len(c.Data),
				)
				if data {
					fmt.Fprintf(wbuf, " %x", c.Data)
				}
				fmt.Fprintf(wbuf, "\n")
				i++
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not decode LCIO file: %w", err)
	}

	return wbuf.Flush()
}
