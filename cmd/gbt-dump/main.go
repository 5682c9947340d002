// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// gbt-dump decodes and displays the CRU pages of GBT raw data files.
//
// Usage: gbt-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> gbt-dump -words ./testdata/link.raw
//	=== page 0 (8208 bytes) ===
//	RDH| Ver: 6 Hsz:64 Blgt:8192 FEEId:0x0100 PBit:0 SrcID:0
//	RDH| Offs: 8208 LnkId: 0 PktC:  0 CRUId:0x001 EP:0
//	RDH| HBOrb:       10 HBBC:   0 Trg:0x00000000 Page:    0 Stop:0
//	RDH| DetField:0x00000000 Par:0x0000
//	[0064] 0x: 00 00 00 00 00 00 e0 00 00 00 00 00 00 00 00 03 data header
//	[0080] 0x: 00 00 00 00 00 00 e8 00 00 00 0a 00 01 00 00 10 trigger word
//	[...]
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/gbt/rawio"
	"github.com/go-lpc/gbt/rdh"
	"github.com/go-lpc/gbt/word"
)

const usage = `gbt-dump decodes and displays the CRU pages of GBT raw data files.

Usage: gbt-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> gbt-dump -words ./testdata/link.raw
 === page 0 (8208 bytes) ===
 RDH| Ver: 6 Hsz:64 Blgt:8192 FEEId:0x0100 PBit:0 SrcID:0
 [...]
 [0064] 0x: 00 00 00 00 00 00 e0 00 00 00 00 00 00 00 00 03 data header

`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

type options struct {
	words  bool // display GBT words
	padded bool // GBT words padded to 16 bytes
	fee    uint // FEE id to display, all links when zero
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("gbt-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("gbt-dump", flag.ExitOnError)

		words  = fset.Bool("words", false, "display GBT words")
		padded = fset.Bool("padded", true, "GBT words padded to 16 bytes")
		fee    = fset.Uint("fee", 0, "FEE id of the link to display (default: all)")
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
		log.Fatalf("missing path to input raw file")
	}

	opts := options{words: *words, padded: *padded, fee: *fee}
	for _, fname := range fset.Args() {
		err := process(w, fname, opts)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, opts options) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	r := rawio.NewReader(bufio.NewReader(f))
	for i := 0; ; i++ {
		p, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("could not read page %d: %w", i, err)
		}
		hdr, err := rdh.Decode(p)
		if err != nil {
			return fmt.Errorf("could not decode page %d header: %w", i, err)
		}
		if opts.fee != 0 && uint(hdr.FEEID) != opts.fee {
			continue
		}
		fmt.Fprintf(wbuf, "=== page %d (%d bytes) ===\n", i, len(p))
		hdr.Print(wbuf)
		if opts.words {
			dumpWords(wbuf, p[:hdr.MemorySize], opts.padded)
		}
	}

	return wbuf.Flush()
}

func dumpWords(w io.Writer, p []byte, padded bool) {
	n := word.Length
	if padded {
		n = word.PaddedLength
	}
	for off := rdh.Size; off+word.Length <= len(p); off += n {
		end := off + n
		if end > len(p) {
			end = len(p)
		}
		wrd := word.Word(p[off:end])
		fmt.Fprintf(w, "[%04d] %s\n", off, wrd.Format(padded, wrd.Kind().String()))
	}
}
