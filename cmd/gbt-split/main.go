// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command gbt-split splits a GBT raw data file into n raw files,
// one per FEE id.
package main // import "github.com/go-lpc/gbt/cmd/gbt-split"

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-lpc/gbt/rawio"
	"github.com/go-lpc/gbt/rdh"
)

var (
	msg = log.New(os.Stdout, "gbt-split: ", 0)
)

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset = flag.NewFlagSet("gbt-split", flag.ExitOnError)

		oname = fset.String("o", "out.raw", "path to output raw file")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: gbt-split [OPTIONS] file.raw

ex:
 $> gbt-split -o out.raw ./input.raw
 gbt-split: creating output file "out-0x0100.raw"...
 gbt-split: creating output file "out-0x0200.raw"...

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() != 1 {
		fset.Usage()
		msg.Fatalf("missing input raw file")
	}

	if *oname == "" {
		fset.Usage()
		msg.Fatalf("invalid output raw file")
	}

	for _, arg := range fset.Args() {
		_, err := process(*oname, arg)
		if err != nil {
			msg.Fatalf("could not split raw file %q: %+v", arg, err)
		}
	}
}

// process splits the pages of fname and returns the names of the files
// created, sorted by FEE id.
func process(oname string, fname string) ([]string, error) {
	f, err := rawio.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("could not open raw file: %w", err)
	}
	defer f.Close()

	type output struct {
		f *os.File
		w *bufio.Writer
	}
	out := make(map[uint16]output)
	defer func() {
		for _, o := range out {
			o.f.Close()
		}
	}()

	for i, p := range f.Pages {
		hdr, err := rdh.Decode(p)
		if err != nil {
			return nil, fmt.Errorf("could not decode page %d: %w", i, err)
		}

		o, ok := out[hdr.FEEID]
		if !ok {
			oid := outFileFrom(oname, hdr.FEEID)
			msg.Printf("creating output file %q...", oid)
			fo, err := os.Create(oid)
			if err != nil {
				return nil, fmt.Errorf("could not create output file: %w", err)
			}
			o = output{f: fo, w: bufio.NewWriter(fo)}
			out[hdr.FEEID] = o
		}

		_, err = o.w.Write(p)
		if err != nil {
			return nil, fmt.Errorf("could not write page %d: %w", i, err)
		}
	}

	fees := make([]uint16, 0, len(out))
	for fee := range out {
		fees = append(fees, fee)
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i] < fees[j] })

	onames := make([]string, len(fees))
	for i, fee := range fees {
		o := out[fee]
		err = o.w.Flush()
		if err != nil {
			return nil, fmt.Errorf("could not flush output file: %w", err)
		}
		err = o.f.Close()
		if err != nil {
			return nil, fmt.Errorf("could not close output file: %w", err)
		}
		onames[i] = o.f.Name()
	}

	return onames, nil
}

func outFileFrom(fname string, fee uint16) string {
	var (
		ext   = filepath.Ext(fname)
		oname = strings.TrimSuffix(fname, ext) + fmt.Sprintf("-0x%04x%s", fee, ext)
	)
	return oname
}
