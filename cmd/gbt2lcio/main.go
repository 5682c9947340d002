// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command gbt2lcio decodes GBT raw data files and converts the readout
// frames to an LCIO file.
//
// All the input files are decoded together: they typically hold the pages
// of the different links of a run, as created by gbt-split.
package main // import "github.com/go-lpc/gbt/cmd/gbt2lcio"

import (
	"compress/flate"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-lpc/gbt/config"
	"github.com/go-lpc/gbt/decoder"
	"github.com/go-lpc/gbt/internal/xcnv"
	"github.com/go-lpc/gbt/rawio"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.New(os.Stdout, "gbt2lcio: ", 0)
)

func main() {
	var (
		oname = flag.String("o", "out.lcio", "path to output LCIO file")
		cname = flag.String("cfg", "gbt.yaml", "path to the decoder configuration file")
		compr = flag.Int("lvl", flate.DefaultCompression, "compression level for output LCIO file")
		run   = flag.Int("run", -1, "run number (default: inferred from the first input file name)")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: gbt2lcio [OPTIONS] file1.raw [file2.raw [...]]

ex:
 $> gbt2lcio -cfg ./gbt.yaml -o out.lcio -lvl=9 ./gbt_063.000-0x0100.raw ./gbt_063.000-0x0200.raw

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		msg.Fatalf("missing input GBT raw file")
	}

	if *oname == "" {
		flag.Usage()
		msg.Fatalf("invalid output LCIO file name")
	}

	cfg, err := config.Load(*cname)
	if err != nil {
		msg.Fatalf("could not load configuration: %+v", err)
	}

	nbr := int32(*run)
	if nbr < 0 {
		nbr, err = runNbrFrom(flag.Arg(0))
		if err != nil {
			msg.Fatalf("could not infer run from %q: %+v", flag.Arg(0), err)
		}
	}

	err = process(*oname, *compr, cfg, nbr, flag.Args())
	if err != nil {
		msg.Fatalf("could not convert GBT files: %+v", err)
	}
}

func process(oname string, lvl int, cfg *config.Config, run int32, fnames []string) error {
	dec, err := decoder.New(cfg)
	if err != nil {
		return fmt.Errorf("could not create decoder: %w", err)
	}

	for _, fname := range fnames {
		f, err := rawio.Open(fname)
		if err != nil {
			return fmt.Errorf("could not open GBT file: %w", err)
		}
		defer f.Close() // pages are decoded after all files are added.

		for i, p := range f.Pages {
			err = dec.AddPage(p)
			if err != nil {
				return fmt.Errorf("could not add page %d of %q: %w", i, fname, err)
			}
		}
	}

	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(lvl)

	n, err := xcnv.ROF2LCIO(context.Background(), w, dec, run, msg)
	if err != nil {
		return fmt.Errorf("could not convert GBT to LCIO: %w", err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}

	err = dec.EndTF()
	if err != nil {
		return fmt.Errorf("could not dump raw data: %w", err)
	}

	msg.Printf("converted %d ROFs", n)
	dec.Report(msg.Writer(), true)
	return nil
}

func runNbrFrom(fname string) (int32, error) {
	var (
		name = filepath.Base(fname)
		run  int32
		itr  int32
	)
	_, err := fmt.Sscanf(name, "gbt_%d.%d", &run, &itr)
	return run, err
}
