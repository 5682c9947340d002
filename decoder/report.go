// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decoder

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// CableSizes returns the mean and standard deviation of the number of
// bytes collected per cable and per frame.
func (dec *Decoder) CableSizes() (mean, std float64) {
	if dec.ncable == 0 {
		return 0, 0
	}
	var (
		xs = make([]float64, 0, len(dec.sizes))
		ws = make([]float64, 0, len(dec.sizes))
	)
	for n := range dec.sizes {
		xs = append(xs, float64(n))
	}
	sort.Float64s(xs)
	for _, x := range xs {
		ws = append(ws, dec.sizes[int(x)])
	}
	return stat.MeanStdDev(xs, ws)
}

// accountSize histograms the size of one collected cable.
func (dec *Decoder) accountSize(n int) {
	dec.sizes[n]++
	dec.ncable++
}

// Report writes a summary of the decoding statistics to w.
// Links without errors are omitted when skipNoErr is set.
func (dec *Decoder) Report(w io.Writer, skipNoErr bool) {
	mean, std := dec.CableSizes()
	fmt.Fprintf(w, "decoded %d ROFs from %d links (%d RUs)\n", dec.nrofs, len(dec.links), len(dec.rus))
	fmt.Fprintf(w, "cable payload: %d entries, mean=%.2f bytes, std=%.2f bytes\n", dec.ncable, mean, std)
	for _, l := range dec.links {
		st := l.Stat()
		if skipNoErr && st.NErrors() == 0 {
			continue
		}
		fmt.Fprintf(w, "--- %s (status in TF: %v)\n", l.Describe(), l.StatusInTF)
		st.Print(w, skipNoErr)
	}
	tot := dec.Total()
	fmt.Fprintf(w, "total: %d errors, %d aborts, %d recoveries\n", tot.NErrors(), tot.NAborts, tot.NRecoveries)
}
