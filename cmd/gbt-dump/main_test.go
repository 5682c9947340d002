// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-lpc/gbt/rawio"
	"github.com/go-lpc/gbt/rdh"
	"github.com/go-lpc/gbt/word"
)

func writeRaw(t *testing.T, fname string) {
	t.Helper()
	f, err := os.Create(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	for _, fee := range []uint16{0x100, 0x200} {
		enc := rawio.NewEncoder(f, rdh.Header{FEEID: fee, CRUID: 1}, true, 0)
		err = enc.StartHBF(rdh.IR{Orbit: 10})
		if err != nil {
			t.Fatal(err)
		}
		err = enc.EncodeROF(rawio.ROF{
			IR: rdh.IR{BC: 1, Orbit: 10}, Trigger: 0x10, Lanes: 0x1,
			Data: []rawio.Chunk{{ID: word.DataID(0), Payload: bytes.Repeat([]byte{1}, word.PayloadLength)}},
		})
		if err != nil {
			t.Fatal(err)
		}
		err = enc.Close()
		if err != nil {
			t.Fatal(err)
		}
	}

	err = f.Close()
	if err != nil {
		t.Fatal(err)
	}
}

func TestDump(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "link.raw")
	writeRaw(t, fname)

	xmain(io.Discard, []string{"-words", fname})
}

func TestProcess(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "link.raw")
	writeRaw(t, fname)

	for _, tc := range []struct {
		name string
		opts options
		want []string
		skip []string
	}{
		{
			name: "headers",
			opts: options{padded: true},
			want: []string{
				"=== page 0 ",
				"=== page 1 ",
				"FEEId:0x0100",
				"FEEId:0x0200",
			},
			skip: []string{"data header"},
		},
		{
			name: "words",
			opts: options{padded: true, words: true},
			want: []string{
				"[0064] 0x: 00 00 00 00 00 00 e0",
				"data header",
				"trigger word",
				"data word",
				"data trailer",
			},
		},
		{
			name: "fee",
			opts: options{padded: true, fee: 0x200},
			want: []string{"FEEId:0x0200"},
			skip: []string{"FEEId:0x0100"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			o := new(strings.Builder)
			err := process(o, fname, tc.opts)
			if err != nil {
				t.Fatalf("could not dump file: %+v", err)
			}
			for _, want := range tc.want {
				if !strings.Contains(o.String(), want) {
					t.Fatalf("missing %q in output:\n%s", want, o.String())
				}
			}
			for _, skip := range tc.skip {
				if strings.Contains(o.String(), skip) {
					t.Fatalf("unexpected %q in output:\n%s", skip, o.String())
				}
			}
		})
	}

	err := process(io.Discard, "not-there.raw", options{})
	if err == nil {
		t.Fatalf("expected an error")
	}
}
