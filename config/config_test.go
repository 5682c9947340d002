// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/gbt/link"
)

const sample = `
decoder:
  verbosity: headers
  word: unpadded
  dump: hbf
  dump-dir: /tmp/dumps
  escalate: [PacketDoneMissing, ErrWrongCableID]
  workers: 2
links:
  - {fee: 0x1000, ru: 1, ru-type: IB, cru: 5, cru-link: 0}
  - {fee: 0x2000, ru: 2, ru-type: OL, ru-link: 0, cru: 5, cru-link: 1, lanes: 0x3fff}
  - {fee: 0x2001, ru: 2, ru-type: OL, ru-link: 1, cru: 5, cru-link: 2, lanes: 0xfffc000}
alert:
  smtp: smtp.example.org
  from: daq@example.org
  to: [shifter@example.org]
  abort-threshold: 3
boot:
  monitor: 2s
  procs:
    - {name: dec-1, cmd: gbt-decoder, args: [-id, dec-1]}
`

func TestLoad(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "gbt.yaml")
	err := os.WriteFile(fname, []byte(sample), 0644)
	if err != nil {
		t.Fatalf("could not create config file: %+v", err)
	}

	cfg, err := Load(fname)
	if err != nil {
		t.Fatalf("could not load config: %+v", err)
	}

	if got, want := cfg.Decoder.Workers, 2; got != want {
		t.Fatalf("invalid workers: got=%d, want=%d", got, want)
	}
	if got, want := len(cfg.Links), 3; got != want {
		t.Fatalf("invalid number of links: got=%d, want=%d", got, want)
	}
	if got, want := cfg.Links[2].ID(), (link.ID{FEE: 0x2001, CRU: 5, InCRU: 2, InRU: 1, Lanes: 0xfffc000}); got != want {
		t.Fatalf("invalid link id:\ngot= %+v\nwant=%+v", got, want)
	}
	// defaults are kept for missing fields.
	if got, want := cfg.Alert.Port, 587; got != want {
		t.Fatalf("invalid alert port: got=%d, want=%d", got, want)
	}
	if got, want := cfg.Boot.Monitor, 2*time.Second; got != want {
		t.Fatalf("invalid monitor period: got=%v, want=%v", got, want)
	}

	lcfg, err := cfg.Decoder.LinkConfig()
	if err != nil {
		t.Fatalf("could not build link config: %+v", err)
	}
	want := link.Config{
		Verbosity: link.VerboseHeaders,
		Word:      link.Unpadded,
		Dump:      link.DumpHBF,
		Escalate:  []link.ErrorCategory{link.ErrPacketDoneMissing, link.ErrWrongCableID},
	}
	if !reflect.DeepEqual(lcfg, want) {
		t.Fatalf("invalid link config:\ngot= %+v\nwant=%+v", lcfg, want)
	}

	o := new(bytes.Buffer)
	err = Encode(o, cfg)
	if err != nil {
		t.Fatalf("could not encode config: %+v", err)
	}
	back, err := Decode(o)
	if err != nil {
		t.Fatalf("could not decode encoded config: %+v", err)
	}
	if !reflect.DeepEqual(back, cfg) {
		t.Fatalf("round-trip failed:\ngot= %+v\nwant=%+v", back, cfg)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestDecodeEmpty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("could not decode empty config: %+v", err)
	}
	if want := Default(); !reflect.DeepEqual(*cfg, want) {
		t.Fatalf("invalid default config:\ngot= %+v\nwant=%+v", *cfg, want)
	}
}

func TestValidate(t *testing.T) {
	ib := func(fee uint16, ru uint16, cruLink uint8, lanes uint32) Link {
		return Link{FEE: fee, RU: ru, RUType: "IB", CRU: 1, InCRU: cruLink, Lanes: lanes}
	}

	for _, tc := range []struct {
		name string
		cfg  Config
		err  string
	}{
		{
			name: "ok",
			cfg: Config{Links: []Link{
				ib(1, 1, 0, 0x0ff),
				ib(2, 1, 1, 0x100),
				ib(3, 2, 2, 0),
			}},
		},
		{
			name: "unknown-verbosity",
			cfg:  Config{Decoder: Decoder{Verbosity: "loud"}},
			err:  `config: invalid decoder verbosity: link: invalid verbosity "loud"`,
		},
		{
			name: "unknown-escalated-error",
			cfg:  Config{Decoder: Decoder{Escalate: []string{"oops"}}},
			err:  `config: invalid escalated error`,
		},
		{
			name: "negative-workers",
			cfg:  Config{Decoder: Decoder{Workers: -1}},
			err:  "config: invalid number of decoder workers (-1)",
		},
		{
			name: "dup-fee",
			cfg:  Config{Links: []Link{ib(1, 1, 0, 0), ib(1, 2, 1, 0)}},
			err:  "config: links #0 and #1 share FEE id 0x0001",
		},
		{
			name: "dup-cru-link",
			cfg:  Config{Links: []Link{ib(1, 1, 0, 0), ib(2, 2, 0, 0)}},
			err:  "config: links #0 and #1 share CRU link (cru=1, link=0, ep=0)",
		},
		{
			name: "bad-ru-type",
			cfg:  Config{Links: []Link{{FEE: 1, RUType: "XL"}}},
			err:  `config: link #0 (FEE 0x0001): mapping: invalid RU type "XL"`,
		},
		{
			name: "lanes-out-of-range",
			cfg:  Config{Links: []Link{ib(1, 1, 0, 0x200)}},
			err:  "config: link #0 (FEE 0x0001): lanes 0x0000200 not available on RU type IB (0x00001ff)",
		},
		{
			name: "mixed-ru-types",
			cfg: Config{Links: []Link{
				ib(1, 1, 0, 0x1),
				{FEE: 2, RU: 1, RUType: "ML", CRU: 1, InCRU: 1, Lanes: 0x2},
			}},
			err: "config: link #1 (FEE 0x0002): RU 1 has type IB, not ML",
		},
		{
			name: "shared-ru-without-lanes",
			cfg:  Config{Links: []Link{ib(1, 1, 0, 0), ib(2, 1, 1, 0x1)}},
			err:  "config: link #0 (FEE 0x0001) of RU 1 must declare its lanes",
		},
		{
			name: "overlapping-lanes",
			cfg:  Config{Links: []Link{ib(1, 1, 0, 0x3), ib(2, 1, 1, 0x6)}},
			err:  "config: link #1 (FEE 0x0002): lanes 0x0000006 already served in RU 1 (0x0000003)",
		},
		{
			name: "alert-without-recipients",
			cfg:  Config{Alert: Alert{SMTP: "smtp", From: "me", Port: 25}},
			err:  "config: alert recipients missing",
		},
		{
			name: "boot-without-cmd",
			cfg:  Config{Boot: Boot{Procs: []Proc{{Name: "p"}}}},
			err:  `config: boot process #0 ("p") has no command`,
		},
		{
			name: "boot-dup-names",
			cfg:  Config{Boot: Boot{Procs: []Proc{{Name: "p", Cmd: "a"}, {Name: "p", Cmd: "b"}}}},
			err:  `config: boot processes #0 and #1 share name "p"`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(&tc.cfg)
			switch {
			case err == nil && tc.err == "":
				// ok
			case err == nil:
				t.Fatalf("expected an error (%s)", tc.err)
			case tc.err == "":
				t.Fatalf("unexpected error: %+v", err)
			case !strings.HasPrefix(err.Error(), tc.err):
				t.Fatalf("invalid error:\ngot= %v\nwant=%v", err, tc.err)
			}
		})
	}
}
