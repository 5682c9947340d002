// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/gbt/config"
	"github.com/go-lpc/gbt/decoder"
	"github.com/go-lpc/gbt/link"
	"github.com/go-lpc/gbt/mapping"
	"github.com/go-lpc/gbt/rawio"
	"github.com/go-lpc/gbt/rdh"
	"github.com/go-lpc/gbt/word"
)

type syncBuffer struct {
	bytes.Buffer
}

func (*syncBuffer) Sync() error { return nil }

func pay(v byte) []byte { return bytes.Repeat([]byte{v}, word.PayloadLength) }

func encode(t *testing.T, fee uint16, rofs ...rawio.ROF) []byte {
	t.Helper()
	o := new(bytes.Buffer)
	enc := rawio.NewEncoder(o, rdh.Header{FEEID: fee, CRUID: 1}, true, 0)
	err := enc.StartHBF(rdh.IR{Orbit: 5})
	if err != nil {
		t.Fatalf("could not start HBF: %+v", err)
	}
	for _, rof := range rofs {
		err := enc.EncodeROF(rof)
		if err != nil {
			t.Fatalf("could not encode ROF: %+v", err)
		}
	}
	err = enc.Close()
	if err != nil {
		t.Fatalf("could not close encoder: %+v", err)
	}
	return o.Bytes()
}

func TestMarshalROF(t *testing.T) {
	l := link.New(link.ID{FEE: 0x42}, nil, link.Config{Output: new(syncBuffer)})
	for _, tc := range []struct {
		name string
		rof  decoder.ROF
		fees []uint16
	}{
		{
			name: "empty",
			rof:  decoder.ROF{IR: rdh.IR{BC: 1, Orbit: 2}, Trigger: 0x10, RUs: []decoder.RUData{}},
		},
		{
			name: "cables",
			rof: decoder.ROF{
				IR: rdh.IR{BC: 3564, Orbit: 0xdeadbeef}, Trigger: 0x12,
				RUs: []decoder.RUData{
					{
						SWID: 1, Type: mapping.IB,
						Calib: link.Calib{Counter: 7, UserField: 0x0000_1122_3344_5566},
						Cables: []link.CableData{
							{SW: 0, HW: 0, Link: l, Data: pay(1)},
							{SW: 8, HW: 8, Link: l, Data: append(pay(2), pay(3)...)},
						},
					},
					{
						SWID: 12, Type: mapping.OL,
						Cables: []link.CableData{
							{SW: 27, HW: 0x1e},
						},
					},
				},
			},
			fees: []uint16{0x42, 0x42, 0},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := MarshalROF(tc.rof)
			got, fees, err := UnmarshalROF(p)
			if err != nil {
				t.Fatalf("could not unmarshal frame: %+v", err)
			}
			if !reflect.DeepEqual(fees, tc.fees) {
				t.Fatalf("invalid FEE ids:\ngot= %v\nwant=%v", fees, tc.fees)
			}
			for i := range tc.rof.RUs {
				for j := range tc.rof.RUs[i].Cables {
					tc.rof.RUs[i].Cables[j].Link = nil
				}
			}
			if !reflect.DeepEqual(got, tc.rof) {
				t.Fatalf("invalid round-trip:\ngot= %+v\nwant=%+v", got, tc.rof)
			}
		})
	}
}

func TestUnmarshalROFErrors(t *testing.T) {
	p := MarshalROF(decoder.ROF{
		RUs: []decoder.RUData{{SWID: 1, Cables: []link.CableData{{Data: pay(1)}}}},
	})
	for _, tc := range []struct {
		name string
		p    []byte
		err  string
	}{
		{name: "empty", p: nil, err: "daq: short frame (0 bytes)"},
		{name: "short-ru", p: p[:frameHdrLen+2], err: "daq: short RU header #0"},
		{name: "short-cable", p: p[:frameHdrLen+ruHdrLen+4], err: "daq: short cable header #0 of RU 1"},
		{name: "short-payload", p: p[:len(p)-1], err: "daq: short cable payload #0 of RU 1"},
		{name: "trailing", p: append(append([]byte(nil), p...), 1), err: "daq: 1 trailing bytes"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := UnmarshalROF(tc.p)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got, want := err.Error(), tc.err; got != want {
				t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
			}
		})
	}
}

func TestServer(t *testing.T) {
	var (
		out  = new(syncBuffer)
		logs = new(syncBuffer)
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tctx := tdaq.Context{
		Ctx: ctx,
		Msg: log.NewMsgStream("gbt-decoder", log.LvlDebug, logs),
	}

	srv := New(&config.Config{
		Decoder: config.Decoder{Workers: 2},
		Links: []config.Link{
			{FEE: 0x100, RU: 1, RUType: "IB", CRU: 1},
		},
	})
	srv.LogOutput = out

	var (
		resp tdaq.Frame
		req  tdaq.Frame
	)

	err := srv.Input(tctx, tdaq.Frame{})
	if err == nil {
		t.Fatalf("expected an error on unconfigured device")
	}

	for _, tc := range []struct {
		name string
		h    func(tdaq.Context, *tdaq.Frame, tdaq.Frame) error
	}{
		{"/config", srv.OnConfig},
		{"/init", srv.OnInit},
		{"/reset", srv.OnReset},
		{"/start", srv.OnStart},
	} {
		err := tc.h(tctx, &resp, req)
		if err != nil {
			t.Fatalf("could not run %s: %+v", tc.name, err)
		}
	}

	tfs := [][]byte{
		encode(t, 0x100,
			rawio.ROF{IR: rdh.IR{BC: 1, Orbit: 5}, Trigger: 0x10, Lanes: 0x1, Data: []rawio.Chunk{
				{ID: word.DataID(0), Payload: pay(1)},
			}},
			rawio.ROF{IR: rdh.IR{BC: 2, Orbit: 5}, Trigger: 0x10, Lanes: 0x1, Data: []rawio.Chunk{
				{ID: word.DataID(0), Payload: pay(2)},
			}},
		),
		encode(t, 0x100,
			rawio.ROF{IR: rdh.IR{BC: 9, Orbit: 5}, Trigger: 0x10, Lanes: 0x2, Data: []rawio.Chunk{
				{ID: word.DataID(1), Payload: pay(3)},
			}},
		),
	}
	for i, tf := range tfs {
		err := srv.Input(tctx, tdaq.Frame{Body: tf})
		if err != nil {
			t.Fatalf("could not process TF %d: %+v", i, err)
		}
	}

	err = srv.Input(tctx, tdaq.Frame{Body: []byte{1, 2, 3}})
	if err == nil {
		t.Fatalf("expected an error on invalid TF")
	}

	if got, want := srv.NTFs, int64(3); got != want {
		t.Fatalf("invalid number of TFs: got=%d, want=%d", got, want)
	}
	if got, want := srv.NROFs, int64(3); got != want {
		t.Fatalf("invalid number of ROFs: got=%d, want=%d", got, want)
	}

	want := []struct {
		ir   rdh.IR
		sw   uint8
		data []byte
	}{
		{rdh.IR{BC: 1, Orbit: 5}, 0, pay(1)},
		{rdh.IR{BC: 2, Orbit: 5}, 0, pay(2)},
		{rdh.IR{BC: 9, Orbit: 5}, 1, pay(3)},
	}
	for i, want := range want {
		var dst tdaq.Frame
		err := srv.Output(tctx, &dst)
		if err != nil {
			t.Fatalf("could not output ROF %d: %+v", i, err)
		}
		rof, fees, err := UnmarshalROF(dst.Body)
		if err != nil {
			t.Fatalf("could not unmarshal ROF %d: %+v", i, err)
		}
		if rof.IR != want.ir {
			t.Fatalf("invalid IR for ROF %d: got=%v, want=%v", i, rof.IR, want.ir)
		}
		if len(rof.RUs) != 1 || len(rof.RUs[0].Cables) != 1 {
			t.Fatalf("invalid ROF %d: %+v", i, rof)
		}
		c := rof.RUs[0].Cables[0]
		if c.SW != want.sw || !bytes.Equal(c.Data, want.data) || fees[0] != 0x100 {
			t.Fatalf("invalid cable for ROF %d: %+v (fees=%v)", i, c, fees)
		}
	}

	for _, tc := range []struct {
		name string
		h    func(tdaq.Context, *tdaq.Frame, tdaq.Frame) error
	}{
		{"/stop", srv.OnStop},
		{"/quit", srv.OnQuit},
	} {
		err := tc.h(tctx, &resp, req)
		if err != nil {
			t.Fatalf("could not run %s: %+v", tc.name, err)
		}
	}

	if got, want := logs.String(), "received /stop command... -> tfs=3, rofs=3, errors=0"; !strings.Contains(got, want) {
		t.Fatalf("missing stop message %q:\n%s", want, got)
	}

	cancel()
	var dst tdaq.Frame
	err = srv.Output(tctx, &dst)
	if err != nil || dst.Body != nil {
		t.Fatalf("invalid output after cancel: body=%v, err=%+v", dst.Body, err)
	}
}
