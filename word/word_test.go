// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package word

import (
	"bytes"
	"testing"
)

func TestKind(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  []byte
		want Kind
	}{
		{
			name: "header",
			raw: []byte{
				0xff, 0x01, 0x00, 0x00, // active lanes
				0x00, 0x00, 0x00, 0x00, 0x00,
				0xe0, // id
			},
			want: KindHeader,
		},
		{
			name: "trigger",
			raw:  []byte{0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xe8},
			want: KindTrigger,
		},
		{
			name: "trailer",
			raw:  []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0xf0},
			want: KindTrailer,
		},
		{
			name: "diag",
			raw:  []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xe4},
			want: KindDiagnostic,
		},
		{
			name: "calib",
			raw:  []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0xf8},
			want: KindCalibration,
		},
		{
			name: "data-ib",
			raw:  []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x23},
			want: KindData,
		},
		{
			name: "data-ob",
			raw:  []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x5a},
			want: KindData,
		},
		{
			name: "cable-diag-ib",
			raw:  []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x07, 0xa2},
			want: KindCableDiagnostic,
		},
		{
			name: "cable-diag-ob",
			raw:  []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x07, 0xc9},
			want: KindCableDiagnostic,
		},
		{
			name: "cable-status",
			raw:  []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x84},
			want: KindCableStatus,
		},
		{
			name: "unknown",
			raw:  []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0f},
			want: KindUnknown,
		},
		{
			name: "padding",
			raw:  bytes.Repeat([]byte{0xff}, Length),
			want: KindUnknown,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := Word(tc.raw).Kind()
			if got != tc.want {
				t.Fatalf("invalid kind: got=%v, want=%v", got, tc.want)
			}
		})
	}
}

func TestHeader(t *testing.T) {
	raw := []byte{
		0xff, 0xff, 0xff, 0xff, // active lanes: only 28 bits are used
		0x00, 0x00, 0x00, 0x00, 0x00,
		0xe0,
	}
	h, ok := Word(raw).AsHeader()
	if !ok {
		t.Fatalf("not a header")
	}
	if got, want := h.ActiveLanes(), uint32(0xfffffff); got != want {
		t.Fatalf("invalid active lanes: got=0x%x, want=0x%x", got, want)
	}
	if _, ok := Word(raw).AsTrailer(); ok {
		t.Fatalf("header classified as trailer")
	}

	if got, want := MakeHeader(0x1ff), []byte{0xff, 0x01, 0, 0, 0, 0, 0, 0, 0, 0xe0}; !bytes.Equal(got, want) {
		t.Fatalf("invalid header:\ngot= %v\nwant=%v", got, want)
	}
}

func TestTrigger(t *testing.T) {
	raw := []byte{
		0x10, 0x70, // trigger type=0x010, internal, no-data, continuation
		0x34, 0x02, // bc=0x234
		0x78, 0x56, 0x34, 0x12, // orbit
		0x00,
		0xe8,
	}
	trg, ok := Word(raw).AsTrigger()
	if !ok {
		t.Fatalf("not a trigger")
	}
	if got, want := trg.TriggerType(), uint16(0x010); got != want {
		t.Fatalf("invalid trigger type: got=0x%x, want=0x%x", got, want)
	}
	if !trg.Internal() || !trg.NoData() || !trg.Continuation() {
		t.Fatalf("invalid flags: internal=%v no-data=%v cont=%v", trg.Internal(), trg.NoData(), trg.Continuation())
	}
	if got, want := trg.BC(), uint16(0x234); got != want {
		t.Fatalf("invalid bc: got=0x%x, want=0x%x", got, want)
	}
	if got, want := trg.Orbit(), uint32(0x12345678); got != want {
		t.Fatalf("invalid orbit: got=0x%x, want=0x%x", got, want)
	}

	enc := MakeTrigger(TriggerFields{
		Type:         0x010,
		Internal:     true,
		NoData:       true,
		Continuation: true,
		BC:           0x234,
		Orbit:        0x12345678,
	})
	if !bytes.Equal(enc, raw) {
		t.Fatalf("invalid trigger:\ngot= %v\nwant=%v", enc, raw)
	}

	plain, _ := Word(MakeTrigger(TriggerFields{Type: 0x2, BC: 12, Orbit: 3})).AsTrigger()
	if plain.Internal() || plain.NoData() || plain.Continuation() {
		t.Fatalf("invalid flags")
	}
}

func TestTrailer(t *testing.T) {
	raw := []byte{
		0x01, 0x00, 0x00, 0x20, // lanes stops=0x1, lanes timeout=0x2
		0x00, 0x00, 0x00,
		0x1d, // packet done, packet overflow, lane starts violation, lane timeouts
		0x00,
		0xf0,
	}
	tr, ok := Word(raw).AsTrailer()
	if !ok {
		t.Fatalf("not a trailer")
	}
	if got, want := tr.LanesStops(), uint32(0x1); got != want {
		t.Fatalf("invalid lanes stops: got=0x%x, want=0x%x", got, want)
	}
	if got, want := tr.LanesTimeout(), uint32(0x2); got != want {
		t.Fatalf("invalid lanes timeout: got=0x%x, want=0x%x", got, want)
	}
	if !tr.PacketDone() || tr.TransmissionTimeout() || !tr.PacketOverflow() || !tr.LaneStartsViolation() || !tr.LaneTimeouts() {
		t.Fatalf("invalid trailer flags")
	}
	if got, want := tr.PacketState(), uint8(0x1d); got != want {
		t.Fatalf("invalid packet state: got=0x%x, want=0x%x", got, want)
	}

	enc := MakeTrailer(TrailerFields{
		LanesStops:          0x1,
		LanesTimeout:        0x2,
		PacketDone:          true,
		PacketOverflow:      true,
		LaneStartsViolation: true,
		LaneTimeouts:        true,
	})
	if !bytes.Equal(enc, raw) {
		t.Fatalf("invalid trailer:\ngot= %v\nwant=%v", enc, raw)
	}
}

func TestCalibration(t *testing.T) {
	raw := []byte{
		0x06, 0x05, 0x04, 0x03, 0x02, 0x01, // user field
		0x03, 0x02, 0x01, // counter
		0xf8,
	}
	cal, ok := Word(raw).AsCalibration()
	if !ok {
		t.Fatalf("not a calibration word")
	}
	if got, want := cal.UserField(), uint64(0x010203040506); got != want {
		t.Fatalf("invalid user field: got=0x%x, want=0x%x", got, want)
	}
	if got, want := cal.Counter(), uint32(0x010203); got != want {
		t.Fatalf("invalid counter: got=0x%x, want=0x%x", got, want)
	}
	if enc := MakeCalibration(0x010203, 0x010203040506); !bytes.Equal(enc, raw) {
		t.Fatalf("invalid calibration:\ngot= %v\nwant=%v", enc, raw)
	}
}

func TestData(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	for _, tc := range []struct {
		name  string
		id    uint8
		cable uint8
		ib    bool
	}{
		{name: "ib-lane-0", id: DataID(0), cable: 0, ib: true},
		{name: "ib-lane-8", id: DataID(8), cable: 8, ib: true},
		{name: "ob-conn-2-lane-3", id: DataIDOB(2, 3), cable: 0x13},
		{name: "ob-conn-3-lane-6", id: DataIDOB(3, 6), cable: 0x1e},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := Word(MakeData(tc.id, payload))
			if !w.IsData() {
				t.Fatalf("not a data word")
			}
			if got, want := w.IsDataIB(), tc.ib; got != want {
				t.Fatalf("invalid flavor: ib=%v, want=%v", got, want)
			}
			if got, want := w.CableID(), tc.cable; got != want {
				t.Fatalf("invalid cable: got=0x%x, want=0x%x", got, want)
			}
			if !bytes.Equal(w.Payload(), payload) {
				t.Fatalf("invalid payload: got=%v, want=%v", w.Payload(), payload)
			}
		})
	}
}

func TestCableWords(t *testing.T) {
	d, ok := Word(MakeCableDiagnostic(IDCableDiagOB|0x0a, 0x07, 0xdead)).AsCableDiagnostic()
	if !ok {
		t.Fatalf("not a cable diagnostic")
	}
	if d.CableID() != 0x0a || d.LaneErrorID() != 0x07 || d.Data() != 0xdead {
		t.Fatalf("invalid cable diagnostic: cable=0x%x err=0x%x data=0x%x", d.CableID(), d.LaneErrorID(), d.Data())
	}

	s, ok := Word(MakeCableStatus(0x03, 0xbeef)).AsCableStatus()
	if !ok {
		t.Fatalf("not a cable status")
	}
	if s.CableID() != 0x03 || s.Data() != 0xbeef {
		t.Fatalf("invalid cable status: cable=0x%x data=0x%x", s.CableID(), s.Data())
	}

	diag, ok := Word(MakeDiagnostic(0x42)).AsDiagnostic()
	if !ok || diag.Data() != 0x42 {
		t.Fatalf("invalid diagnostic word")
	}
}

func TestFormat(t *testing.T) {
	raw := append(MakeHeader(0x3), make([]byte, 6)...)
	w := At(raw, 0)
	if got, want := w.Format(false, "hdr"), "0x: e0 00 00 00 00 00 00 00 00 03 hdr"; got != want {
		t.Fatalf("invalid format:\ngot= %q\nwant=%q", got, want)
	}
	w = Word(raw)
	if got, want := w.Format(true, ""), "0x: 00 00 00 00 00 00 e0 00 00 00 00 00 00 00 00 03"; got != want {
		t.Fatalf("invalid format:\ngot= %q\nwant=%q", got, want)
	}
}
