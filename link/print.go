// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link // import "github.com/go-lpc/gbt/link"

import (
	"fmt"
	"strings"

	"github.com/go-lpc/gbt/rdh"
	"github.com/go-lpc/gbt/word"
)

func (l *Link) printRDH(hdr *rdh.Header) {
	o := new(strings.Builder)
	hdr.Print(o)
	l.msg.Infof("%s", strings.TrimRight(o.String(), "\n"))
}

func (l *Link) printHeader(w word.Word) {
	h, _ := w.AsHeader()
	l.msg.Infof("%s", w.Format(false, fmt.Sprintf(
		"Offs %d | GBT payload header : Lanes: 0x%07x", l.offset, h.ActiveLanes(),
	)))
}

func (l *Link) printTrigger(t word.Trigger) {
	l.msg.Infof("%s", t.Format(false, fmt.Sprintf(
		"Offs %d | Trigger: Orbit %d BC: %d Trigger: 0x%03x noData:%v internal:%v continuation:%v",
		l.offset, t.Orbit(), t.BC(), t.TriggerType(), t.NoData(), t.Internal(), t.Continuation(),
	)))
}

func (l *Link) printTrailer(t word.Trailer) {
	l.msg.Infof("%s", t.Format(false, fmt.Sprintf(
		"Offs %d | Trailer: Done=%v Lanes TO: 0x%07x | Lanes ST: 0x%07x",
		l.offset, t.PacketDone(), t.LanesTimeout(), t.LanesStops(),
	)))
}

func (l *Link) printDiagnostic(w word.Word) {
	l.msg.Infof("%s", w.Format(false, fmt.Sprintf("Offs %d | Diagnostic word", l.offset)))
}

func (l *Link) printCalibration(c word.Calibration) {
	l.msg.Infof("%s", c.Format(false, fmt.Sprintf(
		"Offs %d | Calibration word %5d | user_data 0x%06x", l.offset, c.Counter(), c.UserField(),
	)))
}

func (l *Link) printCableDiagnostic(d word.CableDiagnostic) {
	l.msg.Infof("%s", d.Format(false, fmt.Sprintf(
		"Offs %d | Cable diagnostic: cable 0x%02x lane error %d data 0x%016x",
		l.offset, d.CableID(), d.LaneErrorID(), d.Data(),
	)))
}

func (l *Link) printCableStatus(s word.CableStatus) {
	l.msg.Infof("%s", s.Format(false, fmt.Sprintf(
		"Offs %d | Cable status: cable 0x%02x data 0x%016x", l.offset, s.CableID(), s.Data(),
	)))
}

// dumpPage prints all the words of a raw page.
func (l *Link) dumpPage(p []byte) {
	l.msg.Debugf("Caching new RDH block for %s", l.Describe())
	hdr, err := rdh.Decode(p)
	if err != nil {
		l.msg.Debugf("could not decode RDH: %+v", err)
		return
	}
	l.printRDH(&hdr)
	end := int(hdr.MemorySize)
	if end > len(p) {
		end = len(p)
	}
	for off := rdh.Size; off+word.Length <= end; off += l.wordLen {
		w := word.At(p, off)
		com := fmt.Sprintf(" | FeeID:0x%04x offs: %6d %v", l.FEE, off, w.Kind())
		if c, ok := w.AsCalibration(); ok {
			com += fmt.Sprintf(" #%d", c.Counter())
		}
		l.msg.Debugf("%s", w.Format(false, com))
	}
}
