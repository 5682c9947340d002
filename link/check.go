// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link // import "github.com/go-lpc/gbt/link"

import (
	"fmt"
	"math/bits"

	"github.com/go-lpc/gbt/mapping"
	"github.com/go-lpc/gbt/rdh"
	"github.com/go-lpc/gbt/word"
)

// Result is the outcome of a validation check.
type Result struct {
	Sev  Severity
	Diag string // diagnostics of the anomalies found, if any
}

func (res Result) merge(o Result) Result {
	res.Sev |= o.Sev
	switch {
	case res.Diag == "":
		res.Diag = o.Diag
	case o.Diag != "":
		res.Diag += "; " + o.Diag
	}
	return res
}

// flag accounts one anomaly of category c with default severity sev.
// The diagnostic is printed for the first occurrence of the category, or
// for all of them with a verbosity above VerboseErrors.
func (l *Link) flag(c ErrorCategory, sev Severity, format string, args ...interface{}) Result {
	l.stat.ErrorCounts[c]++
	l.errorBits |= 1 << c
	if l.escalate&(1<<c) != 0 {
		sev = Abort
	}
	res := Result{
		Sev:  sev,
		Diag: fmt.Sprintf("%v: %s", c, fmt.Sprintf(format, args...)),
	}
	if l.needToPrintError(l.stat.ErrorCounts[c]) {
		l.msg.Warnf("%s %s | %s", l.Describe(), c.Description(), res.Diag)
		res.Sev |= ErrorPrinted
	}
	return res
}

var noErr = Result{Sev: NoError}

// checkRDH makes sure the page starts with a valid raw data header.
func (l *Link) checkRDH(hdr *rdh.Header, err error) Result {
	if err != nil || !hdr.IsValid() {
		return l.flag(ErrNoRDHAtStart, Abort,
			"page %d does not start with a RDH (version=%d, size=%d)",
			l.raw.CurrentPieceID(), hdr.Version, hdr.HeaderSize,
		)
	}
	size := int(hdr.MemorySize)
	switch {
	case size < rdh.Size || size > l.piece.Size():
		return l.flag(ErrRDHSizeInvalid, Abort,
			"memory size %d out of range [%d, %d]", size, rdh.Size, l.piece.Size(),
		)
	case l.cfg.Word == Padded && (size-rdh.Size)%word.PaddedLength != 0:
		return l.flag(ErrRDHSizeInvalid, Abort,
			"memory size %d is not a multiple of the word length", size,
		)
	}
	if hdr.FEEID != l.FEE {
		return l.flag(ErrRDHFEEMismatch, Abort,
			"RDH FEE id 0x%04x, link FEE id 0x%04x", hdr.FEEID, l.FEE,
		)
	}

	res := noErr
	if l.packetCounter >= 0 && hdr.PacketCounter != uint8(l.packetCounter+1) {
		res = l.flag(ErrPacketCounterJump, Warning,
			"packet counter jump from %d to %d", l.packetCounter, hdr.PacketCounter,
		)
	}
	l.packetCounter = int32(hdr.PacketCounter)
	return res
}

// checkRDHStop makes sure a new HBF starts only after the stop page of
// the previous one.
func (l *Link) checkRDHStop(prev, hdr *rdh.Header) Result {
	if prev.Orbit != hdr.Orbit && prev.Stop == 0 {
		return l.flag(ErrPageNotStopped, Warning,
			"new HBF orbit %d starts while page of orbit %d was not stopped", hdr.Orbit, prev.Orbit,
		)
	}
	return noErr
}

// checkDiagnosticWord makes sure the word following a stop page header
// is a diagnostic word.
func (l *Link) checkDiagnosticWord(w word.Word) Result {
	if w == nil || !w.IsDiagnostic() {
		return l.flag(ErrMissingDiagnosticWord, Warning, "%s", l.wordDesc(w))
	}
	return noErr
}

// checkHeaderWord makes sure the payload starts with a payload header.
func (l *Link) checkHeaderWord(w word.Word) Result {
	if w == nil || !w.IsHeader() {
		return l.flag(ErrMissingGBTHeader, Abort, "%s", l.wordDesc(w))
	}
	return noErr
}

// checkActiveLanes makes sure the active lanes are served by the RU type
// (whose cables are described by mask) and by this link.
func (l *Link) checkActiveLanes(mask uint32) Result {
	if bad := l.lanesActive &^ mask; bad != 0 {
		return l.flag(ErrInvalidActiveLanes, Warning,
			"active lanes 0x%07x, %d unexpected lanes for RU type %v (cables 0x%07x)",
			l.lanesActive, bits.OnesCount32(bad), l.ruType(), mask,
		)
	}
	if l.ID.Lanes != 0 && l.lanesActive&^l.ID.Lanes != 0 {
		return l.flag(ErrInvalidActiveLanes, Warning,
			"active lanes 0x%07x not served by link (lanes 0x%07x)", l.lanesActive, l.ID.Lanes,
		)
	}
	return noErr
}

// checkIRNotExtracted makes sure a trigger provided the ROF interaction record.
func (l *Link) checkIRNotExtracted() Result {
	if l.ir.IsDummy() {
		return l.flag(ErrMissingGBTTrigger, Warning, "offset %d", l.offset)
	}
	return noErr
}

// checkGBTDataID makes sure the word is a data word of the flavor of the
// RU type. Cable diagnostic and status words are accounted and skipped.
func (l *Link) checkGBTDataID(w word.Word) Result {
	switch {
	case w.IsData():
		if w.IsDataIB() != (l.ruType() == mapping.IB) {
			return l.flag(ErrCableDataHeadWrong, Skip,
				"data word id 0x%02x for RU type %v", w.ID(), l.ruType(),
			)
		}
		return noErr

	case w.IsCableDiagnostic():
		l.stat.NCableDiagnostics++
		if l.cfg.Verbosity >= VerboseHeaders {
			d, _ := w.AsCableDiagnostic()
			l.printCableDiagnostic(d)
		}
		return Result{Sev: Skip}

	case w.IsCableStatus():
		l.stat.NCableStatus++
		if l.cfg.Verbosity >= VerboseHeaders {
			s, _ := w.AsCableStatus()
			l.printCableStatus(s)
		}
		return Result{Sev: Skip}
	}
	return l.flag(ErrGBTWordNotRecognized, Skip, "%s", l.wordDesc(w))
}

// checkCableID makes sure the software cable index is legal and served
// by this link.
func (l *Link) checkCableID(sw uint8) Result {
	if sw == mapping.Invalid {
		return l.flag(ErrWrongCableID, Skip,
			"cable id 0x%02x at offset %d for RU type %v", l.word().CableID(), l.offset, l.ruType(),
		)
	}
	if l.ID.Lanes != 0 && l.ID.Lanes&(1<<sw) == 0 {
		return l.flag(ErrCableNotServed, Skip,
			"cable %d (lanes 0x%07x)", sw, l.ID.Lanes,
		)
	}
	return noErr
}

// checkDataForStoppedLane makes sure no data is received for a lane
// which already received its stop in the current ROF.
func (l *Link) checkDataForStoppedLane(sw uint8) Result {
	if l.lanesStop&(1<<sw) != 0 {
		return l.flag(ErrDataForStoppedLane, Warning, "cable %d", sw)
	}
	return noErr
}

// checkTrailerWord accounts the lanes stops and timeouts of the trailer
// and its error flags.
func (l *Link) checkTrailerWord(t word.Trailer) Result {
	if !t.IsTrailer() {
		return l.flag(ErrMissingGBTTrailer, Warning, "%s", l.wordDesc(t.Word))
	}
	l.lanesStop |= t.LanesStops()
	l.lanesTimeOut |= t.LanesTimeout()

	res := noErr
	if t.LaneTimeouts() || t.LanesTimeout() != 0 {
		res = res.merge(l.flag(ErrLanesTimeout, Warning, "lanes timeout 0x%07x", t.LanesTimeout()))
	}
	if t.TransmissionTimeout() {
		res = res.merge(l.flag(ErrTransmissionTimeout, Warning, "offset %d", l.offset))
	}
	if t.PacketOverflow() {
		res = res.merge(l.flag(ErrPacketOverflow, Warning, "offset %d", l.offset))
	}
	if t.LaneStartsViolation() {
		res = res.merge(l.flag(ErrLaneStartsViolation, Warning, "offset %d", l.offset))
	}
	return res
}

// checkPacketDoneMissing flags a trailer without packet done when the
// page is not over (notEnd), or a missing trailer when t is nil.
func (l *Link) checkPacketDoneMissing(t *word.Trailer, notEnd bool) Result {
	if t == nil || (!t.PacketDone() && notEnd) {
		return l.flag(ErrPacketDoneMissing, Warning, "offset %d, ROF %v", l.offset, l.ir)
	}
	return noErr
}

// checkTrailerMissing flags an input exhausted before any trailer
// closed the payload.
func (l *Link) checkTrailerMissing() Result {
	return l.flag(ErrMissingGBTTrailer, Warning, "input exhausted for ROF %v", l.ir)
}

// checkLanesStops makes sure all the active lanes were stopped or timed out.
func (l *Link) checkLanesStops() Result {
	if missing := l.lanesActive &^ (l.lanesStop | l.lanesTimeOut); missing != 0 {
		return l.flag(ErrUnstoppedLanes, Warning,
			"lanes 0x%07x active, 0x%07x stopped, 0x%07x timed out",
			l.lanesActive, l.lanesStop, l.lanesTimeOut,
		)
	}
	return noErr
}

// checkAlignmentPadding makes sure the page alignment padding under the
// cursor is only made of the fill byte.
func (l *Link) checkAlignmentPadding() Result {
	end := l.lastPageSize
	if n := l.piece.Size(); n < end {
		end = n
	}
	for i, v := range l.piece.Data[l.offset:end] {
		if v != word.Padding {
			return l.flag(ErrWrongAlignmentWord, Warning,
				"byte 0x%02x at offset %d", v, l.offset+i,
			)
		}
	}
	return noErr
}

func (l *Link) wordDesc(w word.Word) string {
	if w == nil {
		return fmt.Sprintf("no word at offset %d", l.offset)
	}
	return fmt.Sprintf("%v at offset %d: %s", w.Kind(), l.offset, w.Format(false, ""))
}
