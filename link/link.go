// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package link implements the decoding of the raw data of a single GBT
// link: the validation of the CRU pages and protocol words, and the
// demultiplexing of the payload into the cable buffers of the readout
// unit fed by the link.
package link // import "github.com/go-lpc/gbt/link"

import (
	"fmt"
	"io"
	"os"

	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/gbt/mapping"
	"github.com/go-lpc/gbt/payload"
	"github.com/go-lpc/gbt/rdh"
	"github.com/go-lpc/gbt/word"
)

// CRUPageAlignment is the alignment in bytes of the CRU pages.
const CRUPageAlignment = 16

// NoHBFEntry is the HBF entry recorded for errors affecting the whole
// time frame of a link.
const NoHBFEntry = 0xffffffff

// Config holds the decoding options of a link.
type Config struct {
	Verbosity          Verbosity
	Word               WordFormat
	AlwaysParseTrigger bool // use trigger words with the continuation flag set
	Dump               DumpMode
	Triggers           TriggerSink // optional collector of external physics triggers

	// Escalate lists the error categories whose anomalies abort the
	// collection of the link.
	Escalate []ErrorCategory

	// Output is where diagnostics are printed (default: os.Stdout).
	Output log.WriteSyncer
}

// ID identifies a link in the readout.
type ID struct {
	CRU      uint16 // CRU id
	FEE      uint16 // FEE id
	Endpoint uint8  // CRU endpoint
	InCRU    uint8  // link id within the CRU
	InRU     uint8  // link id within the readout unit
	Channel  uint16 // channel in the reader input
	Lanes    uint32 // software cables served by the link, 0 for all
}

// Link decodes the raw data of one GBT link.
type Link struct {
	ID

	SubSpec    uint32
	Status     Status // status of the last collection attempt
	StatusInTF Status // status of the link within the current time frame

	cfg      Config
	escalate uint64
	wordLen  int
	msg      log.MsgStream
	ru       *RU

	raw    payload.SG
	piece  *payload.Piece
	offset int

	lastPageSize  int
	lastRDH       rdh.Header
	hasRDH        bool
	packetCounter int32
	hbfEntry      uint32

	ir      rdh.IR // interaction record of the ROF
	irHBF   rdh.IR // interaction record of the HBF
	trigger uint16

	lanesActive   uint32 // lanes declared by the payload header
	lanesStop     uint32 // lanes which received a stop in the trailer
	lanesTimeOut  uint32 // lanes which received a timeout
	lanesWithData uint32 // lanes which transmitted data
	errorBits     uint64 // categories of the errors of the last attempt

	rofJump bool
	stat    Stat
}

// New creates a link with the provided identity, feeding ru.
func New(id ID, ru *RU, cfg Config) *Link {
	l := &Link{
		ID:            id,
		SubSpec:       rdh.SubSpec(id.CRU, id.InCRU, id.Endpoint),
		cfg:           cfg,
		wordLen:       cfg.Word.Len(),
		ru:            ru,
		packetCounter: -1,
		hbfEntry:      0,
		ir:            rdh.Dummy,
		irHBF:         rdh.Dummy,
	}
	for _, c := range cfg.Escalate {
		l.escalate |= 1 << c
	}
	w := cfg.Output
	if w == nil {
		w = os.Stdout
	}
	l.msg = log.NewMsgStream(l.Describe(), cfg.Verbosity.level(), w)
	l.stat.FEEID = id.FEE
	if ru != nil {
		ru.attach(l)
	}
	return l
}

// Describe returns a short description of the link identity.
func (l *Link) Describe() string {
	ru := -1
	if l.ru != nil {
		ru = int(l.ru.SWID)
	}
	return fmt.Sprintf("link FEEId:0x%04x CRU:%d Lr:%d EP:%d RU:%d", l.FEE, l.CRU, l.InCRU, l.Endpoint, ru)
}

// RU returns the readout unit fed by the link.
func (l *Link) RU() *RU { return l.ru }

// IR returns the interaction record of the last collected ROF.
func (l *Link) IR() rdh.IR { return l.ir }

// HBFIR returns the interaction record of the current heart beat frame.
func (l *Link) HBFIR() rdh.IR { return l.irHBF }

// Trigger returns the trigger type of the last collected ROF.
func (l *Link) Trigger() uint16 { return l.trigger }

// Lanes returns the lanes bit masks of the current ROF: lanes declared
// active, stopped, timed out and with data.
func (l *Link) Lanes() (active, stop, timeout, data uint32) {
	return l.lanesActive, l.lanesStop, l.lanesTimeOut, l.lanesWithData
}

// ErrorBits returns the bit mask of the error categories seen during
// the last collection attempt.
func (l *Link) ErrorBits() uint64 { return l.errorBits }

// Stat returns a copy of the decoding statistics of the link.
func (l *Link) Stat() Stat { return l.stat }

// RawData returns the pages cached for the current time frame.
func (l *Link) RawData() *payload.SG { return &l.raw }

// CacheData appends a CRU page to the raw data of the link.
// The page is not copied.
func (l *Link) CacheData(p []byte) {
	l.raw.AddPage(p)
	if l.cfg.Verbosity >= VerboseRawDump {
		l.dumpPage(p)
	}
}

// Clear resets the decoding state of the link, and optionally its
// statistics and the raw data of the current time frame.
func (l *Link) Clear(resetStat, resetTFRaw bool) {
	l.lastPageSize = 0
	l.lanesActive = 0
	l.lanesStop = 0
	l.lanesTimeOut = 0
	l.lanesWithData = 0
	l.errorBits = 0
	l.ir = rdh.Dummy
	if resetTFRaw {
		l.raw.Clear()
		l.piece = nil
		l.offset = 0
		l.hasRDH = false
		l.lastRDH = rdh.Header{}
		l.packetCounter = -1
		l.hbfEntry = 0
		l.irHBF = rdh.Dummy
		l.rofJump = false
		l.StatusInTF = None
	}
	if resetStat {
		l.stat.Clear()
	}
	l.Status = None
}

// MarkROFJump records that the link delivered data for a later ROF than
// the other links. The next collection returns CachedDataExist until
// ClearROFJump is called.
func (l *Link) MarkROFJump() { l.rofJump = true }

// ClearROFJump resets the ROF jump flag.
func (l *Link) ClearROFJump() { l.rofJump = false }

// ROFJumpWasSeen returns whether the link holds data for a later ROF.
func (l *Link) ROFJumpWasSeen() bool { return l.rofJump }

// AccountRecovery records that the link delivered data again at ir,
// after a collection aborted on error.
func (l *Link) AccountRecovery(ir rdh.IR) {
	l.stat.NRecoveries++
	l.StatusInTF = Recovery
	if l.cfg.Verbosity > Silent {
		l.msg.Warnf("%s recovered at %v", l.Describe(), ir)
	}
}

// needToPrintError returns whether the count-th occurrence of an error
// should be printed.
func (l *Link) needToPrintError(count uint32) bool {
	if l.cfg.Verbosity == Silent {
		return false
	}
	return l.cfg.Verbosity > VerboseErrors || count == 1
}

// hasWord returns whether a full GBT word is available at the cursor.
func (l *Link) hasWord() bool {
	end := l.lastPageSize
	if n := l.piece.Size(); n < end {
		end = n
	}
	return l.offset+word.Length <= end
}

func (l *Link) word() word.Word {
	return word.At(l.piece.Data, l.offset)
}

// isAlignmentPadding returns whether the cursor points at the 0xff
// padding closing an unpadded CRU page.
func (l *Link) isAlignmentPadding() bool {
	if l.cfg.Word != Unpadded {
		return false
	}
	d := l.piece.Data
	if l.offset >= len(d) || d[l.offset] != word.Padding || l.offset+CRUPageAlignment < l.lastPageSize {
		return false
	}
	end := l.offset + word.Length
	return !(end <= l.lastPageSize && end <= len(d) && d[end-1] != word.Padding)
}

// eval records the faulty HBF of a printed error and handles an abort.
// It returns the severity stripped of its ErrorPrinted bit.
func (l *Link) eval(res Result) Severity {
	sev := res.Sev
	if sev&ErrorPrinted != 0 {
		if l.ru != nil {
			l.ru.markHBF(uint64(l.SubSpec)<<32+uint64(l.hbfEntry), l.irHBF.Orbit)
		}
		sev &^= ErrorPrinted
	}
	if sev&Abort != 0 {
		l.raw.SetDone()
		l.stat.NAborts++
		l.StatusInTF = AbortedOnError
	}
	return sev
}

func (l *Link) abort() Status {
	l.Status = AbortedOnError
	return l.Status
}

// CollectCableData collects the payload of one ROF into the cable
// buffers of the readout unit of the link.
//
// Cable hardware ids are mapped to software indices with m.
func (l *Link) CollectCableData(m *mapping.Mapping) Status {
	l.Status = None
	if l.rofJump {
		l.Status = CachedDataExist
		return l.Status
	}

	l.piece = l.raw.CurrentPiece()
	l.ir = rdh.Dummy
	var (
		expectPacketDone bool
		pendingTrailer   bool // last trailer did not have packet done
	)

	for l.piece != nil {
		if l.offset > 0 && !l.hasWord() {
			l.offset = 0
			if l.piece = l.raw.NextPiece(); l.piece == nil {
				break
			}
		}

		if l.offset == 0 {
			if l.processRDH(m) {
				return l.abort()
			}
			continue
		}

		padding := false
		{
			var (
				trg    word.Trigger
				hasTrg bool
			)
		scan:
			for l.hasWord() {
				w := l.word()
				if t, ok := w.AsTrigger(); ok {
					if l.cfg.Verbosity >= VerboseHeaders {
						l.printTrigger(t)
					}
					l.offset += l.wordLen
					if !t.NoData() || t.Internal() {
						trg, hasTrg = t, true
					} else if l.cfg.Triggers != nil {
						l.cfg.Triggers.AddTrigger(PhysTrigger{
							IR:   rdh.IR{BC: t.BC(), Orbit: t.Orbit()},
							Type: uint64(t.TriggerType()),
						})
					}
					if !t.Internal() {
						continue
					}
					if !l.hasWord() {
						break scan
					}
					w = l.word()
				}
				if c, ok := w.AsCalibration(); ok {
					if l.cfg.Verbosity >= VerboseHeaders {
						l.printCalibration(c)
					}
					l.offset += l.wordLen
					l.stat.NCalibrations++
					if l.ru != nil {
						l.ru.SetCalib(Calib{Counter: c.Counter(), UserField: c.UserField()})
					}
					continue
				}
				break
			}

			if hasTrg {
				if !trg.Continuation() || l.cfg.AlwaysParseTrigger {
					if !trg.Continuation() {
						l.stat.NTriggers++
					}
					l.ir = rdh.IR{BC: trg.BC(), Orbit: trg.Orbit()}
					l.trigger = trg.TriggerType()
					l.lanesStop = 0
					l.lanesWithData = 0
				}
				if trg.NoData() {
					if l.cfg.Verbosity >= VerboseHeaders {
						l.msg.Infof("Offs %d Returning with status %v for %s", l.offset, DataSeen, l.Describe())
					}
					l.stat.NROFs++
					l.Status = DataSeen
					return l.Status
				}
			}

			if padding = l.isAlignmentPadding(); padding || !l.hasWord() {
				if padding {
					if sev := l.eval(l.checkAlignmentPadding()); sev&Abort != 0 {
						return l.abort()
					}
					l.offset = l.lastPageSize
				}
				if l.cfg.Verbosity >= VerboseHeaders {
					l.msg.Infof("Offs %d End of the CRU page reached while scanning triggers, continue to next page, %s", l.offset, l.Describe())
				}
				continue
			}

			// a trigger is supposed to be seen
			if sev := l.eval(l.checkIRNotExtracted()); sev&Abort != 0 {
				return l.abort()
			}
		}

		expectPacketDone = true
		for l.hasWord() {
			w := l.word()
			if w.IsTrailer() {
				break
			}
			if padding = l.isAlignmentPadding(); padding {
				break
			}
			pendingTrailer = false
			if l.cfg.Verbosity >= VerboseData {
				l.msg.Debugf("%s", w.Format(false, fmt.Sprintf("| FeeID:0x%04x offs: %6d", l.FEE, l.offset)))
			}
			sev := l.eval(l.checkGBTDataID(w))
			if sev&Abort != 0 {
				return l.abort()
			}
			if sev&Skip == 0 {
				hw := w.CableID()
				sw := m.CableHW2SW(l.ruType(), hw)
				sev = l.eval(l.checkCableID(sw))
				if sev&Abort != 0 {
					return l.abort()
				}
				if sev&Skip == 0 {
					if sev := l.eval(l.checkDataForStoppedLane(sw)); sev&Abort != 0 {
						return l.abort()
					}
					l.ru.addCableData(sw, hw, l, w.Payload())
					l.lanesWithData |= 1 << sw
				}
			}
			l.offset += l.wordLen
		}

		switch {
		case padding:
			if sev := l.eval(l.checkAlignmentPadding()); sev&Abort != 0 {
				return l.abort()
			}
			l.offset = l.lastPageSize
			continue

		case !l.hasWord():
			// packet continues on the next page
			continue
		}

		t, _ := l.word().AsTrailer()
		if l.cfg.Verbosity >= VerboseHeaders {
			l.printTrailer(t)
		}
		l.offset += l.wordLen

		if sev := l.eval(l.checkTrailerWord(t)); sev&Abort != 0 {
			return l.abort()
		}
		if !t.PacketDone() {
			notEnd := l.hasWord() && !l.isAlignmentPadding()
			if sev := l.eval(l.checkPacketDoneMissing(&t, notEnd)); sev&Abort != 0 {
				return l.abort()
			}
			pendingTrailer = true
			continue
		}

		l.stat.PacketStates[t.PacketState()]++
		if sev := l.eval(l.checkLanesStops()); sev&Abort != 0 {
			return l.abort()
		}
		if l.cfg.Verbosity >= VerboseHeaders {
			l.msg.Infof("Offs %d Leaving collectCableData for %s with %v", l.offset, l.Describe(), DataSeen)
		}
		l.stat.NROFs++
		l.Status = DataSeen
		return l.Status
	}

	if expectPacketDone {
		// input exhausted while a trailer with packet done was expected.
		var res Result
		switch {
		case pendingTrailer:
			res = l.checkPacketDoneMissing(nil, false)
		default:
			res = l.checkTrailerMissing()
		}
		if sev := l.eval(res); sev&Abort != 0 {
			return l.abort()
		}
		l.stat.NROFs++
		l.Status = DataSeen
		return l.Status
	}
	l.Status = StoppedOnEndOfData
	return l.Status
}

// processRDH decodes and validates the raw data header at the start of
// the current page, and the payload header following it.
// processRDH returns true if the collection must be aborted.
func (l *Link) processRDH(m *mapping.Mapping) bool {
	hdr, err := rdh.Decode(l.piece.Data)
	if l.cfg.Verbosity >= VerboseHeaders && err == nil {
		l.printRDH(&hdr)
	}

	hbfEntry := l.hbfEntry
	l.hbfEntry = NoHBFEntry // in case of problems with the RDH, dump the full TF
	if sev := l.eval(l.checkRDH(&hdr, err)); sev&Abort != 0 {
		return true
	}
	l.hbfEntry = hbfEntry

	prev, hasPrev := l.lastRDH, l.hasRDH
	l.lastRDH, l.hasRDH = hdr, true
	l.stat.NPackets++
	if hdr.PageCount == 0 || l.irHBF.IsDummy() {
		l.irHBF = hdr.HeartBeatIR()
		l.hbfEntry = uint32(l.raw.CurrentPieceID())
	}
	if hasPrev {
		if sev := l.eval(l.checkRDHStop(&prev, &hdr)); sev&Abort != 0 {
			return true
		}
	}

	l.offset = rdh.Size
	l.lastPageSize = int(hdr.MemorySize)
	if l.lastPageSize == rdh.Size {
		return false // empty page
	}

	if hdr.Stop != 0 {
		// only a diagnostic word may follow the header of a stop page.
		var diag word.Word
		if l.hasWord() {
			diag = l.word()
			if l.cfg.Verbosity >= VerboseHeaders {
				l.printDiagnostic(diag)
			}
		}
		if sev := l.eval(l.checkDiagnosticWord(diag)); sev&Abort != 0 {
			return true
		}
		l.offset = l.piece.Size()
		return false
	}

	var hw word.Word
	if l.hasWord() {
		hw = l.word()
		if l.cfg.Verbosity >= VerboseHeaders {
			l.printHeader(hw)
		}
		l.offset += l.wordLen
	}
	if sev := l.eval(l.checkHeaderWord(hw)); sev&Abort != 0 {
		return true
	}
	h, _ := hw.AsHeader()
	l.lanesActive = h.ActiveLanes()

	if sev := l.eval(l.checkActiveLanes(m.CablesMask(l.ruType()))); sev&Abort != 0 {
		return true
	}
	return false
}

func (l *Link) ruType() mapping.RUType {
	if l.ru == nil {
		return mapping.NRUTypes
	}
	return l.ru.Type
}

// DumpHBF writes to w the pages of the heart beat frame starting at the
// entry-th cached page. The HBF ends with its stop page.
func (l *Link) DumpHBF(w io.Writer, entry uint32) (int, error) {
	var n int
	for i := int(entry); i < l.raw.Len(); i++ {
		p := l.raw.Piece(i)
		hdr, err := rdh.Decode(p.Data)
		if err != nil {
			return n, fmt.Errorf("link: could not decode page %d of %s: %w", i, l.Describe(), err)
		}
		if i > int(entry) && hdr.PageCount == 0 {
			break
		}
		nn, err := w.Write(p.Data)
		n += nn
		if err != nil {
			return n, fmt.Errorf("link: could not dump page %d of %s: %w", i, l.Describe(), err)
		}
		if hdr.Stop != 0 {
			break
		}
	}
	return n, nil
}

// DumpTF writes to w all the pages cached for the current time frame.
func (l *Link) DumpTF(w io.Writer) (int, error) {
	var n int
	for i := 0; i < l.raw.Len(); i++ {
		nn, err := w.Write(l.raw.Piece(i).Data)
		n += nn
		if err != nil {
			return n, fmt.Errorf("link: could not dump page %d of %s: %w", i, l.Describe(), err)
		}
	}
	return n, nil
}
