// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link // import "github.com/go-lpc/gbt/link"

import (
	"fmt"
	"io"
	"strings"
)

// ErrorCategory identifies one kind of decoding anomaly.
type ErrorCategory uint8

const (
	ErrNoRDHAtStart ErrorCategory = iota
	ErrRDHSizeInvalid
	ErrRDHFEEMismatch
	ErrPageNotStopped
	ErrPacketCounterJump
	ErrMissingDiagnosticWord
	ErrMissingGBTHeader
	ErrInvalidActiveLanes
	ErrMissingGBTTrigger
	ErrGBTWordNotRecognized
	ErrCableDataHeadWrong
	ErrWrongCableID
	ErrCableNotServed
	ErrDataForStoppedLane
	ErrMissingGBTTrailer
	ErrPacketDoneMissing
	ErrUnstoppedLanes
	ErrLanesTimeout
	ErrTransmissionTimeout
	ErrPacketOverflow
	ErrLaneStartsViolation
	ErrWrongAlignmentWord

	NErrorCategories
)

var errCategories = [NErrorCategories]struct {
	name string
	desc string
}{
	ErrNoRDHAtStart:          {"NoRDHAtStart", "Page data does not start with RDH"},
	ErrRDHSizeInvalid:        {"RDHSizeInvalid", "RDH memory size is invalid"},
	ErrRDHFEEMismatch:        {"RDHFEEMismatch", "RDH FEE id does not match the link"},
	ErrPageNotStopped:        {"PageNotStopped", "New HBF while last page was not stopped"},
	ErrPacketCounterJump:     {"PacketCounterJump", "Jump in RDH packet counter"},
	ErrMissingDiagnosticWord: {"MissingDiagnosticWord", "Missing diagnostic word after stop page"},
	ErrMissingGBTHeader:      {"MissingGBTHeader", "GBT payload header was expected"},
	ErrInvalidActiveLanes:    {"InvalidActiveLanes", "Active lanes pattern conflicts with expected for given RU type"},
	ErrMissingGBTTrigger:     {"MissingGBTTrigger", "Interaction record not extracted from GBT trigger"},
	ErrGBTWordNotRecognized:  {"GBTWordNotRecognized", "GBT word not recognized"},
	ErrCableDataHeadWrong:    {"CableDataHeadWrong", "GBT data flavor does not match RU type"},
	ErrWrongCableID:          {"WrongCableID", "Cable id is not expected for given RU type"},
	ErrCableNotServed:        {"CableNotServed", "Cable is not served by this link"},
	ErrDataForStoppedLane:    {"DataForStoppedLane", "Data was received for stopped lane"},
	ErrMissingGBTTrailer:     {"MissingGBTTrailer", "GBT payload trailer was expected"},
	ErrPacketDoneMissing:     {"PacketDoneMissing", "Packet done is missing in the trailer while CRU page is not over"},
	ErrUnstoppedLanes:        {"UnstoppedLanes", "Active lanes were not stopped"},
	ErrLanesTimeout:          {"LanesTimeout", "Lanes timeout reported in the trailer"},
	ErrTransmissionTimeout:   {"TransmissionTimeout", "Transmission timeout reported in the trailer"},
	ErrPacketOverflow:        {"PacketOverflow", "Packet overflow reported in the trailer"},
	ErrLaneStartsViolation:   {"LaneStartsViolation", "Lane starts violation reported in the trailer"},
	ErrWrongAlignmentWord:    {"WrongAlignmentWord", "Page alignment padding is not made of 0xff"},
}

func (c ErrorCategory) String() string {
	if c >= NErrorCategories {
		return fmt.Sprintf("ErrorCategory(%d)", uint8(c))
	}
	return errCategories[c].name
}

// Description returns a human readable description of the category.
func (c ErrorCategory) Description() string {
	if c >= NErrorCategories {
		return c.String()
	}
	return errCategories[c].desc
}

// ParseErrorCategory parses the name of an error category.
func ParseErrorCategory(s string) (ErrorCategory, error) {
	s = strings.TrimPrefix(s, "Err")
	for i, v := range errCategories {
		if strings.EqualFold(v.name, s) {
			return ErrorCategory(i), nil
		}
	}
	return NErrorCategories, fmt.Errorf("link: invalid error category %q", s)
}

// NPacketStates is the number of possible trailer packet states.
const NPacketStates = 32

// Stat holds the decoding statistics of a link.
type Stat struct {
	FEEID uint16 // FEE id of the link

	NTriggers         uint32 // number of triggers opening a new ROF
	NPackets          uint32 // number of CRU pages seen
	NROFs             uint32 // number of ROFs collected
	NCalibrations     uint32 // number of calibration words
	NCableDiagnostics uint32 // number of cable diagnostic words
	NCableStatus      uint32 // number of cable status words
	NAborts           uint32 // number of collections aborted on errors
	NRecoveries       uint32 // number of recoveries after an abort

	PacketStates [NPacketStates]uint32
	ErrorCounts  [NErrorCategories]uint32
}

// Clear resets all counters.
func (st *Stat) Clear() {
	*st = Stat{FEEID: st.FEEID}
}

// Add accumulates the counters of o into st.
func (st *Stat) Add(o Stat) {
	st.NTriggers += o.NTriggers
	st.NPackets += o.NPackets
	st.NROFs += o.NROFs
	st.NCalibrations += o.NCalibrations
	st.NCableDiagnostics += o.NCableDiagnostics
	st.NCableStatus += o.NCableStatus
	st.NAborts += o.NAborts
	st.NRecoveries += o.NRecoveries
	for i, v := range o.PacketStates {
		st.PacketStates[i] += v
	}
	for i, v := range o.ErrorCounts {
		st.ErrorCounts[i] += v
	}
}

// NErrors returns the total number of errors.
func (st Stat) NErrors() uint32 {
	var n uint32
	for _, v := range st.ErrorCounts {
		n += v
	}
	return n
}

// Print displays the statistics.
// When skipNoErr is set, nothing is printed for a link without errors.
func (st *Stat) Print(w io.Writer, skipNoErr bool) {
	nerr := st.NErrors()
	if skipNoErr && nerr == 0 {
		return
	}
	fmt.Fprintf(w, "FEEID#0x%04x Packet States Statistics (total packets: %d, triggers: %d, ROFs: %d)\n",
		st.FEEID, st.NPackets, st.NTriggers, st.NROFs,
	)
	for i, v := range st.PacketStates {
		if v == 0 {
			continue
		}
		var flags []string
		for j, name := range []string{"Done", "TransmissionTimeout", "PacketOverflow", "LaneStartsViolation", "LaneTimeouts"} {
			if i&(1<<j) != 0 {
				flags = append(flags, name)
			}
		}
		fmt.Fprintf(w, "counts for triggers B[%s] : %d\n", strings.Join(flags, "|"), v)
	}
	fmt.Fprintf(w, "Calibrations: %d, cable diagnostics: %d, cable status: %d, aborts: %d, recoveries: %d\n",
		st.NCalibrations, st.NCableDiagnostics, st.NCableStatus, st.NAborts, st.NRecoveries,
	)
	fmt.Fprintf(w, "Decoding errors: %d\n", nerr)
	for i, v := range st.ErrorCounts {
		if v == 0 {
			continue
		}
		fmt.Fprintf(w, "%-60s: %d\n", ErrorCategory(i).Description(), v)
	}
}
