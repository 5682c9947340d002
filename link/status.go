// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link // import "github.com/go-lpc/gbt/link"

import (
	"fmt"
	"strings"

	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/gbt/word"
)

// Status is the outcome of one ROF collection attempt of a link.
type Status int8

const (
	None               Status = iota // no collection attempted yet
	AbortedOnError                   // collection aborted on a critical error
	StoppedOnEndOfData               // input exhausted before any payload
	DataSeen                         // one ROF was collected
	Recovery                         // link recovering from an error
	CachedDataExist                  // link holds data of a later ROF
)

func (st Status) String() string {
	switch st {
	case None:
		return "none"
	case AbortedOnError:
		return "aborted-on-error"
	case StoppedOnEndOfData:
		return "stopped-on-end-of-data"
	case DataSeen:
		return "data-seen"
	case Recovery:
		return "recovery"
	case CachedDataExist:
		return "cached-data-exist"
	}
	return fmt.Sprintf("Status(%d)", int8(st))
}

// Severity is a bit mask describing the outcome of a validation check.
type Severity uint8

const (
	NoError      Severity = 0x0
	Warning      Severity = 0x1 // report and continue
	Skip         Severity = 0x2 // discard the current word and continue
	Abort        Severity = 0x4 // stop collecting data for this link
	ErrorPrinted Severity = 0x1 << 7
)

// Has returns whether all the bits of o are set in sev.
func (sev Severity) Has(o Severity) bool { return sev&o == o && o != 0 }

func (sev Severity) String() string {
	if sev == NoError {
		return "NoError"
	}
	var o []string
	for _, v := range []struct {
		bit  Severity
		name string
	}{
		{Warning, "Warning"},
		{Skip, "Skip"},
		{Abort, "Abort"},
		{ErrorPrinted, "ErrorPrinted"},
	} {
		if sev&v.bit != 0 {
			o = append(o, v.name)
		}
	}
	return strings.Join(o, "|")
}

// Verbosity controls the amount of diagnostics printed by a link.
type Verbosity int8

const (
	Silent         Verbosity = -1
	VerboseErrors  Verbosity = 0 // first occurrence of each error
	VerboseHeaders Verbosity = 1 // all errors, page headers and protocol words
	VerboseData    Verbosity = 2 // also the data words
	VerboseRawDump Verbosity = 3 // also all the words of the cached pages
)

func (v Verbosity) String() string {
	switch v {
	case Silent:
		return "silent"
	case VerboseErrors:
		return "errors"
	case VerboseHeaders:
		return "headers"
	case VerboseData:
		return "data"
	case VerboseRawDump:
		return "raw"
	}
	return fmt.Sprintf("Verbosity(%d)", int8(v))
}

// ParseVerbosity parses the name of a verbosity level.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(s) {
	case "silent":
		return Silent, nil
	case "", "errors", "err":
		return VerboseErrors, nil
	case "headers":
		return VerboseHeaders, nil
	case "data":
		return VerboseData, nil
	case "raw", "raw-dump":
		return VerboseRawDump, nil
	}
	return VerboseErrors, fmt.Errorf("link: invalid verbosity %q", s)
}

func (v Verbosity) level() log.Level {
	switch {
	case v <= Silent:
		return log.LvlError
	case v == VerboseErrors:
		return log.LvlWarning
	case v == VerboseHeaders:
		return log.LvlInfo
	}
	return log.LvlDebug
}

// DumpMode selects the raw data dumped for the links which reported errors.
type DumpMode int8

const (
	DumpNone DumpMode = iota // no raw data dumps on error
	DumpHBF                  // dump the faulty heart beat frames
	DumpTF                   // dump the whole time frame
)

func (m DumpMode) String() string {
	switch m {
	case DumpNone:
		return "none"
	case DumpHBF:
		return "hbf"
	case DumpTF:
		return "tf"
	}
	return fmt.Sprintf("DumpMode(%d)", int8(m))
}

// ParseDumpMode parses the name of a raw data dump mode.
func ParseDumpMode(s string) (DumpMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return DumpNone, nil
	case "hbf":
		return DumpHBF, nil
	case "tf":
		return DumpTF, nil
	}
	return DumpNone, fmt.Errorf("link: invalid dump mode %q", s)
}

// WordFormat is the width of the GBT words of a link.
type WordFormat int8

const (
	Padded   WordFormat = iota // 16 bytes words
	Unpadded                   // 10 bytes words, pages aligned with 0xff padding
)

// Len returns the length in bytes of one word.
func (f WordFormat) Len() int {
	if f == Unpadded {
		return word.Length
	}
	return word.PaddedLength
}

func (f WordFormat) String() string {
	switch f {
	case Padded:
		return "padded"
	case Unpadded:
		return "unpadded"
	}
	return fmt.Sprintf("WordFormat(%d)", int8(f))
}

// ParseWordFormat parses the name of a word format.
func ParseWordFormat(s string) (WordFormat, error) {
	switch strings.ToLower(s) {
	case "", "padded":
		return Padded, nil
	case "unpadded":
		return Unpadded, nil
	}
	return Padded, fmt.Errorf("link: invalid word format %q", s)
}
