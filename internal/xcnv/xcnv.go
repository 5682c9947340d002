// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcnv provides tools to convert decoded GBT readout frames
// to/from LCIO.
package xcnv // import "github.com/go-lpc/gbt/internal/xcnv"

const (
	// Detector is the detector name stored in LCIO run headers and events.
	Detector = "ITS-GBT"

	// Collection is the name of the LCIO collection holding the cables data.
	Collection = "GBTCables"

	// BCPerOrbit is the number of bunch crossings in an LHC orbit.
	BCPerOrbit = 3564
)

// cable header layout, in int32 words, before the packed payload.
const (
	iRU = iota
	iRUType
	iSW
	iHW
	iFEE
	iSize
	iCalibCounter
	iCalibUserLo
	iCalibUserHi
	hdrLen
)
