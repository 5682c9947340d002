// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gbt holds code to decode the raw data of the GBT links of
// the ITS/MFT readout units.
//
// Raw data is organized in CRU pages, each prefixed by a raw data header.
// Pages are cached per link (see package payload), decoded word by word
// (see packages word and rdh) and demultiplexed into per-cable buffers
// owned by the readout units (see packages link and decoder).
package gbt // import "github.com/go-lpc/gbt"

import (
	"fmt"
	"runtime/debug"
)

const modpath = "github.com/go-lpc/gbt"

// Version returns the version of gbt and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	if b.Main.Path == modpath {
		return b.Main.Version, b.Main.Sum
	}

	for _, m := range b.Deps {
		if m.Path != modpath {
			continue
		}
		if r := m.Replace; r != nil {
			switch {
			case r.Version != "" && r.Path != "":
				return fmt.Sprintf("%s %s", r.Path, r.Version), r.Sum
			case r.Version != "":
				return r.Version, r.Sum
			case r.Path != "":
				return r.Path, r.Sum
			}
			return m.Version + "*", ""
		}
		return m.Version, m.Sum
	}
	return "", ""
}
