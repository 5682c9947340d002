// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gbt

import (
	"runtime/debug"
	"testing"
)

func TestVersionOf(t *testing.T) {
	for _, tc := range []struct {
		name    string
		b       *debug.BuildInfo
		version string
		sum     string
	}{
		{
			name: "nil",
		},
		{
			name: "main",
			b: &debug.BuildInfo{
				Main: debug.Module{Path: modpath, Version: "v0.1.0", Sum: "h1:xxx"},
			},
			version: "v0.1.0",
			sum:     "h1:xxx",
		},
		{
			name: "dep",
			b: &debug.BuildInfo{
				Main: debug.Module{Path: "example.org/daq"},
				Deps: []*debug.Module{
					{Path: "go-hep.org/x/hep", Version: "v0.32.1"},
					{Path: modpath, Version: "v0.2.0", Sum: "h1:yyy"},
				},
			},
			version: "v0.2.0",
			sum:     "h1:yyy",
		},
		{
			name: "replace-path-version",
			b: &debug.BuildInfo{
				Deps: []*debug.Module{{
					Path: modpath, Version: "v0.2.0",
					Replace: &debug.Module{Path: "example.org/gbt", Version: "v0.3.0", Sum: "h1:zzz"},
				}},
			},
			version: "example.org/gbt v0.3.0",
			sum:     "h1:zzz",
		},
		{
			name: "replace-local",
			b: &debug.BuildInfo{
				Deps: []*debug.Module{{
					Path: modpath, Version: "v0.2.0",
					Replace: &debug.Module{},
				}},
			},
			version: "v0.2.0*",
		},
		{
			name: "missing",
			b: &debug.BuildInfo{
				Deps: []*debug.Module{{Path: "go-hep.org/x/hep", Version: "v0.32.1"}},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			version, sum := versionOf(tc.b)
			if version != tc.version {
				t.Fatalf("invalid version: got=%q, want=%q", version, tc.version)
			}
			if sum != tc.sum {
				t.Fatalf("invalid sum: got=%q, want=%q", sum, tc.sum)
			}
		})
	}
}
