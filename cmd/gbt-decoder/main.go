// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command gbt-decoder starts a TDAQ server decoding the raw data of a set
// of GBT links.
//
// Usage: gbt-decoder [OPTIONS] -id NAME
//
// Each data frame received on the input end-point holds the CRU pages of
// one time frame. Decoded readout frames are published on the output
// end-point.
package main // import "github.com/go-lpc/gbt/cmd/gbt-decoder"

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/gbt"
	"github.com/go-lpc/gbt/config"
	"github.com/go-lpc/gbt/daq"
	"github.com/go-lpc/gbt/internal/alert"
)

func main() {
	var (
		cname = flag.String("cfg", "gbt.yaml", "path to the decoder configuration file")
		iname = flag.String("i", "/gbt-raw", "input end-point of CRU pages")
		oname = flag.String("o", "/gbt-rofs", "output end-point of decoded ROFs")
	)

	cmd := flags.New()

	if v, _ := gbt.Version(); v != "" {
		log.Printf("gbt-decoder %s", v)
	}

	cfg, err := config.Load(*cname)
	if err != nil {
		log.Fatalf("could not load configuration: %+v", err)
	}

	dev := newDevice(cmd.Name, cfg)

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.InputHandle(*iname, dev.Input)
	srv.OutputHandle(*oname, dev.Output)

	err = srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

// newDevice creates the decoding device, mailing alerts about aborting
// links when configured to.
func newDevice(name string, cfg *config.Config) *daq.Server {
	dev := daq.New(cfg)
	if n := alert.New(name, cfg.Alert); n != nil {
		dev.OnAbort = n.LinkAborted
	}
	return dev
}
