// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package daq exposes the GBT decoder as a tdaq device.
//
// Each data frame received on the input end-point holds the CRU pages of
// one time frame. The decoded readout frames are published on the output
// end-point, one data frame per ROF.
package daq // import "github.com/go-lpc/gbt/daq"

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/gbt/config"
	"github.com/go-lpc/gbt/decoder"
	"github.com/go-lpc/gbt/link"
)

// Server decodes the raw data of a set of GBT links.
type Server struct {
	Config    *config.Config
	LogOutput log.WriteSyncer    // where the decoder diagnostics are printed
	OnAbort   func(l *link.Link) // called for each link aborting its collection

	NTFs  int64 // number of time frames received since /init
	NROFs int64 // number of frames published since /init

	dec  *decoder.Decoder
	rofs chan []byte
}

// New creates a tdaq device decoding the links described by cfg.
func New(cfg *config.Config) *Server {
	return &Server{Config: cfg}
}

// Decoder returns the underlying decoder, nil before /config.
func (srv *Server) Decoder() *decoder.Decoder { return srv.dec }

func (srv *Server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	if srv.Config == nil {
		return fmt.Errorf("daq: no configuration")
	}

	opts := []decoder.Option{decoder.WithAbortHandler(srv.OnAbort)}
	if srv.LogOutput != nil {
		opts = append(opts, decoder.WithOutput(srv.LogOutput))
	}
	dec, err := decoder.New(srv.Config, opts...)
	if err != nil {
		ctx.Msg.Errorf("could not create decoder: %+v", err)
		return fmt.Errorf("could not create decoder: %w", err)
	}
	srv.dec = dec
	ctx.Msg.Infof("configured %d links (%d RUs)", len(dec.Links()), len(dec.RUs()))
	return nil
}

func (srv *Server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	if srv.dec == nil {
		return fmt.Errorf("daq: device not configured")
	}
	srv.dec.Reset()
	srv.NTFs = 0
	srv.NROFs = 0
	srv.rofs = make(chan []byte, 1024)
	return nil
}

func (srv *Server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	if srv.dec != nil {
		srv.dec.Reset()
	}
	srv.NTFs = 0
	srv.NROFs = 0
	srv.rofs = make(chan []byte, 1024)
	return nil
}

func (srv *Server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	return nil
}

func (srv *Server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	var (
		o   = new(strings.Builder)
		tot link.Stat
	)
	if srv.dec != nil {
		srv.dec.Report(o, true)
		tot = srv.dec.Total()
	}
	ctx.Msg.Infof("received /stop command... -> tfs=%d, rofs=%d, errors=%d",
		srv.NTFs, srv.NROFs, tot.NErrors(),
	)
	if o.Len() > 0 {
		ctx.Msg.Debugf("decoding report:\n%s", o.String())
	}
	return nil
}

func (srv *Server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return nil
}

// Input decodes the time frame held by src.
func (srv *Server) Input(ctx tdaq.Context, src tdaq.Frame) error {
	if srv.dec == nil || srv.rofs == nil {
		return fmt.Errorf("daq: device not initialized")
	}
	srv.NTFs++

	err := srv.dec.AddRaw(src.Body)
	if err != nil {
		ctx.Msg.Errorf("could not add raw data of TF %d: %+v", srv.NTFs, err)
		srv.dec.ClearTF()
		return fmt.Errorf("could not add raw data: %w", err)
	}

	for {
		rof, err := srv.dec.DecodeROF(ctx.Ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			srv.dec.ClearTF()
			return fmt.Errorf("could not decode TF %d: %w", srv.NTFs, err)
		}
		select {
		case <-ctx.Ctx.Done():
			srv.dec.ClearTF()
			return ctx.Ctx.Err()
		case srv.rofs <- MarshalROF(rof):
			srv.NROFs++
		}
	}

	err = srv.dec.EndTF()
	if err != nil {
		ctx.Msg.Warnf("could not dump raw data of TF %d: %+v", srv.NTFs, err)
	}
	ctx.Msg.Debugf("received TF %d -> rofs=%d", srv.NTFs, srv.NROFs)
	return nil
}

// Output publishes the next decoded frame.
func (srv *Server) Output(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case rof := <-srv.rofs:
		dst.Body = rof
	}
	return nil
}
