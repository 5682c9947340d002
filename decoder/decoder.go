// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package decoder aggregates the GBT links of a readout into readout
// frames: it routes the CRU pages to their link, collects the links
// concurrently and aligns their data on the interaction record of the
// frame.
package decoder // import "github.com/go-lpc/gbt/decoder"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"

	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/gbt/config"
	"github.com/go-lpc/gbt/link"
	"github.com/go-lpc/gbt/mapping"
	"github.com/go-lpc/gbt/rawio"
	"github.com/go-lpc/gbt/rdh"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnknownFEE is returned for a page of a FEE id with no link.
	ErrUnknownFEE = errors.New("decoder: unknown FEE id")
)

// Option configures a Decoder.
type Option func(*Decoder)

// WithOutput sets the destination of the diagnostics of the decoder and
// of its links.
func WithOutput(w log.WriteSyncer) Option {
	return func(dec *Decoder) {
		dec.cfg.Output = w
	}
}

// WithTriggers sets the collector of the physics triggers seen by the links.
func WithTriggers(sink link.TriggerSink) Option {
	return func(dec *Decoder) {
		dec.cfg.Triggers = sink
	}
}

// WithWorkers sets the number of links collected concurrently.
func WithWorkers(n int) Option {
	return func(dec *Decoder) {
		dec.workers = n
	}
}

// WithAbortHandler registers a function called, from the goroutine
// running DecodeROF, for each link aborting its collection.
func WithAbortHandler(f func(l *link.Link)) Option {
	return func(dec *Decoder) {
		dec.onAbort = f
	}
}

// Decoder decodes the raw data of a set of links.
type Decoder struct {
	cfg     link.Config
	workers int
	dumpDir string
	onAbort func(l *link.Link)

	msg   log.MsgStream
	m     *mapping.Mapping
	rus   []*link.RU
	links []*link.Link
	ruIDs map[uint16]*link.RU
	fees  map[uint16]*link.Link

	cache   map[*link.Link]cached // data of links ahead of the others
	aborted map[*link.Link]bool   // links which aborted and did not recover yet

	nrofs  int
	sizes  map[int]float64 // number of cables per collected size
	ncable int             // number of cables collected since the last reset
}

type cached struct {
	ir      rdh.IR
	trigger uint16
	data    []link.CableData
}

// New creates a decoder from the provided configuration.
func New(cfg *config.Config, opts ...Option) (*Decoder, error) {
	lcfg, err := cfg.Decoder.LinkConfig()
	if err != nil {
		return nil, fmt.Errorf("decoder: invalid configuration: %w", err)
	}

	dec := &Decoder{
		cfg:     lcfg,
		workers: cfg.Decoder.Workers,
		dumpDir: cfg.Decoder.DumpDir,
		m:       mapping.New(),
		ruIDs:   make(map[uint16]*link.RU),
		fees:    make(map[uint16]*link.Link),
		cache:   make(map[*link.Link]cached),
		aborted: make(map[*link.Link]bool),
		sizes:   make(map[int]float64),
	}
	for _, opt := range opts {
		opt(dec)
	}
	if dec.workers <= 0 {
		dec.workers = runtime.NumCPU()
	}
	w := dec.cfg.Output
	if w == nil {
		w = os.Stdout
	}
	lvl := log.LvlInfo
	if dec.cfg.Verbosity == link.Silent {
		lvl = log.LvlError
	}
	dec.msg = log.NewMsgStream("gbt-decoder", lvl, w)

	for i, l := range cfg.Links {
		typ, err := mapping.ParseRUType(l.RUType)
		if err != nil {
			return nil, fmt.Errorf("decoder: invalid link #%d: %w", i, err)
		}
		_, err = dec.AddLink(l.ID(), l.RU, typ)
		if err != nil {
			return nil, err
		}
	}
	return dec, nil
}

// AddLink creates a link feeding the readout unit ru of type typ.
func (dec *Decoder) AddLink(id link.ID, ru uint16, typ mapping.RUType) (*link.Link, error) {
	if _, dup := dec.fees[id.FEE]; dup {
		return nil, fmt.Errorf("decoder: duplicate link for FEE id 0x%04x", id.FEE)
	}
	unit, ok := dec.ruIDs[ru]
	switch {
	case !ok:
		unit = link.NewRU(ru, typ)
		dec.ruIDs[ru] = unit
		dec.rus = append(dec.rus, unit)
		sort.Slice(dec.rus, func(i, j int) bool { return dec.rus[i].SWID < dec.rus[j].SWID })
	case unit.Type != typ:
		return nil, fmt.Errorf("decoder: RU %d has type %v, not %v", ru, unit.Type, typ)
	}

	l := link.New(id, unit, dec.cfg)
	dec.links = append(dec.links, l)
	dec.fees[id.FEE] = l
	return l, nil
}

// Link returns the link of the provided FEE id, or nil.
func (dec *Decoder) Link(fee uint16) *link.Link { return dec.fees[fee] }

// Links returns all the links, in the order they were added.
func (dec *Decoder) Links() []*link.Link { return dec.links }

// RUs returns all the readout units, ordered by software id.
func (dec *Decoder) RUs() []*link.RU { return dec.rus }

// Mapping returns the cable mapping used by the decoder.
func (dec *Decoder) Mapping() *mapping.Mapping { return dec.m }

// AddPage routes a CRU page to the link of its FEE id.
// The page is not copied.
func (dec *Decoder) AddPage(p []byte) error {
	hdr, err := rdh.Decode(p)
	if err != nil {
		return fmt.Errorf("decoder: could not decode page header: %w", err)
	}
	l, ok := dec.fees[hdr.FEEID]
	if !ok {
		return fmt.Errorf("%w 0x%04x", ErrUnknownFEE, hdr.FEEID)
	}
	l.CacheData(p)
	return nil
}

// AddRaw splits raw into CRU pages and routes them to their links.
// Pages alias raw.
func (dec *Decoder) AddRaw(raw []byte) error {
	pages, err := rawio.SplitPages(raw)
	if err != nil {
		return fmt.Errorf("decoder: could not split raw data: %w", err)
	}
	for _, p := range pages {
		err = dec.AddPage(p)
		if err != nil {
			return err
		}
	}
	return nil
}

// ROF is a decoded readout frame.
type ROF struct {
	IR      rdh.IR
	Trigger uint16
	RUs     []RUData // units with data
}

// RUData holds the cables data of one readout unit for one ROF.
// Cable data slices are only valid until the next call to DecodeROF.
type RUData struct {
	SWID   uint16
	Type   mapping.RUType
	Calib  link.Calib
	Cables []link.CableData
}

// NCables returns the number of cables with data in the frame.
func (rof *ROF) NCables() int {
	n := 0
	for _, ru := range rof.RUs {
		n += len(ru.Cables)
	}
	return n
}

// DecodeROF collects the next readout frame from all the links.
// DecodeROF returns io.EOF when the cached data of all the links is
// exhausted.
func (dec *Decoder) DecodeROF(ctx context.Context) (ROF, error) {
	for _, ru := range dec.rus {
		ru.ClearCables()
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(dec.workers)
	for _, l := range dec.links {
		l := l
		grp.Go(func() error {
			err := ctx.Err()
			if err != nil {
				return err
			}
			l.CollectCableData(dec.m)
			return nil
		})
	}
	err := grp.Wait()
	if err != nil {
		return ROF{}, fmt.Errorf("decoder: could not collect links: %w", err)
	}

	var (
		ir    = rdh.Dummy
		found = false
	)
	for _, l := range dec.links {
		switch l.Status {
		case link.AbortedOnError:
			dec.aborted[l] = true
			if dec.onAbort != nil {
				dec.onAbort(l)
			}
			continue
		case link.DataSeen:
			found = true
			if v := l.IR(); !v.IsDummy() && v.Less(ir) {
				ir = v
			}
		case link.CachedDataExist:
			found = true
			if v := dec.cache[l].ir; v.Less(ir) {
				ir = v
			}
		}
	}
	if !found {
		return ROF{}, io.EOF
	}

	rof := ROF{IR: ir}
	for _, l := range dec.links {
		switch l.Status {
		case link.DataSeen:
			v := l.IR()
			if !v.IsDummy() && ir.Less(v) {
				// link is ahead: keep its data for a later frame.
				dec.cache[l] = cached{ir: v, trigger: l.Trigger(), data: l.RU().Detach(l)}
				l.MarkROFJump()
				if dec.cfg.Verbosity >= link.VerboseHeaders {
					dec.msg.Infof("%s jumped to %v while decoding %v", l.Describe(), v, ir)
				}
				continue
			}
			rof.Trigger = l.Trigger()
			if dec.aborted[l] {
				delete(dec.aborted, l)
				l.AccountRecovery(ir)
			}
		case link.CachedDataExist:
			c := dec.cache[l]
			if c.ir != ir {
				continue
			}
			l.RU().Attach(c.data)
			l.ClearROFJump()
			delete(dec.cache, l)
			rof.Trigger = c.trigger
		}
	}

	for _, ru := range dec.rus {
		cables := ru.CableData()
		if len(cables) == 0 {
			continue
		}
		for _, c := range cables {
			dec.accountSize(len(c.Data))
		}
		rof.RUs = append(rof.RUs, RUData{
			SWID:   ru.SWID,
			Type:   ru.Type,
			Calib:  ru.Calib(),
			Cables: cables,
		})
	}
	dec.nrofs++
	return rof, nil
}

// EndTF closes the current time frame: raw data of the faulty links is
// dumped if requested, and all links are reset for the next time frame.
func (dec *Decoder) EndTF() error {
	var err error
	if dec.cfg.Dump != link.DumpNone && dec.dumpDir != "" {
		_, err = dec.DumpRawData(dec.dumpDir)
	}
	dec.ClearTF()
	return err
}

// ClearTF resets all links for the next time frame.
// Statistics are kept.
func (dec *Decoder) ClearTF() {
	for _, l := range dec.links {
		l.Clear(false, true)
	}
	for _, ru := range dec.rus {
		ru.ClearCables()
		ru.ClearHBFToDump()
	}
	dec.cache = make(map[*link.Link]cached)
}

// Reset clears the decoding state and the statistics of all links.
func (dec *Decoder) Reset() {
	dec.ClearTF()
	for _, l := range dec.links {
		l.Clear(true, true)
	}
	dec.aborted = make(map[*link.Link]bool)
	dec.nrofs = 0
	dec.sizes = make(map[int]float64)
	dec.ncable = 0
}

// NROFs returns the number of frames decoded since the last reset.
func (dec *Decoder) NROFs() int { return dec.nrofs }

// Stats returns the statistics of all links, in the order they were added.
func (dec *Decoder) Stats() []link.Stat {
	o := make([]link.Stat, len(dec.links))
	for i, l := range dec.links {
		o[i] = l.Stat()
	}
	return o
}

// Total returns the statistics summed over all links.
func (dec *Decoder) Total() link.Stat {
	var tot link.Stat
	for _, l := range dec.links {
		tot.Add(l.Stat())
	}
	return tot
}
