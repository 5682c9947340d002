// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link // import "github.com/go-lpc/gbt/link"

import (
	"sync"

	"github.com/go-lpc/gbt/rdh"
)

// PhysTrigger is an external physics trigger seen by a link.
type PhysTrigger struct {
	IR   rdh.IR
	Type uint64
}

// TriggerSink collects the physics triggers seen by links.
// Sinks shared by several links must be safe for concurrent use.
type TriggerSink interface {
	AddTrigger(trg PhysTrigger)
}

// Triggers is an in-memory TriggerSink.
type Triggers struct {
	mu   sync.Mutex
	trgs []PhysTrigger
}

// AddTrigger implements TriggerSink.
func (ts *Triggers) AddTrigger(trg PhysTrigger) {
	ts.mu.Lock()
	ts.trgs = append(ts.trgs, trg)
	ts.mu.Unlock()
}

// Triggers returns the collected triggers and resets the sink.
func (ts *Triggers) Triggers() []PhysTrigger {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	o := ts.trgs
	ts.trgs = nil
	return o
}

var _ TriggerSink = (*Triggers)(nil)
