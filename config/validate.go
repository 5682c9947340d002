// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"

	"github.com/go-lpc/gbt/mapping"
	"github.com/go-lpc/gbt/rdh"
)

// Validate checks the consistency of the configuration.
// It does not modify cfg.
func Validate(cfg *Config) error {
	_, err := cfg.Decoder.LinkConfig()
	if err != nil {
		return err
	}
	if cfg.Decoder.Workers < 0 {
		return fmt.Errorf("config: invalid number of decoder workers (%d)", cfg.Decoder.Workers)
	}

	err = validateLinks(cfg.Links)
	if err != nil {
		return err
	}

	if a := cfg.Alert; a.SMTP != "" {
		switch {
		case a.From == "":
			return fmt.Errorf("config: alert sender missing")
		case len(a.To) == 0:
			return fmt.Errorf("config: alert recipients missing")
		case a.Port <= 0:
			return fmt.Errorf("config: invalid alert SMTP port (%d)", a.Port)
		}
	}

	names := make(map[string]int, len(cfg.Boot.Procs))
	for i, p := range cfg.Boot.Procs {
		if p.Cmd == "" {
			return fmt.Errorf("config: boot process #%d (%q) has no command", i, p.Name)
		}
		if p.Name == "" {
			continue
		}
		if j, dup := names[p.Name]; dup {
			return fmt.Errorf("config: boot processes #%d and #%d share name %q", j, i, p.Name)
		}
		names[p.Name] = i
	}
	return nil
}

func validateLinks(links []Link) error {
	type unit struct {
		typ   mapping.RUType
		lanes uint32
		links []int
	}

	var (
		m     = mapping.New()
		fees  = make(map[uint16]int, len(links))
		specs = make(map[uint32]int, len(links))
		units = make(map[uint16]*unit)
	)

	for i, l := range links {
		if j, dup := fees[l.FEE]; dup {
			return fmt.Errorf("config: links #%d and #%d share FEE id 0x%04x", j, i, l.FEE)
		}
		fees[l.FEE] = i

		spec := rdh.SubSpec(l.CRU, l.InCRU, l.Endpoint)
		if j, dup := specs[spec]; dup {
			return fmt.Errorf("config: links #%d and #%d share CRU link (cru=%d, link=%d, ep=%d)",
				j, i, l.CRU, l.InCRU, l.Endpoint,
			)
		}
		specs[spec] = i

		typ, err := mapping.ParseRUType(l.RUType)
		if err != nil {
			return fmt.Errorf("config: link #%d (FEE 0x%04x): %w", i, l.FEE, err)
		}
		mask := m.CablesMask(typ)
		if l.Lanes&^mask != 0 {
			return fmt.Errorf("config: link #%d (FEE 0x%04x): lanes 0x%07x not available on RU type %v (0x%07x)",
				i, l.FEE, l.Lanes, typ, mask,
			)
		}

		u, ok := units[l.RU]
		if !ok {
			u = &unit{typ: typ}
			units[l.RU] = u
		}
		if u.typ != typ {
			return fmt.Errorf("config: link #%d (FEE 0x%04x): RU %d has type %v, not %v",
				i, l.FEE, l.RU, u.typ, typ,
			)
		}
		u.links = append(u.links, i)
		if len(u.links) > 1 {
			// cables of a unit fed by several links must be shared out.
			for _, j := range u.links {
				if links[j].Lanes == 0 {
					return fmt.Errorf("config: link #%d (FEE 0x%04x) of RU %d must declare its lanes",
						j, links[j].FEE, l.RU,
					)
				}
			}
		}
		if u.lanes&l.Lanes != 0 {
			return fmt.Errorf("config: link #%d (FEE 0x%04x): lanes 0x%07x already served in RU %d (0x%07x)",
				i, l.FEE, l.Lanes, l.RU, u.lanes,
			)
		}
		u.lanes |= l.Lanes
	}
	return nil
}
