// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config describes the configuration of a GBT decoding process:
// decoding options, link topology, alerting and process supervision.
package config // import "github.com/go-lpc/gbt/config"

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/go-lpc/gbt/link"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of a decoding process.
type Config struct {
	Decoder Decoder `yaml:"decoder"`
	Links   []Link  `yaml:"links"`
	Alert   Alert   `yaml:"alert"`
	Boot    Boot    `yaml:"boot"`
}

// Decoder holds the decoding options shared by all links.
type Decoder struct {
	Verbosity          string   `yaml:"verbosity"` // silent, errors, headers, data, raw
	Word               string   `yaml:"word"`      // padded, unpadded
	AlwaysParseTrigger bool     `yaml:"always-parse-trigger"`
	Dump               string   `yaml:"dump"`     // none, hbf, tf
	DumpDir            string   `yaml:"dump-dir"` // directory of the raw data dumps
	Escalate           []string `yaml:"escalate"` // error categories aborting a link
	Workers            int      `yaml:"workers"`  // number of links decoded concurrently
}

// Link describes one GBT link and the readout unit it feeds.
type Link struct {
	FEE      uint16 `yaml:"fee"`
	RU       uint16 `yaml:"ru"`
	RUType   string `yaml:"ru-type"` // IB, ML, OL
	InRU     uint8  `yaml:"ru-link"`
	CRU      uint16 `yaml:"cru"`
	InCRU    uint8  `yaml:"cru-link"`
	Endpoint uint8  `yaml:"endpoint"`
	Channel  uint16 `yaml:"channel"`
	Lanes    uint32 `yaml:"lanes"` // cables served by the link, 0 for all
}

// Alert configures the mail notification of links aborting on errors.
type Alert struct {
	SMTP      string   `yaml:"smtp"` // empty to disable alerts
	Port      int      `yaml:"port"`
	User      string   `yaml:"user"`
	Password  string   `yaml:"password"`
	From      string   `yaml:"from"`
	To        []string `yaml:"to"`
	Threshold uint32   `yaml:"abort-threshold"` // aborts of a link triggering an alert
}

// Boot lists the processes started and monitored by gbt-boot.
type Boot struct {
	Monitor time.Duration `yaml:"monitor"` // pmon sampling period, 0 to disable
	LogDir  string        `yaml:"log-dir"`
	Procs   []Proc        `yaml:"procs"`
}

// Proc is one supervised process.
type Proc struct {
	Name string   `yaml:"name"`
	Cmd  string   `yaml:"cmd"`
	Args []string `yaml:"args"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Decoder: Decoder{
			Verbosity: "errors",
			Word:      "padded",
			Dump:      "none",
			Workers:   runtime.NumCPU(),
		},
		Alert: Alert{
			Port:      587,
			Threshold: 1,
		},
	}
}

// Load reads and validates the YAML configuration file fname.
func Load(fname string) (*Config, error) {
	raw, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("config: could not read file: %w", err)
	}
	cfg, err := Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("config: could not load %q: %w", fname, err)
	}
	return cfg, nil
}

// Decode decodes and validates a YAML configuration from r.
// Missing fields take their default value.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&cfg)
	switch err {
	case nil, io.EOF:
	default:
		return nil, fmt.Errorf("config: could not decode YAML: %w", err)
	}
	err = Validate(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Encode writes cfg as YAML to w.
func Encode(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	err := enc.Encode(cfg)
	if err != nil {
		return fmt.Errorf("config: could not encode YAML: %w", err)
	}
	err = enc.Close()
	if err != nil {
		return fmt.Errorf("config: could not flush YAML: %w", err)
	}
	return nil
}

// LinkConfig returns the decoding options of the links.
func (dec Decoder) LinkConfig() (link.Config, error) {
	var (
		cfg = link.Config{AlwaysParseTrigger: dec.AlwaysParseTrigger}
		err error
	)
	cfg.Verbosity, err = link.ParseVerbosity(dec.Verbosity)
	if err != nil {
		return cfg, fmt.Errorf("config: invalid decoder verbosity: %w", err)
	}
	cfg.Word, err = link.ParseWordFormat(dec.Word)
	if err != nil {
		return cfg, fmt.Errorf("config: invalid decoder word format: %w", err)
	}
	cfg.Dump, err = link.ParseDumpMode(dec.Dump)
	if err != nil {
		return cfg, fmt.Errorf("config: invalid decoder dump mode: %w", err)
	}
	for _, name := range dec.Escalate {
		c, err := link.ParseErrorCategory(name)
		if err != nil {
			return cfg, fmt.Errorf("config: invalid escalated error: %w", err)
		}
		cfg.Escalate = append(cfg.Escalate, c)
	}
	return cfg, nil
}

// ID returns the identity of the link.
func (l Link) ID() link.ID {
	return link.ID{
		CRU:      l.CRU,
		FEE:      l.FEE,
		Endpoint: l.Endpoint,
		InCRU:    l.InCRU,
		InRU:     l.InRU,
		Channel:  l.Channel,
		Lanes:    l.Lanes,
	}
}
