// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command gbt-topo retrieves a readout topology from the condition
// database and writes the corresponding decoder configuration file.
package main // import "github.com/go-lpc/gbt/cmd/gbt-topo"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-lpc/gbt/conddb"
	"github.com/go-lpc/gbt/config"
)

func main() {
	log.SetPrefix("gbt-topo: ")
	log.SetFlags(0)

	var (
		host  = flag.String("host", "localhost:3306", "address of the condition database")
		usr   = flag.String("u", "gbt", "user name")
		pwd   = flag.String("p", "", "password")
		db    = flag.String("db", "conddb", "name of the database")
		topo  = flag.String("topo", "", "topology to retrieve (default: last one)")
		oname = flag.String("o", "", "path to output configuration file (default: stdout)")
	)

	flag.Parse()

	cdb, err := conddb.Open(conddb.DSN(*usr, *pwd, *host, *db))
	if err != nil {
		log.Fatalf("could not open condition db: %+v", err)
	}
	defer cdb.Close()

	var w io.Writer = os.Stdout
	if *oname != "" {
		f, err := os.Create(*oname)
		if err != nil {
			log.Fatalf("could not create output file: %+v", err)
		}
		defer f.Close()
		w = f
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if *topo == "" {
		*topo, err = cdb.LastTopology(ctx)
		if err != nil {
			log.Fatalf("could not get last topology: %+v", err)
		}
	}
	log.Printf("topology: %q", *topo)

	err = process(ctx, w, cdb, *topo)
	if err != nil {
		log.Fatalf("could not write configuration: %+v", err)
	}

	if f, ok := w.(*os.File); ok && f != os.Stdout {
		err = f.Close()
		if err != nil {
			log.Fatalf("could not close output file: %+v", err)
		}
	}
}

func process(ctx context.Context, w io.Writer, db *conddb.DB, topo string) error {
	links, err := db.Links(ctx, topo)
	if err != nil {
		return fmt.Errorf("could not get links of topology %q: %w", topo, err)
	}
	if len(links) == 0 {
		return fmt.Errorf("no link in topology %q", topo)
	}

	cfg := config.Default()
	cfg.Links = links

	err = config.Validate(&cfg)
	if err != nil {
		return fmt.Errorf("invalid topology %q: %w", topo, err)
	}

	return config.Encode(w, &cfg)
}
