// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb retrieves the readout topology of the GBT links from
// the condition database.
package conddb // import "github.com/go-lpc/gbt/conddb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-lpc/gbt/config"
	"github.com/go-lpc/gbt/mapping"
	_ "github.com/go-sql-driver/mysql"
)

const timeout = 5 * time.Second

var (
	drvName = "mysql"
)

// DB exposes convenience methods to retrieve the readout topology from
// the condition database.
type DB struct {
	db   *sql.DB
	name string
}

// DSN returns the data source name of the database dbname on host.
func DSN(usr, pwd, host, dbname string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s", usr, pwd, host, dbname)
}

// Open opens a connection to the database described by dsn.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open db: %w", err)
	}

	err = ping(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, name: dsn}, nil
}

// New wraps an already opened database.
func New(db *sql.DB) *DB {
	return &DB{db: db}
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping db: %w", err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// LastTopology returns the name of the most recent readout topology.
func (db *DB) LastTopology(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name := ""
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name FROM topologies ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return name, fmt.Errorf("conddb: could not query topology: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&name)
		if err != nil {
			return name, fmt.Errorf("conddb: could not get topology name: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return name, fmt.Errorf("conddb: could not scan db for topology: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return name, fmt.Errorf("conddb: context error while retrieving topology: %w", err)
	}

	if name == "" {
		return name, fmt.Errorf("conddb: no topology in db")
	}

	return name, nil
}

// Links returns the links of the topology topo, ordered by FEE id.
func (db *DB) Links(ctx context.Context, topo string) ([]config.Link, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var links []config.Link
	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT links.fee, links.ru, rus.type, links.ru_link,
       links.cru, links.cru_link, links.endpoint, links.channel, links.lanes
FROM links
JOIN rus        ON rus.identifier=links.ru
JOIN topologies ON topologies.identifier=links.topology
WHERE topologies.name=?
ORDER BY links.fee
`,
		topo,
	)
	if err != nil {
		return links, fmt.Errorf("conddb: could not run links query: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		var l config.Link
		err = rows.Scan(
			&l.FEE, &l.RU, &l.RUType, &l.InRU,
			&l.CRU, &l.InCRU, &l.Endpoint, &l.Channel, &l.Lanes,
		)
		if err != nil {
			return links, fmt.Errorf("conddb: could not scan row %d of links: %w", i, err)
		}
		i++

		links = append(links, l)
	}

	if err := rows.Err(); err != nil {
		return links, fmt.Errorf("conddb: could not scan db for links: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return links, fmt.Errorf("conddb: context error while retrieving links: %w", err)
	}

	return links, nil
}

// RU describes a readout unit and its position in the detector.
type RU struct {
	SWID  uint16
	Type  mapping.RUType
	Layer uint8
	Stave uint16
}

// RUs returns the readout units of the topology topo.
func (db *DB) RUs(ctx context.Context, topo string) ([]RU, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rus []RU
	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT DISTINCT rus.identifier, rus.type, rus.layer, rus.stave
FROM rus
JOIN links      ON links.ru=rus.identifier
JOIN topologies ON topologies.identifier=links.topology
WHERE topologies.name=?
ORDER BY rus.identifier
`,
		topo,
	)
	if err != nil {
		return rus, fmt.Errorf("conddb: could not run RUs query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ru  RU
			typ string
		)
		err = rows.Scan(&ru.SWID, &typ, &ru.Layer, &ru.Stave)
		if err != nil {
			return rus, fmt.Errorf("conddb: could not scan RUs: %w", err)
		}
		ru.Type, err = mapping.ParseRUType(typ)
		if err != nil {
			return rus, fmt.Errorf("conddb: invalid RU %d: %w", ru.SWID, err)
		}
		rus = append(rus, ru)
	}

	if err := rows.Err(); err != nil {
		return rus, fmt.Errorf("conddb: could not scan db for RUs: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return rus, fmt.Errorf("conddb: context error while retrieving RUs: %w", err)
	}

	return rus, nil
}
