// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb implements an in-memory database/sql driver, serving
// canned rows to queries.
package fakedb // import "github.com/go-lpc/gbt/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sync"
)

var query struct {
	mu   sync.Mutex
	rows Rows
	last Query
}

// Query is a query received by the driver.
type Query struct {
	SQL  string
	Args []driver.Value
}

// Run runs f while the driver serves rows to the queries it receives.
// Run returns the last query received while running f.
func Run(ctx context.Context, rows Rows, f func(ctx context.Context) error) (Query, error) {
	query.mu.Lock()
	defer query.mu.Unlock()
	query.rows = rows
	query.last = Query{}

	err := f(ctx)
	return query.last, err
}

func init() {
	sql.Register("fakedb", &Driver{})
}

// Driver is the fake driver, registered as "fakedb".
type Driver struct{}

// Open returns a new connection to the database.
func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &Conn{}, nil
}

// Conn is a connection to the fake database.
type Conn struct{}

func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{query: query}, nil
}

func (c *Conn) Close() error {
	return nil
}

func (c *Conn) Begin() (driver.Tx, error) {
	return nil, fmt.Errorf("fakedb: transactions not supported")
}

// Stmt is a prepared statement.
type Stmt struct {
	query string
}

func (stmt *Stmt) Close() error {
	return nil
}

// NumInput returns -1: the number of placeholders is not checked.
func (stmt *Stmt) NumInput() int {
	return -1
}

func (stmt *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	return nil, fmt.Errorf("fakedb: exec not supported")
}

// Query records the query and serves the rows of the current Run.
func (stmt *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	query.last = Query{SQL: stmt.query, Args: args}
	return &query.rows, nil
}

// Rows are the canned rows served by the driver.
type Rows struct {
	Names  []string
	Values [][]driver.Value
}

func (rows *Rows) Columns() []string {
	return rows.Names
}

func (rows *Rows) Close() error {
	return nil
}

// Next populates dest with the next row, or returns io.EOF.
func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		return io.EOF
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver = (*Driver)(nil)
	_ driver.Conn   = (*Conn)(nil)
	_ driver.Stmt   = (*Stmt)(nil)
	_ driver.Rows   = (*Rows)(nil)
)
