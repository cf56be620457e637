/*
Copyright 2013 The Camlistore Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package query

import (
	"fmt"

	"coredb.dev/pkg/record"
	"coredb.dev/pkg/table"
	"coredb.dev/pkg/tx"
)

// TempTable is a heap table with a synthetic name, used to hold
// intermediate results (sort runs, grouped output) that don't belong
// to the catalog. nextTableNum supplies the name's numeric suffix; in
// a running engine it's backed by an atomic counter so concurrent
// queries never collide on a temp table name.
type TempTable struct {
	tblname string
	layout  *record.Layout
}

// NewTempTable allocates (but does not create on disk) a temp table
// with sch's schema.
func NewTempTable(sch *record.Schema, nextTableNum func() int) *TempTable {
	return &TempTable{
		tblname: fmt.Sprintf("temp%d", nextTableNum()),
		layout:  record.NewLayout(sch),
	}
}

// Open returns a table scan over the temp table, creating its heap
// file on first use.
func (tt *TempTable) Open(transaction *tx.Transaction) (*table.Scan, error) {
	return table.New(transaction, tt.tblname, tt.layout)
}

// Layout returns the temp table's layout.
func (tt *TempTable) Layout() *record.Layout {
	return tt.layout
}

// Materialize copies every record of src into a fresh temp table with
// schema sch and returns it, positioned nowhere (callers Open it).
// SortPlan builds its initial runs with the same copyRecord helper
// rather than through this function; a caller that just wants a
// materialized copy of a query result can use it directly.
func Materialize(transaction *tx.Transaction, src Scan, sch *record.Schema, nextTableNum func() int) (*TempTable, error) {
	tt := NewTempTable(sch, nextTableNum)
	dest, err := tt.Open(transaction)
	if err != nil {
		return nil, err
	}
	defer dest.Close()

	if err := src.BeforeFirst(); err != nil {
		return nil, err
	}
	for {
		has, err := src.Next()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		if err := copyRecord(src, dest, sch); err != nil {
			return nil, err
		}
	}
	return tt, nil
}

func copyRecord(src Scan, dest UpdateScan, sch *record.Schema) error {
	if err := dest.Insert(); err != nil {
		return err
	}
	for _, f := range sch.Fields() {
		v, err := src.GetVal(f)
		if err != nil {
			return err
		}
		if err := dest.SetVal(f, v); err != nil {
			return err
		}
	}
	return nil
}
