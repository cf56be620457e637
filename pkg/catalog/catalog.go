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

// Package catalog implements the system tables that describe every
// other table: table_catalog (one row per table, giving its slot
// size) and field_catalog (one row per field, giving its type,
// length, and byte offset). Both are themselves ordinary heap
// tables, bootstrapped the first time a database directory is
// opened.
package catalog

import (
	"errors"

	"coredb.dev/pkg/record"
	"coredb.dev/pkg/table"
	"coredb.dev/pkg/tx"
)

// NameMax is the maximum length, in characters, of a table or field
// name as stored in the catalog.
const NameMax = 20

// ErrTableNotFound is returned by LayoutOf (and anything built on it)
// when the requested table has no entry in table_catalog.
var ErrTableNotFound = errors.New("coredb: table not found in catalog")

// Manager is the table manager: the entry point for creating tables
// and looking up their layouts.
type Manager struct {
	tblCatLayout *record.Layout
	fldCatLayout *record.Layout
}

// NewManager opens the catalog. When isNew is true (a fresh database
// directory) it also bootstraps table_catalog and field_catalog by
// creating them as ordinary tables of themselves.
func NewManager(isNew bool, transaction *tx.Transaction) (*Manager, error) {
	tcatSchema := record.NewSchema()
	tcatSchema.AddStringField("tblname", NameMax)
	tcatSchema.AddIntField("slotsize")

	fcatSchema := record.NewSchema()
	fcatSchema.AddStringField("tblname", NameMax)
	fcatSchema.AddStringField("fldname", NameMax)
	fcatSchema.AddIntField("type")
	fcatSchema.AddIntField("length")
	fcatSchema.AddIntField("offset")

	m := &Manager{
		tblCatLayout: record.NewLayout(tcatSchema),
		fldCatLayout: record.NewLayout(fcatSchema),
	}
	if isNew {
		if err := m.CreateTable("table_catalog", tcatSchema, transaction); err != nil {
			return nil, err
		}
		if err := m.CreateTable("field_catalog", fcatSchema, transaction); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// CreateTable persists tblname's schema: one row in table_catalog
// giving its slot size, and one row per field in field_catalog giving
// that field's type, length, and byte offset.
func (m *Manager) CreateTable(tblname string, sch *record.Schema, transaction *tx.Transaction) error {
	layout := record.NewLayout(sch)

	tcat, err := table.New(transaction, "table_catalog", m.tblCatLayout)
	if err != nil {
		return err
	}
	defer tcat.Close()
	if err := tcat.Insert(); err != nil {
		return err
	}
	if err := tcat.SetString("tblname", tblname); err != nil {
		return err
	}
	if err := tcat.SetInt("slotsize", int32(layout.SlotSize())); err != nil {
		return err
	}

	fcat, err := table.New(transaction, "field_catalog", m.fldCatLayout)
	if err != nil {
		return err
	}
	defer fcat.Close()
	for _, fldname := range sch.Fields() {
		if err := fcat.Insert(); err != nil {
			return err
		}
		if err := fcat.SetString("tblname", tblname); err != nil {
			return err
		}
		if err := fcat.SetString("fldname", fldname); err != nil {
			return err
		}
		if err := fcat.SetInt("type", int32(sch.Type(fldname))); err != nil {
			return err
		}
		if err := fcat.SetInt("length", int32(sch.Length(fldname))); err != nil {
			return err
		}
		if err := fcat.SetInt("offset", int32(layout.Offset(fldname))); err != nil {
			return err
		}
	}
	return nil
}

// ListTables returns every table name registered in table_catalog,
// including table_catalog and field_catalog themselves.
func (m *Manager) ListTables(transaction *tx.Transaction) ([]string, error) {
	tcat, err := table.New(transaction, "table_catalog", m.tblCatLayout)
	if err != nil {
		return nil, err
	}
	defer tcat.Close()
	var names []string
	for {
		has, err := tcat.Next()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		name, err := tcat.GetString("tblname")
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// ExistsTable reports whether tblname has an entry in table_catalog.
func (m *Manager) ExistsTable(tblname string, transaction *tx.Transaction) (bool, error) {
	tcat, err := table.New(transaction, "table_catalog", m.tblCatLayout)
	if err != nil {
		return false, err
	}
	defer tcat.Close()
	for {
		has, err := tcat.Next()
		if err != nil {
			return false, err
		}
		if !has {
			return false, nil
		}
		name, err := tcat.GetString("tblname")
		if err != nil {
			return false, err
		}
		if name == tblname {
			return true, nil
		}
	}
}

// ExistsField reports whether tblname has a field named fldname.
func (m *Manager) ExistsField(tblname, fldname string, transaction *tx.Transaction) (bool, error) {
	fcat, err := table.New(transaction, "field_catalog", m.fldCatLayout)
	if err != nil {
		return false, err
	}
	defer fcat.Close()
	for {
		has, err := fcat.Next()
		if err != nil {
			return false, err
		}
		if !has {
			return false, nil
		}
		tn, err := fcat.GetString("tblname")
		if err != nil {
			return false, err
		}
		if tn != tblname {
			continue
		}
		fn, err := fcat.GetString("fldname")
		if err != nil {
			return false, err
		}
		if fn == fldname {
			return true, nil
		}
	}
}

// LayoutOf reconstructs tblname's layout from the catalog tables.
func (m *Manager) LayoutOf(tblname string, transaction *tx.Transaction) (*record.Layout, error) {
	size := -1
	tcat, err := table.New(transaction, "table_catalog", m.tblCatLayout)
	if err != nil {
		return nil, err
	}
	for {
		has, err := tcat.Next()
		if err != nil {
			tcat.Close()
			return nil, err
		}
		if !has {
			break
		}
		name, err := tcat.GetString("tblname")
		if err != nil {
			tcat.Close()
			return nil, err
		}
		if name == tblname {
			slotsize, err := tcat.GetInt("slotsize")
			if err != nil {
				tcat.Close()
				return nil, err
			}
			size = int(slotsize)
			break
		}
	}
	tcat.Close()
	if size < 0 {
		return nil, ErrTableNotFound
	}

	sch := record.NewSchema()
	offsets := make(map[string]int)
	fcat, err := table.New(transaction, "field_catalog", m.fldCatLayout)
	if err != nil {
		return nil, err
	}
	defer fcat.Close()
	for {
		has, err := fcat.Next()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		name, err := fcat.GetString("tblname")
		if err != nil {
			return nil, err
		}
		if name != tblname {
			continue
		}
		fldname, err := fcat.GetString("fldname")
		if err != nil {
			return nil, err
		}
		fldtype, err := fcat.GetInt("type")
		if err != nil {
			return nil, err
		}
		fldlen, err := fcat.GetInt("length")
		if err != nil {
			return nil, err
		}
		offset, err := fcat.GetInt("offset")
		if err != nil {
			return nil, err
		}
		offsets[fldname] = int(offset)
		sch.AddField(fldname, int(fldtype), int(fldlen))
	}
	return record.NewLayoutFromCatalog(sch, offsets, size), nil
}
