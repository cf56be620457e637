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

// Package table implements TableScan, the cursor that turns a
// table's heap file ("<table>.tbl") into a stream of records. It's
// the only component that knows heap files grow one block at a time
// and that a record's identity is a (block, slot) pair.
package table

import (
	"coredb.dev/pkg/file"
	"coredb.dev/pkg/record"
	"coredb.dev/pkg/tx"
)

// Scan is a forward cursor over every used slot of one table's heap
// file, in block order. It satisfies pkg/query.UpdateScan.
type Scan struct {
	tx         *tx.Transaction
	tblname    string
	layout     *record.Layout
	rp         *record.Page
	currentSlot int
}

// New opens a cursor over tblname, appending the file's first block
// if the table has never been written to.
func New(transaction *tx.Transaction, tblname string, layout *record.Layout) (*Scan, error) {
	s := &Scan{tx: transaction, tblname: tblname, layout: layout}
	size, err := transaction.Size(s.filename())
	if err != nil {
		return nil, err
	}
	if size == 0 {
		if err := s.moveToNewBlock(); err != nil {
			return nil, err
		}
	} else {
		if err := s.moveToBlock(0); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scan) filename() string {
	return s.tblname + ".tbl"
}

func (s *Scan) moveToBlock(blknum int) error {
	s.Close()
	blk := file.BlockId{Filename: s.filename(), Blknum: blknum}
	rp, err := record.NewPage(s.tx, blk, s.layout)
	if err != nil {
		return err
	}
	s.rp = rp
	s.currentSlot = -1
	return nil
}

func (s *Scan) moveToNewBlock() error {
	s.Close()
	blk, err := s.tx.Append(s.filename())
	if err != nil {
		return err
	}
	rp, err := record.NewPage(s.tx, blk, s.layout)
	if err != nil {
		return err
	}
	s.rp = rp
	if err := s.rp.Format(); err != nil {
		return err
	}
	s.currentSlot = -1
	return nil
}

func (s *Scan) atLastBlock() (bool, error) {
	size, err := s.tx.Size(s.filename())
	if err != nil {
		return false, err
	}
	return s.rp.Block().Blknum == size-1, nil
}

// BeforeFirst repositions the cursor before the first record.
func (s *Scan) BeforeFirst() error {
	return s.moveToBlock(0)
}

// Next advances the cursor to the next used slot, returning false
// once the heap file is exhausted.
func (s *Scan) Next() (bool, error) {
	slot, err := s.rp.NextAfter(s.currentSlot)
	if err != nil {
		return false, err
	}
	for slot < 0 {
		last, err := s.atLastBlock()
		if err != nil {
			return false, err
		}
		if last {
			return false, nil
		}
		if err := s.moveToBlock(s.rp.Block().Blknum + 1); err != nil {
			return false, err
		}
		slot, err = s.rp.NextAfter(s.currentSlot)
		if err != nil {
			return false, err
		}
	}
	s.currentSlot = slot
	return true, nil
}

// GetInt returns the value of an integer field in the current record.
func (s *Scan) GetInt(fieldname string) (int32, error) {
	return s.rp.GetInt(s.currentSlot, fieldname)
}

// GetString returns the value of a string field in the current record.
func (s *Scan) GetString(fieldname string) (string, error) {
	return s.rp.GetString(s.currentSlot, fieldname)
}

// GetVal returns the value of any field in the current record, typed
// according to the schema.
func (s *Scan) GetVal(fieldname string) (record.Value, error) {
	if s.layout.Schema().Type(fieldname) == record.Integer {
		i, err := s.GetInt(fieldname)
		if err != nil {
			return record.Value{}, err
		}
		return record.IntValue(i), nil
	}
	str, err := s.GetString(fieldname)
	if err != nil {
		return record.Value{}, err
	}
	return record.StringValue(str), nil
}

// HasField reports whether fieldname exists in this table's schema.
func (s *Scan) HasField(fieldname string) bool {
	return s.layout.Schema().HasField(fieldname)
}

// SetInt sets an integer field in the current record.
func (s *Scan) SetInt(fieldname string, val int32) error {
	return s.rp.SetInt(s.currentSlot, fieldname, val)
}

// SetString sets a string field in the current record.
func (s *Scan) SetString(fieldname string, val string) error {
	return s.rp.SetString(s.currentSlot, fieldname, val)
}

// SetVal sets any field in the current record from a typed Value.
func (s *Scan) SetVal(fieldname string, val record.Value) error {
	if s.layout.Schema().Type(fieldname) == record.Integer {
		return s.SetInt(fieldname, val.Int())
	}
	return s.SetString(fieldname, val.String())
}

// Insert appends a new, empty record and positions the cursor on it,
// growing the heap file by one block if every existing block is full.
func (s *Scan) Insert() error {
	slot, err := s.rp.InsertAfter(s.currentSlot)
	if err != nil {
		return err
	}
	for slot < 0 {
		last, err := s.atLastBlock()
		if err != nil {
			return err
		}
		if last {
			if err := s.moveToNewBlock(); err != nil {
				return err
			}
		} else {
			if err := s.moveToBlock(s.rp.Block().Blknum + 1); err != nil {
				return err
			}
		}
		slot, err = s.rp.InsertAfter(s.currentSlot)
		if err != nil {
			return err
		}
	}
	s.currentSlot = slot
	return nil
}

// Delete removes the current record.
func (s *Scan) Delete() error {
	return s.rp.Delete(s.currentSlot)
}

// RecordId returns the identity of the current record.
func (s *Scan) RecordId() record.ID {
	return record.ID{Blknum: s.rp.Block().Blknum, Slot: s.currentSlot}
}

// MoveToRecordId repositions the cursor directly onto id.
func (s *Scan) MoveToRecordId(id record.ID) error {
	if err := s.moveToBlock(id.Blknum); err != nil {
		return err
	}
	s.currentSlot = id.Slot
	return nil
}

// Close releases the pin on the block the cursor is currently on.
func (s *Scan) Close() {
	if s.rp != nil {
		s.rp.Close()
		s.rp = nil
	}
}
